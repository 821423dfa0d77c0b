package log

// Field names shared by every structured log line.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldBillID      = "bill_id"
	FieldBillName    = "bill_name"
	FieldDueDate     = "due_date"
	FieldDaysToDue   = "days_to_due"
	FieldAmountCents = "amount_cents"
	FieldInflowCents = "inflow_cents"
	FieldReserve     = "reserve_cents"
	FieldToBills     = "to_bills_cents"
	FieldToBudgets   = "to_budgets_cents"
	FieldToEF        = "to_ef_cents"
	FieldUnallocated = "unallocated_cents"
)

const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentPlanner  = "planner"
	ComponentLedger   = "ledger"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentReminder = "reminder"
	ComponentCache    = "cache"
	ComponentCLI      = "cli"
)

const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpContribute = "contribute"
	OpMarkPaid   = "mark_paid"
	OpBreakdown  = "breakdown"
	OpRemind     = "remind"
	OpMigrate    = "migrate"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields builds a set of key/value pairs for slog.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBill adds the identifying fields of one bill occurrence.
func (f LogFields) WithBill(billID, name, due string) LogFields {
	f[FieldBillID] = billID
	if name != "" {
		f[FieldBillName] = name
	}
	if due != "" {
		f[FieldDueDate] = due
	}
	return f
}

func (f LogFields) WithAmount(cents int64) LogFields {
	f[FieldAmountCents] = cents
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice flattens the fields into slog's alternating key/value form.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
