package log

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cashplan/internal/planner"
)

type ContextKey string

const (
	LoggerContextKey    ContextKey = "logger"
	RequestIDContextKey ContextKey = "request_id"
)

// RequestIDHeader is echoed back so clients can correlate log lines.
const RequestIDHeader = "X-Request-ID"

// Middleware stores logger in every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), LoggerContextKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the request logger, or one wrapping slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: "unknown"}
}

// RequestIDMiddleware assigns a request ID, honouring an incoming
// X-Request-ID header, and binds it to the context logger.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
		logger := FromContext(ctx).With(FieldRequestID, requestID)
		ctx = context.WithValue(ctx, LoggerContextKey, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// AccessLog logs each completed request and reports its outcome to observe,
// which may be nil.
func AccessLog(observe func(method, route string, status int, d time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			d := time.Since(start)
			NewStructuredLogger(FromContext(r.Context())).LogHTTPEnd(r.Context(), r, rw.status, d.Milliseconds())
			if observe != nil {
				route := r.Pattern
				if route == "" {
					route = "unmatched"
				}
				observe(r.Method, route, rw.status, d)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// StructuredLogger emits the recurring log lines of the application with a
// consistent field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs).
		WithComponent(ComponentHTTP)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogAllocation records the stage totals of one breakdown.
func (sl *StructuredLogger) LogAllocation(ctx context.Context, res planner.AllocationResult) {
	sl.logger.Logger.InfoContext(ctx, "Inflow allocated",
		FieldComponent, ComponentPlanner,
		FieldOperation, OpBreakdown,
		FieldInflowCents, res.Input.Cents,
		FieldReserve, res.Reserve.Cents,
		FieldToBills, res.Summary.ToBills.Cents,
		FieldToBudgets, res.Summary.ToBudgets.Cents,
		FieldToEF, res.Summary.ToEF.Cents,
		FieldUnallocated, res.Summary.Unallocated.Cents,
		"bill_allocations", len(res.Bills),
		"budget_allocations", len(res.Budgets))
}

// LogLedgerEntry records a contribution or payment against a bill.
func (sl *StructuredLogger) LogLedgerEntry(ctx context.Context, op, billID, due string, amountCents int64) {
	fields := NewFields().
		WithBill(billID, "", due).
		WithAmount(amountCents).
		WithOperation(op).
		WithComponent(ComponentLedger)
	sl.logger.Logger.InfoContext(ctx, "Ledger entry recorded", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)
	sl.logger.Logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
