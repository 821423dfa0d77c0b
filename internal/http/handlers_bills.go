package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"cashplan/internal/core"
	"cashplan/internal/planner"
	"cashplan/internal/services"
)

type billRequest struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Amount     json.Number `json:"amount"`
	Currency   string      `json:"currency"`
	Frequency  string      `json:"frequency"`
	Weekday    *int        `json:"weekday"`
	DayOfMonth *int        `json:"day_of_month"`
	StartDate  *string     `json:"start_date"`
	EndDate    *string     `json:"end_date"`
}

func (req billRequest) schedule() (core.BillSchedule, error) {
	if req.Amount == "" {
		return core.BillSchedule{}, &core.ValidationError{Field: "amount", Reason: "is required"}
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		return core.BillSchedule{}, err
	}
	start, err := parseOptionalDate("start_date", req.StartDate)
	if err != nil {
		return core.BillSchedule{}, err
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		return core.BillSchedule{}, err
	}
	b := core.BillSchedule{
		ID:         sanitizeInput(req.ID),
		Name:       sanitizeInput(req.Name),
		Amount:     amount,
		Currency:   strings.ToUpper(sanitizeInput(req.Currency)),
		Frequency:  core.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
		Weekday:    req.Weekday,
		DayOfMonth: req.DayOfMonth,
		StartDate:  start,
		EndDate:    end,
	}
	return b, b.Validate()
}

type billPatchRequest struct {
	Name       *string      `json:"name"`
	Amount     *json.Number `json:"amount"`
	Currency   *string      `json:"currency"`
	Frequency  *string      `json:"frequency"`
	Weekday    *int         `json:"weekday"`
	DayOfMonth *int         `json:"day_of_month"`
	StartDate  *string      `json:"start_date"`
	EndDate    *string      `json:"end_date"`
}

func (req billPatchRequest) patch() (services.BillPatch, error) {
	var p services.BillPatch
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		p.Name = &name
	}
	if req.Amount != nil {
		amount, err := parseMoney("amount", *req.Amount)
		if err != nil {
			return p, err
		}
		p.Amount = &amount
	}
	if req.Currency != nil {
		currency := strings.ToUpper(sanitizeInput(*req.Currency))
		p.Currency = &currency
	}
	if req.Frequency != nil {
		freq := core.Frequency(strings.ToLower(strings.TrimSpace(*req.Frequency)))
		p.Frequency = &freq
	}
	p.Weekday = req.Weekday
	p.DayOfMonth = req.DayOfMonth
	if req.StartDate != nil {
		d, err := parseOptionalDate("start_date", req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := parseOptionalDate("end_date", req.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &d
	}
	return p, nil
}

type billView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Frequency  string  `json:"frequency"`
	Weekday    *int    `json:"weekday"`
	DayOfMonth *int    `json:"day_of_month"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
}

func newBillView(b core.BillSchedule) billView {
	return billView{
		ID:         b.ID,
		Name:       b.Name,
		Amount:     b.Amount.Float(),
		Currency:   b.Currency,
		Frequency:  string(b.Frequency),
		Weekday:    b.Weekday,
		DayOfMonth: b.DayOfMonth,
		StartDate:  optionalDate(b.StartDate),
		EndDate:    optionalDate(b.EndDate),
	}
}

func optionalDate(d core.Date) *string {
	if d.IsEmpty() {
		return nil
	}
	s := d.String()
	return &s
}

type ledgerEntryView struct {
	OccurredAt string  `json:"occurred_at"`
	Amount     float64 `json:"amount"`
	Note       string  `json:"note"`
}

type ledgerView struct {
	BillID     string            `json:"bill_id"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	ContribSum float64           `json:"contrib_sum"`
	PaidSum    float64           `json:"paid_sum"`
	Entries    []ledgerEntryView `json:"entries"`
}

func newLedgerView(rep services.LedgerReport) ledgerView {
	entries := make([]ledgerEntryView, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		entries = append(entries, ledgerEntryView{
			OccurredAt: e.OccurredAt.UTC().Format(time.RFC3339),
			Amount:     e.Amount.Float(),
			Note:       e.Note,
		})
	}
	return ledgerView{
		BillID:     rep.BillID,
		From:       rep.From.String(),
		To:         rep.To.String(),
		ContribSum: rep.Sums.Contributed.Float(),
		PaidSum:    rep.Sums.Paid.Float(),
		Entries:    entries,
	}
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.bills.ListBills(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]billView, 0, len(bills))
	for _, b := range bills {
		views = append(views, newBillView(b))
	}
	NewJSONResponse().Body(views).Write(w)
}

// handleCreateBill registers a schedule. An existing id is left untouched
// and reported with created=false.
func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req billRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := req.schedule()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.bills.CreateBill(r.Context(), bill)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	NewJSONResponse().
		Status(status).
		Body(map[string]any{"ok": true, "id": bill.ID, "created": created}).
		Write(w)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.bills.GetBill(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newBillView(bill)).Write(w)
}

func (s *Server) handlePatchBill(w http.ResponseWriter, r *http.Request) {
	var req billPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	bill, err := s.bills.UpdateBill(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newBillView(bill)).Write(w)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.bills.DeleteBill(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type contributeRequest struct {
	Amount json.Number `json:"amount"`
	Note   string      `json:"note"`
}

func (s *Server) handleContribute(w http.ResponseWriter, r *http.Request) {
	var req contributeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Amount == "" {
		writeError(w, r, &core.ValidationError{Field: "amount", Reason: "is required"})
		return
	}
	amount, err := parseMoney("amount", req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.bills.Contribute(r.Context(), r.PathValue("id"), amount, sanitizeInput(req.Note)); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"ok": true}).Write(w)
}

func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	res, err := s.bills.MarkPaid(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Body(map[string]any{
			"ok":           true,
			"already_paid": res.AlreadyPaid,
			"period_start": res.PeriodStart.String(),
			"due":          res.Due.String(),
		}).
		Write(w)
}

// handleOccurrences lists occurrences in [from, to], due-soon first.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(q, "from", true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(q, "to", true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := queryInt(q, "due_soon_days", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if q.Has("due_soon_days") && (days < 1 || days > 60) {
		writeError(w, r, &core.ValidationError{Field: "due_soon_days", Reason: "must be between 1 and 60"})
		return
	}

	occ, err := s.planner.Occurrences(r.Context(), from, to, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(planner.NewOccurrenceViews(occ)).Write(w)
}

// handleLedger shows a bill's entries; without from/to it covers the
// current period.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(q, "from", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(q, "to", false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.bills.Ledger(r.Context(), r.PathValue("id"), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(newLedgerView(rep)).Write(w)
}
