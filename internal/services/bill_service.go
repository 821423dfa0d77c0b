package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cashplan/internal/core"
	"cashplan/internal/ledger"
	"cashplan/internal/log"
	"cashplan/internal/metrics"
	"cashplan/internal/planner"
	"cashplan/internal/recurrence"
)

// BillStore is the registry and ledger surface BillService writes through.
type BillStore interface {
	CreateBill(ctx context.Context, b core.BillSchedule) (bool, error)
	GetBill(ctx context.Context, id string) (core.BillSchedule, error)
	ListBills(ctx context.Context) ([]core.BillSchedule, error)
	UpdateBill(ctx context.Context, b core.BillSchedule) error
	DeleteBill(ctx context.Context, id string) error
	InsertLedgerEntry(ctx context.Context, e core.LedgerEntry) error
	LedgerEntries(ctx context.Context, billID string, start, end core.Date) ([]core.LedgerEntry, error)
	ledger.Reader
}

// EmergencyFundInvalidator drops cached emergency-fund overviews.
// *PlannerService implements it.
type EmergencyFundInvalidator interface {
	InvalidateEmergencyFund()
}

// BillPatch carries the fields of a partial schedule update; nil leaves a
// field untouched.
type BillPatch struct {
	Name       *string
	Amount     *core.Money
	Currency   *string
	Frequency  *core.Frequency
	Weekday    *int
	DayOfMonth *int
	StartDate  *core.Date
	EndDate    *core.Date
}

func (p BillPatch) apply(b core.BillSchedule) core.BillSchedule {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.Currency != nil {
		b.Currency = *p.Currency
	}
	if p.Frequency != nil {
		b.Frequency = *p.Frequency
	}
	if p.Weekday != nil {
		b.Weekday = p.Weekday
	}
	if p.DayOfMonth != nil {
		b.DayOfMonth = p.DayOfMonth
	}
	if p.StartDate != nil {
		b.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		b.EndDate = *p.EndDate
	}
	return b
}

// MarkPaidResult reports the period a payment was recorded against.
type MarkPaidResult struct {
	AlreadyPaid bool
	PeriodStart core.Date
	Due         core.Date
}

// LedgerReport is a bill's ledger over a date range.
type LedgerReport struct {
	BillID  string
	From    core.Date
	To      core.Date
	Entries []core.LedgerEntry
	Sums    ledger.Sums
}

// BillService owns schedule edits and the contribution/payment ledger.
type BillService struct {
	store BillStore
	cfg   planner.Config
	now   func() time.Time
	ef    EmergencyFundInvalidator

	// serialises the check-then-insert of MarkPaid
	payMu sync.Mutex
}

// NewBillService builds the service. Ledger writes invalidate ef, which may
// be nil.
func NewBillService(store BillStore, cfg planner.Config, ef EmergencyFundInvalidator) *BillService {
	return &BillService{store: store, cfg: cfg, now: time.Now, ef: ef}
}

func (s *BillService) ledgerWritten() {
	if s.ef != nil {
		s.ef.InvalidateEmergencyFund()
	}
}

func (s *BillService) CreateBill(ctx context.Context, b core.BillSchedule) (bool, error) {
	created, err := s.store.CreateBill(ctx, b)
	if err != nil {
		return false, fmt.Errorf("create bill: %w", err)
	}
	return created, nil
}

func (s *BillService) GetBill(ctx context.Context, id string) (core.BillSchedule, error) {
	return s.store.GetBill(ctx, id)
}

func (s *BillService) ListBills(ctx context.Context) ([]core.BillSchedule, error) {
	return s.store.ListBills(ctx)
}

// UpdateBill applies patch to the stored schedule and revalidates it.
func (s *BillService) UpdateBill(ctx context.Context, id string, patch BillPatch) (core.BillSchedule, error) {
	current, err := s.store.GetBill(ctx, id)
	if err != nil {
		return core.BillSchedule{}, err
	}
	updated := patch.apply(current)
	if err := updated.Validate(); err != nil {
		return core.BillSchedule{}, err
	}
	if err := s.store.UpdateBill(ctx, updated); err != nil {
		return core.BillSchedule{}, fmt.Errorf("update bill %s: %w", id, err)
	}
	return updated, nil
}

func (s *BillService) DeleteBill(ctx context.Context, id string) error {
	return s.store.DeleteBill(ctx, id)
}

// Contribute records a voluntary set-aside toward the bill's current period.
func (s *BillService) Contribute(ctx context.Context, billID string, amount core.Money, note string) error {
	if !amount.IsPositive() {
		return &core.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if _, err := s.store.GetBill(ctx, billID); err != nil {
		return err
	}
	entry := core.LedgerEntry{BillID: billID, OccurredAt: s.now().UTC(), Amount: amount, Note: note}
	if err := s.store.InsertLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("record contribution for bill %s: %w", billID, err)
	}
	s.ledgerWritten()
	metrics.IncLedgerEntry("contribution")
	log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerEntry(ctx, log.OpContribute, billID, "", amount.Cents)
	return nil
}

// MarkPaid records a payment of the full amount for the current period
// [previous due, next due]. A period that is already paid is left alone.
func (s *BillService) MarkPaid(ctx context.Context, billID string) (MarkPaidResult, error) {
	s.payMu.Lock()
	defer s.payMu.Unlock()

	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return MarkPaidResult{}, err
	}

	now := s.now().UTC()
	due := recurrence.NextDueDate(bill, core.DateOf(now))
	start := recurrence.PreviousDueDate(bill, due)
	res := MarkPaidResult{PeriodStart: start, Due: due}

	sums, err := s.store.Sums(ctx, billID, start, due)
	if err != nil {
		return MarkPaidResult{}, fmt.Errorf("ledger sums for bill %s: %w", billID, err)
	}
	if ledger.IsPaid(bill.Amount, sums.Paid, s.cfg.PaidEpsilon) {
		res.AlreadyPaid = true
		return res, nil
	}

	entry := core.LedgerEntry{BillID: billID, OccurredAt: now, Amount: bill.Amount.Neg(), Note: "paid"}
	if err := s.store.InsertLedgerEntry(ctx, entry); err != nil {
		return MarkPaidResult{}, fmt.Errorf("record payment for bill %s: %w", billID, err)
	}
	s.ledgerWritten()
	metrics.IncLedgerEntry("payment")
	log.NewStructuredLogger(log.FromContext(ctx)).LogLedgerEntry(ctx, log.OpMarkPaid, billID, due.String(), bill.Amount.Cents)
	return res, nil
}

// Ledger returns the entries and sums of a bill between from and to. Zero
// bounds default to the bill's current period.
func (s *BillService) Ledger(ctx context.Context, billID string, from, to core.Date) (LedgerReport, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return LedgerReport{}, err
	}
	if from.IsEmpty() || to.IsEmpty() {
		due := recurrence.NextDueDate(bill, core.DateOf(s.now().UTC()))
		if to.IsEmpty() {
			to = due
		}
		if from.IsEmpty() {
			from = recurrence.PreviousDueDate(bill, due)
		}
	}
	if to.Before(from) {
		return LedgerReport{}, &core.ValidationError{Field: "to", Reason: "must not precede from"}
	}

	entries, err := s.store.LedgerEntries(ctx, billID, from, to)
	if err != nil {
		return LedgerReport{}, fmt.Errorf("ledger entries for bill %s: %w", billID, err)
	}
	return LedgerReport{
		BillID:  billID,
		From:    from,
		To:      to,
		Entries: entries,
		Sums:    ledger.Aggregate(entries, billID, from, to),
	}, nil
}
