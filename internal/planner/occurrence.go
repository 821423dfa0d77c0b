package planner

import (
	"context"
	"fmt"
	"slices"

	"cashplan/internal/core"
	"cashplan/internal/ledger"
	"cashplan/internal/recurrence"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusOverdue Status = "overdue"
	StatusPaid    Status = "paid"
)

// Occurrence is one due date of a bill with the ledger state of its period.
// It is derived on every query and never stored.
type Occurrence struct {
	BillID        string
	Name          string
	Due           core.Date
	PeriodStart   core.Date
	Amount        core.Money
	Contributed   core.Money
	PaidSum       core.Money
	Progress      float64
	Paid          bool
	DaysToDue     int
	DueSoon       bool
	PriorityScore float64
	Status        Status
}

// Need is what is still missing from the contributions of the period.
func (o Occurrence) Need() core.Money {
	if o.Paid {
		return core.Money{}
	}
	return core.MaxMoney(core.Money{}, o.Amount.Sub(o.Contributed))
}

// Evaluate scores a bill's occurrence due on due from the period's sums.
func Evaluate(bill core.BillSchedule, due, periodStart, today core.Date, sums ledger.Sums, dueSoonDays int, cfg Config) Occurrence {
	paid := ledger.IsPaid(bill.Amount, sums.Paid, cfg.PaidEpsilon)
	progress := Progress(bill.Amount, sums.Contributed, paid)
	days := today.DaysUntil(due)

	status := StatusActive
	switch {
	case paid:
		status = StatusPaid
	case due.Before(today):
		status = StatusOverdue
	}

	return Occurrence{
		BillID:        bill.ID,
		Name:          bill.Name,
		Due:           due,
		PeriodStart:   periodStart,
		Amount:        bill.Amount,
		Contributed:   sums.Contributed,
		PaidSum:       sums.Paid,
		Progress:      progress,
		Paid:          paid,
		DaysToDue:     days,
		DueSoon:       DueSoon(days, dueSoonDays),
		PriorityScore: Score(SoonWeight(days, dueSoonDays), progress),
		Status:        status,
	}
}

// BuildOccurrences enumerates every bill inside [from, to], reconciles each
// occurrence against its period ledger and returns them in display order.
func BuildOccurrences(ctx context.Context, bills []core.BillSchedule, reader ledger.Reader, from, to, today core.Date, dueSoonDays int, cfg Config) ([]Occurrence, error) {
	window := cfg.DueSoonWindow(dueSoonDays)

	var out []Occurrence
	for _, bill := range bills {
		for due := range recurrence.DueDates(bill, from, to) {
			start := recurrence.PeriodStart(bill, due)
			sums, err := reader.Sums(ctx, bill.ID, start, due)
			if err != nil {
				return nil, fmt.Errorf("ledger sums for bill %s due %s: %w", bill.ID, due, err)
			}
			out = append(out, Evaluate(bill, due, start, today, sums, window, cfg))
		}
	}
	SortOccurrences(out)
	return out, nil
}

// SortOccurrences orders due-soon occurrences first, then by descending
// priority score. Exact ties keep their input order.
func SortOccurrences(occ []Occurrence) {
	slices.SortStableFunc(occ, compareOccurrences)
}

func compareOccurrences(a, b Occurrence) int {
	if a.DueSoon != b.DueSoon {
		if a.DueSoon {
			return -1
		}
		return 1
	}
	switch {
	case a.PriorityScore > b.PriorityScore:
		return -1
	case a.PriorityScore < b.PriorityScore:
		return 1
	}
	return 0
}
