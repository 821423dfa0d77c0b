// Package ledger aggregates the contribution/payment ledger of a bill over
// one period.
package ledger

import (
	"context"
	"time"

	"cashplan/internal/core"
)

// DefaultEpsilon absorbs floating rounding when comparing paid amounts.
const DefaultEpsilon = 1e-6

// Sums are the non-negative totals of a bill's ledger inside a period.
type Sums struct {
	Contributed core.Money // sum of positive entries
	Paid        core.Money // sum of |negative entries|
}

// Reader returns the ledger sums of one bill between two calendar days,
// both inclusive.
type Reader interface {
	Sums(ctx context.Context, billID string, start, end core.Date) (Sums, error)
}

// PeriodBounds expands a day range to [start 00:00:00, end 23:59:59.999999999].
func PeriodBounds(start, end core.Date) (time.Time, time.Time) {
	from := time.Date(start.Year(), time.Month(start.Month()), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), time.Month(end.Month()), end.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	return from, to
}

// Aggregate sums the entries of billID that fall inside [start, end].
func Aggregate(entries []core.LedgerEntry, billID string, start, end core.Date) Sums {
	from, to := PeriodBounds(start, end)
	var s Sums
	for _, e := range entries {
		if e.BillID != billID {
			continue
		}
		at := e.OccurredAt.UTC()
		if at.Before(from) || at.After(to) {
			continue
		}
		s.Add(e.Amount)
	}
	return s
}

// Add attributes one signed ledger amount.
func (s *Sums) Add(amount core.Money) {
	switch {
	case amount.Cents > 0:
		s.Contributed = s.Contributed.Add(amount)
	case amount.Cents < 0:
		s.Paid = s.Paid.Add(amount.Neg())
	}
}

// IsPaid reports whether paid covers amount within epsilon currency units.
func IsPaid(amount, paid core.Money, epsilon float64) bool {
	return paid.Float() >= amount.Float()-epsilon
}
