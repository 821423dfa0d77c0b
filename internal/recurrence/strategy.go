// Package recurrence computes due dates for recurring bill schedules.
//
// Each frequency (weekly, monthly, yearly) has its own strategy that knows
// how to step forward and backward from a date and how to expand a schedule
// into the due dates inside a window. All functions are pure.
package recurrence

import (
	"fmt"
	"iter"

	"cashplan/internal/core"
)

// Strategy is the per-frequency recurrence algorithm.
type Strategy interface {
	// Next returns the first due date on or after ref.
	Next(s core.BillSchedule, ref core.Date) core.Date
	// Previous returns the due date one period before due.
	Previous(s core.BillSchedule, due core.Date) core.Date
	// Dates yields due dates inside [start, end], both already intersected
	// with the schedule bounds.
	Dates(s core.BillSchedule, start, end core.Date) iter.Seq[core.Date]
}

// WeeklyStrategy recurs on a fixed weekday.
type WeeklyStrategy struct{}

func (WeeklyStrategy) Next(s core.BillSchedule, ref core.Date) core.Date {
	if s.Weekday == nil {
		return ref
	}
	return ref.AddDays(weekdayOffset(ref, *s.Weekday))
}

func (WeeklyStrategy) Previous(_ core.BillSchedule, due core.Date) core.Date {
	return due.AddDays(-7)
}

func (WeeklyStrategy) Dates(s core.BillSchedule, start, end core.Date) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		if s.Weekday == nil {
			return
		}
		for d := start.AddDays(weekdayOffset(start, *s.Weekday)); !d.After(end); d = d.AddDays(7) {
			if !yield(d) {
				return
			}
		}
	}
}

func weekdayOffset(from core.Date, weekday int) int {
	return ((weekday-from.MondayWeekday())%7 + 7) % 7
}

// MonthlyStrategy recurs on a day of the month, clamped to short months.
type MonthlyStrategy struct{}

func (MonthlyStrategy) Next(s core.BillSchedule, ref core.Date) core.Date {
	dom := 1
	if s.DayOfMonth != nil {
		dom = *s.DayOfMonth
	}
	y, m := ref.Year(), ref.Month()
	d := core.ClampedDate(y, m, dom)
	if d.Before(ref) {
		y, m = nextMonth(y, m)
		d = core.ClampedDate(y, m, dom)
	}
	return clampToBounds(s, d)
}

// Previous falls back to the first of due's month when the schedule has no
// day of month. That path only exists for legacy rows written before the
// anchor became mandatory.
func (MonthlyStrategy) Previous(s core.BillSchedule, due core.Date) core.Date {
	if s.DayOfMonth == nil {
		return core.NewDate(due.Year(), due.Month(), 1)
	}
	y, m := prevMonth(due.Year(), due.Month())
	return startOverride(s, core.ClampedDate(y, m, *s.DayOfMonth))
}

func (MonthlyStrategy) Dates(s core.BillSchedule, start, end core.Date) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		if s.DayOfMonth == nil {
			return
		}
		y, m := start.Year(), start.Month()
		for !core.NewDate(y, m, 1).After(end) {
			d := core.ClampedDate(y, m, *s.DayOfMonth)
			if !d.Before(start) && !d.After(end) {
				if !yield(d) {
					return
				}
			}
			y, m = nextMonth(y, m)
		}
	}
}

// YearlyStrategy recurs on the anniversary of the start date. Feb 29 anchors
// fall on Feb 28 in non-leap years.
type YearlyStrategy struct{}

func (YearlyStrategy) Next(s core.BillSchedule, ref core.Date) core.Date {
	anchor := yearlyAnchor(s, ref)
	d := core.ClampedDate(ref.Year(), anchor.Month(), anchor.Day())
	if d.Before(ref) {
		d = core.ClampedDate(ref.Year()+1, anchor.Month(), anchor.Day())
	}
	return clampToBounds(s, d)
}

func (YearlyStrategy) Previous(s core.BillSchedule, due core.Date) core.Date {
	anchor := yearlyAnchor(s, due)
	return startOverride(s, core.ClampedDate(due.Year()-1, anchor.Month(), anchor.Day()))
}

func (YearlyStrategy) Dates(s core.BillSchedule, start, end core.Date) iter.Seq[core.Date] {
	return func(yield func(core.Date) bool) {
		if s.StartDate.IsEmpty() {
			return
		}
		anchor := s.StartDate
		for y := max(start.Year(), anchor.Year()); ; y++ {
			d := core.ClampedDate(y, anchor.Month(), anchor.Day())
			if d.After(end) {
				return
			}
			if !d.Before(start) && !yield(d) {
				return
			}
		}
	}
}

func yearlyAnchor(s core.BillSchedule, ref core.Date) core.Date {
	if !s.StartDate.IsEmpty() {
		return s.StartDate
	}
	return core.NewDate(ref.Year(), 1, 1)
}

// clampToBounds pulls a next-due candidate inside [start_date, end_date].
func clampToBounds(s core.BillSchedule, d core.Date) core.Date {
	if !s.EndDate.IsEmpty() && d.After(s.EndDate) {
		return s.EndDate
	}
	if !s.StartDate.IsEmpty() && d.Before(s.StartDate) {
		return s.StartDate
	}
	return d
}

func startOverride(s core.BillSchedule, prev core.Date) core.Date {
	if !s.StartDate.IsEmpty() && s.StartDate.After(prev) {
		return s.StartDate
	}
	return prev
}

func nextMonth(y, m int) (int, int) {
	if m == 12 {
		return y + 1, 1
	}
	return y, m + 1
}

func prevMonth(y, m int) (int, int) {
	if m == 1 {
		return y - 1, 12
	}
	return y, m - 1
}

var strategies = map[core.Frequency]Strategy{
	core.Weekly:  WeeklyStrategy{},
	core.Monthly: MonthlyStrategy{},
	core.Yearly:  YearlyStrategy{},
}

// StrategyFor returns the strategy registered for a frequency.
func StrategyFor(freq core.Frequency) (Strategy, error) {
	s, ok := strategies[freq]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownFrequency, freq)
	}
	return s, nil
}

// strategyOf never fails: anything that is not weekly or monthly recurs yearly.
func strategyOf(s core.BillSchedule) Strategy {
	if st, err := StrategyFor(s.Frequency); err == nil {
		return st
	}
	return YearlyStrategy{}
}
