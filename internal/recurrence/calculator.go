package recurrence

import (
	"iter"
	"slices"

	"cashplan/internal/core"
)

// NextDueDate returns the schedule's first due date on or after ref, clamped
// to the schedule's start and end dates.
func NextDueDate(s core.BillSchedule, ref core.Date) core.Date {
	return strategyOf(s).Next(s, ref)
}

// PreviousDueDate returns the due date one period before due. A start date
// later than that candidate replaces it.
func PreviousDueDate(s core.BillSchedule, due core.Date) core.Date {
	return strategyOf(s).Previous(s, due)
}

// PeriodStart is the first day attributed to the occurrence due on due.
func PeriodStart(s core.BillSchedule, due core.Date) core.Date {
	return PreviousDueDate(s, due)
}

// DueDates yields the schedule's due dates inside [from, to] in ascending
// order. The schedule's own bounds take precedence: when the intersection is
// empty nothing is yielded. The sequence can be ranged over repeatedly.
func DueDates(s core.BillSchedule, from, to core.Date) iter.Seq[core.Date] {
	start, end, ok := effectiveWindow(s, from, to)
	if !ok {
		return func(func(core.Date) bool) {}
	}
	return strategyOf(s).Dates(s, start, end)
}

// CollectDueDates is DueDates materialised into a slice.
func CollectDueDates(s core.BillSchedule, from, to core.Date) []core.Date {
	return slices.Collect(DueDates(s, from, to))
}

func effectiveWindow(s core.BillSchedule, from, to core.Date) (core.Date, core.Date, bool) {
	start, end := from, to
	if !s.StartDate.IsEmpty() {
		start = core.MaxDate(start, s.StartDate)
	}
	if !s.EndDate.IsEmpty() {
		end = core.MinDate(end, s.EndDate)
	}
	return start, end, !start.After(end)
}
