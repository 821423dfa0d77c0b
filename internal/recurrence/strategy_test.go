package recurrence

import (
	"errors"
	"testing"

	"cashplan/internal/core"
)

func weekly(weekday int) core.BillSchedule {
	return core.BillSchedule{ID: "w", Name: "Weekly", Amount: core.Money{Cents: 1000}, Frequency: core.Weekly, Weekday: core.IntPtr(weekday)}
}

func monthly(day int) core.BillSchedule {
	return core.BillSchedule{ID: "m", Name: "Monthly", Amount: core.Money{Cents: 1000}, Frequency: core.Monthly, DayOfMonth: core.IntPtr(day)}
}

func yearly(anchor core.Date) core.BillSchedule {
	return core.BillSchedule{ID: "y", Name: "Yearly", Amount: core.Money{Cents: 1000}, Frequency: core.Yearly, StartDate: anchor}
}

func TestWeeklyStrategy_NextIsSmallestMatchingDate(t *testing.T) {
	base := core.NewDate(2023, 12, 20)
	for weekday := 0; weekday < 7; weekday++ {
		s := weekly(weekday)
		for i := 0; i < 60; i++ {
			ref := base.AddDays(i)
			got := NextDueDate(s, ref)
			if got.Before(ref) {
				t.Fatalf("weekday %d ref %s: next %s precedes ref", weekday, ref, got)
			}
			if got.MondayWeekday() != weekday {
				t.Fatalf("weekday %d ref %s: next %s has weekday %d", weekday, ref, got, got.MondayWeekday())
			}
			if ref.DaysUntil(got) > 6 {
				t.Fatalf("weekday %d ref %s: next %s is not the smallest match", weekday, ref, got)
			}
		}
	}
}

func TestMonthlyStrategy_Next(t *testing.T) {
	tests := []struct {
		name string
		bill core.BillSchedule
		ref  core.Date
		want core.Date
	}{
		{
			name: "later this month",
			bill: monthly(15),
			ref:  core.NewDate(2024, 1, 10),
			want: core.NewDate(2024, 1, 15),
		},
		{
			name: "due today",
			bill: monthly(15),
			ref:  core.NewDate(2024, 1, 15),
			want: core.NewDate(2024, 1, 15),
		},
		{
			name: "passed - rolls to next month",
			bill: monthly(15),
			ref:  core.NewDate(2024, 1, 16),
			want: core.NewDate(2024, 2, 15),
		},
		{
			name: "day 31 in February 2023 clamps to 28",
			bill: monthly(31),
			ref:  core.NewDate(2023, 2, 1),
			want: core.NewDate(2023, 2, 28),
		},
		{
			name: "day 31 in leap February",
			bill: monthly(31),
			ref:  core.NewDate(2024, 2, 1),
			want: core.NewDate(2024, 2, 29),
		},
		{
			name: "december wraps to january",
			bill: monthly(5),
			ref:  core.NewDate(2024, 12, 6),
			want: core.NewDate(2025, 1, 5),
		},
		{
			name: "raised to start date",
			bill: func() core.BillSchedule {
				b := monthly(1)
				b.StartDate = core.NewDate(2024, 6, 5)
				return b
			}(),
			ref:  core.NewDate(2024, 5, 2),
			want: core.NewDate(2024, 6, 5),
		},
		{
			name: "capped at end date",
			bill: func() core.BillSchedule {
				b := monthly(20)
				b.EndDate = core.NewDate(2024, 5, 10)
				return b
			}(),
			ref:  core.NewDate(2024, 5, 12),
			want: core.NewDate(2024, 5, 10),
		},
		{
			name: "missing day of month uses the first",
			bill: core.BillSchedule{Frequency: core.Monthly},
			ref:  core.NewDate(2024, 5, 2),
			want: core.NewDate(2024, 6, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextDueDate(tt.bill, tt.ref); !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestYearlyStrategy_Next(t *testing.T) {
	tests := []struct {
		name string
		bill core.BillSchedule
		ref  core.Date
		want core.Date
	}{
		{
			name: "anniversary later this year",
			bill: yearly(core.NewDate(2020, 9, 1)),
			ref:  core.NewDate(2024, 3, 1),
			want: core.NewDate(2024, 9, 1),
		},
		{
			name: "anniversary passed",
			bill: yearly(core.NewDate(2020, 2, 1)),
			ref:  core.NewDate(2024, 3, 1),
			want: core.NewDate(2025, 2, 1),
		},
		{
			name: "leap day anchor in a non-leap year",
			bill: yearly(core.NewDate(2024, 2, 29)),
			ref:  core.NewDate(2024, 3, 1),
			want: core.NewDate(2025, 2, 28),
		},
		{
			name: "before the start date",
			bill: yearly(core.NewDate(2026, 4, 10)),
			ref:  core.NewDate(2024, 1, 1),
			want: core.NewDate(2026, 4, 10),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextDueDate(tt.bill, tt.ref); !got.Equal(tt.want) {
				t.Errorf("NextDueDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPreviousDueDate(t *testing.T) {
	withStart := monthly(15)
	withStart.StartDate = core.NewDate(2024, 1, 20)

	tests := []struct {
		name string
		bill core.BillSchedule
		due  core.Date
		want core.Date
	}{
		{"weekly steps back seven days", weekly(2), core.NewDate(2024, 1, 3), core.NewDate(2023, 12, 27)},
		{"monthly previous month", monthly(15), core.NewDate(2024, 1, 15), core.NewDate(2023, 12, 15)},
		{"monthly clamps into february", monthly(31), core.NewDate(2024, 3, 31), core.NewDate(2024, 2, 29)},
		{"monthly start date wins", withStart, core.NewDate(2024, 2, 15), core.NewDate(2024, 1, 20)},
		{"monthly without day falls back to first", core.BillSchedule{Frequency: core.Monthly}, core.NewDate(2024, 5, 17), core.NewDate(2024, 5, 1)},
		{"yearly previous year", yearly(core.NewDate(2020, 3, 10)), core.NewDate(2024, 3, 10), core.NewDate(2023, 3, 10)},
		{"yearly leap anchor", yearly(core.NewDate(2024, 2, 29)), core.NewDate(2025, 2, 28), core.NewDate(2024, 2, 29)},
		{"yearly start date wins", yearly(core.NewDate(2024, 3, 10)), core.NewDate(2024, 3, 10), core.NewDate(2024, 3, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PreviousDueDate(tt.bill, tt.due); !got.Equal(tt.want) {
				t.Errorf("PreviousDueDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPreviousOfNextIsOnePeriodBack(t *testing.T) {
	base := core.NewDate(2024, 1, 1)
	for i := 0; i < 400; i += 3 {
		ref := base.AddDays(i)

		w := weekly(4)
		next := NextDueDate(w, ref)
		if got, want := PreviousDueDate(w, next), next.AddDays(-7); !got.Equal(want) {
			t.Fatalf("weekly ref %s: previous = %s, want %s", ref, got, want)
		}

		m := monthly(15)
		next = NextDueDate(m, ref)
		want := core.Date{Time: next.Time.AddDate(0, -1, 0)}
		if got := PreviousDueDate(m, next); !got.Equal(want) {
			t.Fatalf("monthly ref %s: previous = %s, want %s", ref, got, want)
		}

		y := yearly(core.NewDate(2020, 7, 4))
		next = NextDueDate(y, ref)
		want = core.Date{Time: next.Time.AddDate(-1, 0, 0)}
		if got := PreviousDueDate(y, next); !got.Equal(want) {
			t.Fatalf("yearly ref %s: previous = %s, want %s", ref, got, want)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		name      string
		frequency core.Frequency
		wantErr   bool
	}{
		{"weekly", core.Weekly, false},
		{"monthly", core.Monthly, false},
		{"yearly", core.Yearly, false},
		{"unknown", core.Frequency("biweekly"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StrategyFor(tt.frequency)
			if (err != nil) != tt.wantErr {
				t.Fatalf("StrategyFor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, core.ErrUnknownFrequency) {
				t.Errorf("StrategyFor() error = %v, want ErrUnknownFrequency", err)
			}
			if !tt.wantErr && s == nil {
				t.Error("StrategyFor() returned nil strategy")
			}
		})
	}
}
