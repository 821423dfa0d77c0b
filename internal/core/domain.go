package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const dateLayout = "2006-01-02"

type (
	Frequency string

	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	BillSchedule struct {
		ID         string
		Name       string
		Amount     Money
		Currency   string
		Frequency  Frequency
		Weekday    *int // 0=Mon..6=Sun, weekly only
		DayOfMonth *int // 1-31, monthly only
		StartDate  Date
		EndDate    Date
	}

	LedgerEntry struct {
		BillID     string
		OccurredAt time.Time
		Amount     Money // positive = contribution, negative = payment
		Note       string
	}

	BudgetShortfall struct {
		CategoryID string
		Name       string
		Budgeted   Money
		Actual     Money
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

// ValidationError reports a schedule or request field that cannot be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's wall clock date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty returns true if the date is unset
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before and After compare calendar days.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// DaysUntil returns the whole days from d to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

// MondayWeekday maps the date's weekday to 0=Mon..6=Sun.
func (d Date) MondayWeekday() int {
	return (int(d.Weekday()) + 6) % 7
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampedDate builds year/month/day, pulling day back to the month's last day.
func ClampedDate(year, month, day int) Date {
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// MinDate and MaxDate pick the earlier/later of two dates.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Validate checks the frequency-specific anchor rules applied when a schedule
// is registered. Recurrence code assumes schedules already passed it.
func (b BillSchedule) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return invalid("id", "cannot be empty")
	}
	if strings.TrimSpace(b.Name) == "" {
		return invalid("name", "cannot be empty")
	}
	if len(b.Name) > 200 {
		return invalid("name", "too long (max 200 characters)")
	}
	if b.Amount.Cents <= 0 {
		return invalid("amount", "must be > 0")
	}
	if b.Weekday != nil && (*b.Weekday < 0 || *b.Weekday > 6) {
		return invalid("weekday", "must be between 0 and 6")
	}
	if b.DayOfMonth != nil && (*b.DayOfMonth < 1 || *b.DayOfMonth > 31) {
		return invalid("day_of_month", "must be between 1 and 31")
	}

	switch b.Frequency {
	case Weekly:
		if b.Weekday == nil {
			return invalid("weekday", "required for weekly")
		}
	case Monthly:
		if b.DayOfMonth == nil {
			return invalid("day_of_month", "required for monthly")
		}
	case Yearly:
		if b.StartDate.IsEmpty() {
			return invalid("start_date", "required for yearly")
		}
	default:
		return invalid("frequency", fmt.Sprintf("unknown frequency %q", b.Frequency))
	}

	if !b.StartDate.IsEmpty() && !b.EndDate.IsEmpty() && b.EndDate.Before(b.StartDate) {
		return invalid("end_date", "must not precede start_date")
	}
	return nil
}

// Need is the unspent part of the budget, never negative.
func (s BudgetShortfall) Need() Money {
	if s.Actual.Cents >= s.Budgeted.Cents {
		return Money{}
	}
	return Money{Cents: s.Budgeted.Cents - s.Actual.Cents}
}

// Variance is budgeted minus actual; negative when the category is overspent.
func (s BudgetShortfall) Variance() Money {
	return s.Budgeted.Sub(s.Actual)
}

// IntPtr is a small helper for optional schedule anchors.
func IntPtr(v int) *int {
	return &v
}
