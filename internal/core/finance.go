package core

import (
	"strings"
)

type (
	// Category classifies transactions. Only categories that affect cash flow
	// and are budgetable take part in budget allocation.
	Category struct {
		ID              string
		Name            string
		AffectsCashflow bool
		Budgetable      bool
		IsIncome        bool
	}

	Budget struct {
		CategoryID string
		Year       int
		Month      int
		Amount     Money
	}

	Account struct {
		ID       string
		Name     string
		IsLiquid bool
		Currency string
	}

	// AccountBalance is a balance observed on a given day.
	AccountBalance struct {
		AccountID string
		Balance   Money
		AsOf      Date
	}

	// Transaction is a posted cash movement. Negative amounts are outflows.
	Transaction struct {
		ID          string
		DatePosted  Date
		Amount      Money
		Description string
		CategoryID  string
		Ignored     bool
	}
)

// Eligible reports whether the category can receive budget allocations.
func (c Category) Eligible() bool {
	return c.AffectsCashflow && c.Budgetable
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return invalid("id", "cannot be empty")
	}
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", "cannot be empty")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.CategoryID) == "" {
		return invalid("category_id", "cannot be empty")
	}
	if b.Year < 1900 || b.Year > 9999 {
		return invalid("year", "out of range")
	}
	if b.Month < 1 || b.Month > 12 {
		return invalid("month", "must be between 1 and 12")
	}
	if b.Amount.Cents < 0 {
		return invalid("amount", "cannot be negative")
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return invalid("id", "cannot be empty")
	}
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", "cannot be empty")
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return invalid("id", "cannot be empty")
	}
	if t.DatePosted.IsEmpty() {
		return invalid("date_posted", "required")
	}
	if t.Amount.Cents == 0 {
		return invalid("amount", "cannot be zero")
	}
	return nil
}

// MonthBounds returns the first day of year/month and the first day of the
// following month.
func MonthBounds(year, month int) (Date, Date) {
	first := NewDate(year, month, 1)
	return first, Date{Time: first.Time.AddDate(0, 1, 0)}
}
