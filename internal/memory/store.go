// Package memory is an in-process implementation of the storage ports, used
// by tests and the CLI demo mode.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"cashplan/internal/core"
	"cashplan/internal/ledger"
)

type Store struct {
	mu           sync.Mutex
	bills        map[string]core.BillSchedule
	entries      []core.LedgerEntry
	categories   map[string]core.Category
	budgets      map[budgetKey]core.Money
	accounts     map[string]core.Account
	balances     map[string]map[string]core.Money // account -> as_of -> balance
	transactions map[string]core.Transaction
	now          func() time.Time
}

type budgetKey struct {
	categoryID string
	year       int
	month      int
}

func New() *Store {
	return &Store{
		bills:        map[string]core.BillSchedule{},
		categories:   map[string]core.Category{},
		budgets:      map[budgetKey]core.Money{},
		accounts:     map[string]core.Account{},
		balances:     map[string]map[string]core.Money{},
		transactions: map[string]core.Transaction{},
		now:          time.Now,
	}
}

// CreateBill stores the schedule unless the id is taken.
func (s *Store) CreateBill(_ context.Context, b core.BillSchedule) (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; ok {
		return false, nil
	}
	if b.Currency == "" {
		b.Currency = "USD"
	}
	s.bills[b.ID] = b
	return true, nil
}

func (s *Store) GetBill(_ context.Context, id string) (core.BillSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return core.BillSchedule{}, fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	return b, nil
}

// ListBills returns every schedule ordered by name.
func (s *Store) ListBills(_ context.Context) ([]core.BillSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.BillSchedule, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b core.BillSchedule) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) UpdateBill(_ context.Context, b core.BillSchedule) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[b.ID]; !ok {
		return fmt.Errorf("bill %s: %w", b.ID, core.ErrNotFound)
	}
	s.bills[b.ID] = b
	return nil
}

// DeleteBill drops the schedule and its ledger.
func (s *Store) DeleteBill(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	delete(s.bills, id)
	s.entries = slices.DeleteFunc(s.entries, func(e core.LedgerEntry) bool { return e.BillID == id })
	return nil
}

func (s *Store) InsertLedgerEntry(_ context.Context, e core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[e.BillID]; !ok {
		return fmt.Errorf("bill %s: %w", e.BillID, core.ErrNotFound)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	e.OccurredAt = e.OccurredAt.UTC().Truncate(time.Second)
	s.entries = append(s.entries, e)
	return nil
}

// Sums implements ledger.Reader.
func (s *Store) Sums(_ context.Context, billID string, start, end core.Date) (ledger.Sums, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.Aggregate(s.entries, billID, start, end), nil
}

func (s *Store) LedgerEntries(_ context.Context, billID string, start, end core.Date) ([]core.LedgerEntry, error) {
	from, to := ledger.PeriodBounds(start, end)
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.LedgerEntry
	for _, e := range s.entries {
		if e.BillID != billID || e.OccurredAt.Before(from) || e.OccurredAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b core.LedgerEntry) int { return a.OccurredAt.Compare(b.OccurredAt) })
	return out, nil
}

func (s *Store) UpsertCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

// UpsertBudget rejects categories that cannot receive budget allocations.
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[b.CategoryID]
	if !ok {
		return fmt.Errorf("category %s: %w", b.CategoryID, core.ErrNotFound)
	}
	if !c.Eligible() {
		return &core.ValidationError{Field: "category_id", Reason: "category is not budgetable"}
	}
	s.budgets[budgetKey{b.CategoryID, b.Year, b.Month}] = b.Amount
	return nil
}

// EligibleShortfalls implements planner.BudgetStore.
func (s *Store) EligibleShortfalls(_ context.Context, year, month int) ([]core.BudgetShortfall, error) {
	first, next := core.MonthBounds(year, month)
	s.mu.Lock()
	defer s.mu.Unlock()

	actual := map[string]core.Money{}
	for _, t := range s.transactions {
		c, ok := s.categories[t.CategoryID]
		if !ok || t.Ignored || t.DatePosted.Before(first) || !t.DatePosted.Before(next) {
			continue
		}
		if t.Amount.Cents < 0 {
			actual[c.ID] = actual[c.ID].Add(t.Amount.Abs())
		}
	}

	var out []core.BudgetShortfall
	for key, amount := range s.budgets {
		c := s.categories[key.categoryID]
		if key.year != year || key.month != month || !c.Eligible() {
			continue
		}
		out = append(out, core.BudgetShortfall{CategoryID: c.ID, Name: c.Name, Budgeted: amount, Actual: actual[c.ID]})
	}
	slices.SortFunc(out, func(a, b core.BudgetShortfall) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.CategoryID, b.CategoryID))
	})
	return out, nil
}

func (s *Store) UpsertAccount(_ context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) RecordBalance(_ context.Context, b core.AccountBalance) error {
	if b.AsOf.IsEmpty() {
		return &core.ValidationError{Field: "as_of", Reason: "required"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[b.AccountID]; !ok {
		return fmt.Errorf("account %s: %w", b.AccountID, core.ErrNotFound)
	}
	if s.balances[b.AccountID] == nil {
		s.balances[b.AccountID] = map[string]core.Money{}
	}
	s.balances[b.AccountID][b.AsOf.String()] = b.Balance
	return nil
}

// LiquidBalanceTotal implements planner.AccountStore.
func (s *Store) LiquidBalanceTotal(_ context.Context) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total core.Money
	for id, a := range s.accounts {
		if !a.IsLiquid || len(s.balances[id]) == 0 {
			continue
		}
		latest := ""
		for asOf := range s.balances[id] {
			latest = max(latest, asOf)
		}
		total = total.Add(s.balances[id][latest])
	}
	return total, nil
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[t.ID] = t
	return nil
}

// MonthlyIncome implements planner.IncomeEstimator.
func (s *Store) MonthlyIncome(_ context.Context, year, month int) (core.Money, error) {
	first, next := core.MonthBounds(year, month)
	s.mu.Lock()
	defer s.mu.Unlock()

	var income, inflow core.Money
	for _, t := range s.transactions {
		if t.Ignored || t.Amount.Cents <= 0 || t.DatePosted.Before(first) || !t.DatePosted.Before(next) {
			continue
		}
		c, known := s.categories[t.CategoryID]
		if known && !c.AffectsCashflow {
			continue
		}
		inflow = inflow.Add(t.Amount)
		if known && c.IsIncome {
			income = income.Add(t.Amount)
		}
	}
	if income.IsPositive() {
		return income, nil
	}
	return inflow, nil
}

// EFTarget implements planner.EFTargetEstimator.
func (s *Store) EFTarget(_ context.Context, asOf core.Date, months int) (core.Money, error) {
	if months < 1 {
		return core.Money{}, fmt.Errorf("emergency fund months must be positive, got %d", months)
	}
	end, _ := core.MonthBounds(asOf.Year(), asOf.Month())
	start := core.Date{Time: end.Time.AddDate(0, -months, 0)}
	s.mu.Lock()
	defer s.mu.Unlock()

	var outflow core.Money
	for _, t := range s.transactions {
		if t.Ignored || t.Amount.Cents >= 0 || t.DatePosted.Before(start) || !t.DatePosted.Before(end) {
			continue
		}
		if c, known := s.categories[t.CategoryID]; known && !c.AffectsCashflow {
			continue
		}
		outflow = outflow.Add(t.Amount.Abs())
	}
	return outflow, nil
}
