package memory

import (
	"context"
	"fmt"

	"cashplan/internal/core"
)

// Demo returns a store seeded with a household around today: a few bills with
// partial contributions, two budgets, liquid accounts and three months of
// transactions.
func Demo(ctx context.Context, today core.Date) (*Store, error) {
	s := New()
	first, _ := core.MonthBounds(today.Year(), today.Month())
	m := func(c int64) core.Money { return core.Money{Cents: c} }

	bills := []core.BillSchedule{
		{ID: "rent", Name: "Rent", Amount: m(140000), Frequency: core.Monthly, DayOfMonth: core.IntPtr(1)},
		{ID: "power", Name: "Electricity", Amount: m(9500), Frequency: core.Monthly, DayOfMonth: core.IntPtr(today.AddDays(6).Day())},
		{ID: "gym", Name: "Gym", Amount: m(2500), Frequency: core.Weekly, Weekday: core.IntPtr(today.AddDays(2).MondayWeekday())},
		{ID: "insurance", Name: "Car insurance", Amount: m(62000), Frequency: core.Yearly, StartDate: today.AddDays(10)},
	}
	for _, b := range bills {
		if _, err := s.CreateBill(ctx, b); err != nil {
			return nil, fmt.Errorf("seed bill %s: %w", b.ID, err)
		}
	}
	if err := s.InsertLedgerEntry(ctx, core.LedgerEntry{BillID: "insurance", OccurredAt: today.Time, Amount: m(20000), Note: "monthly set-aside"}); err != nil {
		return nil, err
	}
	if err := s.InsertLedgerEntry(ctx, core.LedgerEntry{BillID: "power", OccurredAt: today.Time, Amount: m(3000)}); err != nil {
		return nil, err
	}

	for _, c := range []core.Category{
		{ID: "groceries", Name: "Groceries", AffectsCashflow: true, Budgetable: true},
		{ID: "dining", Name: "Dining out", AffectsCashflow: true, Budgetable: true},
		{ID: "salary", Name: "Salary", AffectsCashflow: true, IsIncome: true},
	} {
		if err := s.UpsertCategory(ctx, c); err != nil {
			return nil, err
		}
	}
	for _, b := range []core.Budget{
		{CategoryID: "groceries", Year: today.Year(), Month: today.Month(), Amount: m(60000)},
		{CategoryID: "dining", Year: today.Year(), Month: today.Month(), Amount: m(15000)},
	} {
		if err := s.UpsertBudget(ctx, b); err != nil {
			return nil, err
		}
	}

	if err := s.UpsertAccount(ctx, core.Account{ID: "checking", Name: "Checking", IsLiquid: true}); err != nil {
		return nil, err
	}
	if err := s.RecordBalance(ctx, core.AccountBalance{AccountID: "checking", AsOf: today, Balance: m(450000)}); err != nil {
		return nil, err
	}

	txs := []core.Transaction{
		{ID: "salary-0", DatePosted: first, Amount: m(420000), CategoryID: "salary"},
		{ID: "groceries-0", DatePosted: first, Amount: m(-21000), CategoryID: "groceries"},
		{ID: "dining-0", DatePosted: first, Amount: m(-4500), CategoryID: "dining"},
	}
	for i := 1; i <= 3; i++ {
		month := core.Date{Time: first.Time.AddDate(0, -i, 0)}
		txs = append(txs,
			core.Transaction{ID: fmt.Sprintf("salary-%d", i), DatePosted: month, Amount: m(420000), CategoryID: "salary"},
			core.Transaction{ID: fmt.Sprintf("spend-%d", i), DatePosted: month.AddDays(3), Amount: m(-310000)},
		)
	}
	for _, t := range txs {
		if err := s.InsertTransaction(ctx, t); err != nil {
			return nil, err
		}
	}
	return s, nil
}
