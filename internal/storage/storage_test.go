package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashplan/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "cashplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func money(c int64) core.Money { return core.Money{Cents: c} }

func TestMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(path))

	require.NoError(t, RollbackMigrations(path, 1))
	v, _, err = MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
}

func TestBills_CRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rent := core.BillSchedule{
		ID: "rent", Name: "Rent", Amount: money(120000), Frequency: core.Monthly,
		DayOfMonth: core.IntPtr(1), StartDate: core.NewDate(2024, 1, 1),
	}
	gym := core.BillSchedule{ID: "gym", Name: "Gym", Amount: money(3500), Currency: "EUR", Frequency: core.Weekly, Weekday: core.IntPtr(0)}

	created, err := s.CreateBill(ctx, rent)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateBill(ctx, rent)
	require.NoError(t, err)
	assert.False(t, created, "duplicate id is ignored")

	_, err = s.CreateBill(ctx, gym)
	require.NoError(t, err)

	bills, err := s.ListBills(ctx)
	require.NoError(t, err)
	require.Len(t, bills, 2)
	assert.Equal(t, "gym", bills[0].ID, "ordered by name")
	assert.Equal(t, "EUR", bills[0].Currency)
	assert.Equal(t, 0, *bills[0].Weekday)
	assert.Nil(t, bills[0].DayOfMonth)

	got, err := s.GetBill(ctx, "rent")
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, core.NewDate(2024, 1, 1), got.StartDate)
	assert.True(t, got.EndDate.IsEmpty())
	assert.Equal(t, 1, *got.DayOfMonth)

	got.Amount = money(125000)
	got.EndDate = core.NewDate(2025, 12, 31)
	require.NoError(t, s.UpdateBill(ctx, got))
	got, err = s.GetBill(ctx, "rent")
	require.NoError(t, err)
	assert.Equal(t, money(125000), got.Amount)
	assert.Equal(t, core.NewDate(2025, 12, 31), got.EndDate)

	require.NoError(t, s.DeleteBill(ctx, "gym"))
	_, err = s.GetBill(ctx, "gym")
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.ErrorIs(t, s.DeleteBill(ctx, "gym"), core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateBill(ctx, gym), core.ErrNotFound)
}

func TestBills_RejectsInvalidSchedule(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateBill(context.Background(), core.BillSchedule{ID: "x", Name: "X", Amount: money(100), Frequency: core.Yearly})

	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "start_date", verr.Field)
}

func TestLedger_SumsAndEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateBill(ctx, core.BillSchedule{ID: "rent", Name: "Rent", Amount: money(100000), Frequency: core.Monthly, DayOfMonth: core.IntPtr(5)})
	require.NoError(t, err)

	ts := func(y, m, d, h, min, sec int) time.Time { return time.Date(y, time.Month(m), d, h, min, sec, 0, time.UTC) }
	for _, e := range []core.LedgerEntry{
		{BillID: "rent", OccurredAt: ts(2024, 5, 5, 0, 0, 0), Amount: money(30000), Note: "first"},
		{BillID: "rent", OccurredAt: ts(2024, 5, 20, 12, 0, 0), Amount: money(20000)},
		{BillID: "rent", OccurredAt: ts(2024, 6, 5, 23, 59, 59), Amount: money(-100000), Note: "paid"},
		{BillID: "rent", OccurredAt: ts(2024, 6, 6, 0, 0, 0), Amount: money(99900)},
		{BillID: "rent", OccurredAt: ts(2024, 5, 4, 23, 59, 59), Amount: money(99900)},
	} {
		require.NoError(t, s.InsertLedgerEntry(ctx, e))
	}

	sums, err := s.Sums(ctx, "rent", core.NewDate(2024, 5, 5), core.NewDate(2024, 6, 5))
	require.NoError(t, err)
	assert.Equal(t, money(50000), sums.Contributed)
	assert.Equal(t, money(100000), sums.Paid)

	entries, err := s.LedgerEntries(ctx, "rent", core.NewDate(2024, 5, 5), core.NewDate(2024, 6, 5))
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "first", entries[0].Note)
	assert.Equal(t, ts(2024, 6, 5, 23, 59, 59), entries[2].OccurredAt)

	empty, err := s.Sums(ctx, "other", core.NewDate(2024, 1, 1), core.NewDate(2024, 12, 31))
	require.NoError(t, err)
	assert.Zero(t, empty.Contributed.Cents)
	assert.Zero(t, empty.Paid.Cents)
}

func TestLedger_DeletedWithBill(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateBill(ctx, core.BillSchedule{ID: "tv", Name: "TV", Amount: money(1500), Frequency: core.Monthly, DayOfMonth: core.IntPtr(9)})
	require.NoError(t, err)
	require.NoError(t, s.InsertLedgerEntry(ctx, core.LedgerEntry{BillID: "tv", Amount: money(500)}))
	require.NoError(t, s.DeleteBill(ctx, "tv"))

	sums, err := s.Sums(ctx, "tv", core.NewDate(2000, 1, 1), core.NewDate(2100, 1, 1))
	require.NoError(t, err)
	assert.Zero(t, sums.Contributed.Cents)

	assert.Error(t, s.InsertLedgerEntry(ctx, core.LedgerEntry{BillID: "missing", Amount: money(1)}), "foreign key enforced")
}

func seedCashflow(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	for _, c := range []core.Category{
		{ID: "food", Name: "Food", AffectsCashflow: true, Budgetable: true},
		{ID: "fun", Name: "Fun", AffectsCashflow: true, Budgetable: true},
		{ID: "salary", Name: "Salary", AffectsCashflow: true, IsIncome: true},
		{ID: "transfer", Name: "Transfer", AffectsCashflow: false, Budgetable: true},
	} {
		require.NoError(t, s.UpsertCategory(ctx, c))
	}

	tx := func(id string, d core.Date, cents int64, cat string, ignored bool) core.Transaction {
		return core.Transaction{ID: id, DatePosted: d, Amount: money(cents), CategoryID: cat, Ignored: ignored}
	}
	for _, tr := range []core.Transaction{
		// June 2024
		tx("t1", core.NewDate(2024, 6, 3), -12000, "food", false),
		tx("t2", core.NewDate(2024, 6, 10), 2000, "food", false), // refund is not spend
		tx("t3", core.NewDate(2024, 6, 11), -50000, "food", true), // ignored
		tx("t4", core.NewDate(2024, 6, 1), 300000, "salary", false),
		tx("t5", core.NewDate(2024, 6, 15), -80000, "transfer", false),
		tx("t6", core.NewDate(2024, 7, 1), -9999, "food", false), // next month
		// March to May 2024 outflow
		tx("t7", core.NewDate(2024, 3, 1), -30000, "", false),
		tx("t8", core.NewDate(2024, 4, 30), -20000, "fun", false),
		tx("t9", core.NewDate(2024, 5, 31), -10000, "transfer", false), // not cash flow
		tx("t10", core.NewDate(2024, 2, 29), -99999, "fun", false),      // too old
	} {
		require.NoError(t, s.InsertTransaction(ctx, tr))
	}
}

func TestEligibleShortfalls(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCashflow(t, s)

	require.NoError(t, s.UpsertBudget(ctx, core.Budget{CategoryID: "food", Year: 2024, Month: 6, Amount: money(40000)}))
	require.NoError(t, s.UpsertBudget(ctx, core.Budget{CategoryID: "fun", Year: 2024, Month: 6, Amount: money(5000)}))
	require.NoError(t, s.UpsertBudget(ctx, core.Budget{CategoryID: "fun", Year: 2024, Month: 7, Amount: money(7000)}))

	var verr *core.ValidationError
	require.ErrorAs(t, s.UpsertBudget(ctx, core.Budget{CategoryID: "salary", Year: 2024, Month: 6, Amount: money(1)}), &verr)
	assert.ErrorIs(t, s.UpsertBudget(ctx, core.Budget{CategoryID: "nope", Year: 2024, Month: 6}), core.ErrNotFound)

	got, err := s.EligibleShortfalls(ctx, 2024, 6)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "food", got[0].CategoryID)
	assert.Equal(t, money(40000), got[0].Budgeted)
	assert.Equal(t, money(12000), got[0].Actual)
	assert.Equal(t, money(28000), got[0].Need())

	assert.Equal(t, "fun", got[1].CategoryID)
	assert.Zero(t, got[1].Actual.Cents)
	assert.Equal(t, money(5000), got[1].Need())

	// Upsert replaces the amount.
	require.NoError(t, s.UpsertBudget(ctx, core.Budget{CategoryID: "fun", Year: 2024, Month: 6, Amount: money(6000)}))
	got, err = s.EligibleShortfalls(ctx, 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, money(6000), got[1].Budgeted)
}

func TestMonthlyIncomeAndEFTarget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedCashflow(t, s)

	income, err := s.MonthlyIncome(ctx, 2024, 6)
	require.NoError(t, err)
	assert.Equal(t, money(300000), income, "income categories preferred over refunds")

	// No income category in May: every cash-flow inflow counts.
	require.NoError(t, s.InsertTransaction(ctx, core.Transaction{ID: "gift", DatePosted: core.NewDate(2024, 5, 2), Amount: money(4500)}))
	income, err = s.MonthlyIncome(ctx, 2024, 5)
	require.NoError(t, err)
	assert.Equal(t, money(4500), income)

	target, err := s.EFTarget(ctx, core.NewDate(2024, 6, 18), 3)
	require.NoError(t, err)
	assert.Equal(t, money(50000), target)

	_, err = s.EFTarget(ctx, core.NewDate(2024, 6, 18), 0)
	assert.Error(t, err)
}

func TestLiquidBalanceTotal(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertAccount(ctx, core.Account{ID: "checking", Name: "Checking", IsLiquid: true}))
	require.NoError(t, s.UpsertAccount(ctx, core.Account{ID: "savings", Name: "Savings", IsLiquid: true}))
	require.NoError(t, s.UpsertAccount(ctx, core.Account{ID: "brokerage", Name: "Brokerage"}))

	for _, b := range []core.AccountBalance{
		{AccountID: "checking", AsOf: core.NewDate(2024, 5, 1), Balance: money(100000)},
		{AccountID: "checking", AsOf: core.NewDate(2024, 6, 1), Balance: money(150000)},
		{AccountID: "savings", AsOf: core.NewDate(2024, 4, 1), Balance: money(500000)},
		{AccountID: "brokerage", AsOf: core.NewDate(2024, 6, 1), Balance: money(9000000)},
	} {
		require.NoError(t, s.RecordBalance(ctx, b))
	}

	total, err := s.LiquidBalanceTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, money(650000), total)

	require.NoError(t, s.RecordBalance(ctx, core.AccountBalance{AccountID: "checking", AsOf: core.NewDate(2024, 6, 1), Balance: money(140000)}))
	total, err = s.LiquidBalanceTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, money(640000), total)
}
