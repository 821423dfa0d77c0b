package planner

import (
	"context"

	"cashplan/internal/core"
)

// BillRegistry lists registered schedules ordered by name.
type BillRegistry interface {
	ListBills(ctx context.Context) ([]core.BillSchedule, error)
}

// BudgetStore returns the shortfalls of eligible categories with a budget
// row for the month.
type BudgetStore interface {
	EligibleShortfalls(ctx context.Context, year, month int) ([]core.BudgetShortfall, error)
}

// AccountStore sums the latest balance of every liquid account.
type AccountStore interface {
	LiquidBalanceTotal(ctx context.Context) (core.Money, error)
}

type IncomeEstimator interface {
	MonthlyIncome(ctx context.Context, year, month int) (core.Money, error)
}

// EFTargetEstimator returns the outflow of the months full calendar months
// before asOf's month.
type EFTargetEstimator interface {
	EFTarget(ctx context.Context, asOf core.Date, months int) (core.Money, error)
}
