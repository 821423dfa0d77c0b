package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cashplan/internal/core"
)

type categoryRow struct {
	ID              string `db:"id"`
	Name            string `db:"name"`
	AffectsCashflow bool   `db:"affects_cashflow"`
	Budgetable      bool   `db:"budgetable"`
	IsIncome        bool   `db:"is_income"`
}

func (r categoryRow) toDomain() core.Category {
	return core.Category{
		ID:              r.ID,
		Name:            r.Name,
		AffectsCashflow: r.AffectsCashflow,
		Budgetable:      r.Budgetable,
		IsIncome:        r.IsIncome,
	}
}

type shortfallRow struct {
	CategoryID    string `db:"category_id"`
	Name          string `db:"name"`
	BudgetedCents int64  `db:"budgeted_cents"`
	ActualCents   int64  `db:"actual_cents"`
}

func (s *Store) UpsertCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO categories (id, name, affects_cashflow, budgetable, is_income)
		VALUES (:id, :name, :affects_cashflow, :budgetable, :is_income)
		ON CONFLICT (id) DO UPDATE SET
		  name = excluded.name,
		  affects_cashflow = excluded.affects_cashflow,
		  budgetable = excluded.budgetable,
		  is_income = excluded.is_income`,
		categoryRow{
			ID:              c.ID,
			Name:            c.Name,
			AffectsCashflow: c.AffectsCashflow,
			Budgetable:      c.Budgetable,
			IsIncome:        c.IsIncome,
		})
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var row categoryRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, affects_cashflow, budgetable, is_income
		FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return row.toDomain(), nil
}

// UpsertBudget sets the budget of a category for one month. Categories that
// do not affect cash flow or are not budgetable are rejected.
func (s *Store) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	cat, err := s.GetCategory(ctx, b.CategoryID)
	if err != nil {
		return err
	}
	if !cat.Eligible() {
		return &core.ValidationError{Field: "category_id", Reason: "category is not budgetable"}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO budgets (category_id, year, month, amount_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (category_id, year, month) DO UPDATE SET amount_cents = excluded.amount_cents`,
		b.CategoryID, b.Year, b.Month, b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

// EligibleShortfalls returns budgeted vs actual spend of every eligible
// category with a budget row for the month, ordered by name. Actual spend is
// the magnitude of outflow; inflow such as refunds is not spend. Flagged
// transactions are ignored.
func (s *Store) EligibleShortfalls(ctx context.Context, year, month int) ([]core.BudgetShortfall, error) {
	first, next := core.MonthBounds(year, month)

	var rows []shortfallRow
	err := s.db.SelectContext(ctx, &rows, `
		WITH actual AS (
		  SELECT t.category_id, SUM(-t.amount_cents) AS actual_cents
		  FROM transactions t
		  WHERE t.ignored = 0
		    AND t.amount_cents < 0
		    AND t.date_posted >= ?
		    AND t.date_posted < ?
		  GROUP BY t.category_id
		)
		SELECT c.id AS category_id, c.name, b.amount_cents AS budgeted_cents,
		       COALESCE(a.actual_cents, 0) AS actual_cents
		FROM budgets b
		JOIN categories c ON c.id = b.category_id
		LEFT JOIN actual a ON a.category_id = b.category_id
		WHERE b.year = ? AND b.month = ?
		  AND c.affects_cashflow = 1 AND c.budgetable = 1
		ORDER BY c.name, c.id`,
		first.Format(dateLayout), next.Format(dateLayout), year, month)
	if err != nil {
		return nil, fmt.Errorf("eligible shortfalls: %w", err)
	}

	out := make([]core.BudgetShortfall, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.BudgetShortfall{
			CategoryID: r.CategoryID,
			Name:       r.Name,
			Budgeted:   core.Money{Cents: r.BudgetedCents},
			Actual:     core.Money{Cents: r.ActualCents},
		})
	}
	return out, nil
}
