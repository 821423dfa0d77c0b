package storage

import (
	"context"
	"fmt"

	"cashplan/internal/core"
)

type incomeRow struct {
	Income int64 `db:"income_cents"`
	Inflow int64 `db:"inflow_cents"`
}

// InsertTransaction stores a posted transaction, replacing one with the same id.
func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, date_posted, amount_cents, description, category_id, ignored)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  date_posted = excluded.date_posted,
		  amount_cents = excluded.amount_cents,
		  description = excluded.description,
		  category_id = excluded.category_id,
		  ignored = excluded.ignored`,
		t.ID, t.DatePosted.Format(dateLayout), t.Amount.Cents, t.Description, nullString(t.CategoryID), t.Ignored)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// MonthlyIncome implements planner.IncomeEstimator. Inflows in income
// categories are preferred; when there are none every cash-flow inflow of the
// month counts.
func (s *Store) MonthlyIncome(ctx context.Context, year, month int) (core.Money, error) {
	first, next := core.MonthBounds(year, month)

	var row incomeRow
	err := s.db.GetContext(ctx, &row, `
		SELECT
		  COALESCE(SUM(CASE
		    WHEN COALESCE(c.is_income, 0) = 1 AND COALESCE(c.affects_cashflow, 1) = 1 AND t.amount_cents > 0
		    THEN t.amount_cents ELSE 0 END), 0) AS income_cents,
		  COALESCE(SUM(CASE
		    WHEN COALESCE(c.affects_cashflow, 1) = 1 AND t.amount_cents > 0
		    THEN t.amount_cents ELSE 0 END), 0) AS inflow_cents
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.ignored = 0
		  AND t.date_posted >= ?
		  AND t.date_posted < ?`,
		first.Format(dateLayout), next.Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("monthly income: %w", err)
	}

	if row.Income > 0 {
		return core.Money{Cents: row.Income}, nil
	}
	return core.Money{Cents: row.Inflow}, nil
}

// EFTarget implements planner.EFTargetEstimator: the cash-flow outflow of the
// given number of full calendar months before asOf's month.
func (s *Store) EFTarget(ctx context.Context, asOf core.Date, months int) (core.Money, error) {
	if months < 1 {
		return core.Money{}, fmt.Errorf("emergency fund months must be positive, got %d", months)
	}
	end, _ := core.MonthBounds(asOf.Year(), asOf.Month())
	start := core.Date{Time: end.Time.AddDate(0, -months, 0)}

	var outflow int64
	err := s.db.GetContext(ctx, &outflow, `
		SELECT COALESCE(SUM(CASE
		  WHEN COALESCE(c.affects_cashflow, 1) = 1 AND t.amount_cents < 0
		  THEN -t.amount_cents ELSE 0 END), 0)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.ignored = 0
		  AND t.date_posted >= ?
		  AND t.date_posted < ?`,
		start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return core.Money{}, fmt.Errorf("emergency fund target: %w", err)
	}
	return core.Money{Cents: outflow}, nil
}
