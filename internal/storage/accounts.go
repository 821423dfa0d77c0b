package storage

import (
	"context"
	"fmt"

	"cashplan/internal/core"
)

func (s *Store) UpsertAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, is_liquid, currency)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
		  name = excluded.name,
		  is_liquid = excluded.is_liquid,
		  currency = excluded.currency`,
		a.ID, a.Name, a.IsLiquid, currencyOrDefault(a.Currency))
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

// RecordBalance stores the balance of an account on a day, replacing an
// earlier observation for the same day.
func (s *Store) RecordBalance(ctx context.Context, b core.AccountBalance) error {
	if b.AsOf.IsEmpty() {
		return &core.ValidationError{Field: "as_of", Reason: "required"}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_balances (account_id, as_of, balance_cents)
		VALUES (?, ?, ?)
		ON CONFLICT (account_id, as_of) DO UPDATE SET balance_cents = excluded.balance_cents`,
		b.AccountID, b.AsOf.Format(dateLayout), b.Balance.Cents)
	if err != nil {
		return fmt.Errorf("record balance: %w", err)
	}
	return nil
}

// LiquidBalanceTotal implements planner.AccountStore.
func (s *Store) LiquidBalanceTotal(ctx context.Context) (core.Money, error) {
	var total int64
	err := s.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(ab.balance_cents), 0)
		FROM account_balances ab
		JOIN accounts a ON a.id = ab.account_id
		WHERE a.is_liquid = 1
		  AND ab.as_of = (
		    SELECT MAX(latest.as_of) FROM account_balances latest
		    WHERE latest.account_id = ab.account_id
		  )`)
	if err != nil {
		return core.Money{}, fmt.Errorf("liquid balance total: %w", err)
	}
	return core.Money{Cents: total}, nil
}
