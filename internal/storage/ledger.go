package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashplan/internal/core"
	"cashplan/internal/ledger"
)

type ledgerRow struct {
	BillID      string `db:"bill_id"`
	OccurredAt  string `db:"occurred_at"`
	AmountCents int64  `db:"amount_cents"`
	Note        string `db:"note"`
}

type sumsRow struct {
	Contributed int64 `db:"contributed"`
	Paid        int64 `db:"paid"`
}

// InsertLedgerEntry appends a signed entry. A zero OccurredAt means now.
func (s *Store) InsertLedgerEntry(ctx context.Context, e core.LedgerEntry) error {
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bill_ledger (bill_id, occurred_at, amount_cents, note)
		VALUES (?, ?, ?, ?)`,
		e.BillID, formatTimestamp(at), e.Amount.Cents, e.Note)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	slog.InfoContext(ctx, "Ledger entry saved",
		"bill_id", e.BillID,
		"amount_cents", e.Amount.Cents,
		"note", e.Note)
	return nil
}

// Sums implements ledger.Reader.
func (s *Store) Sums(ctx context.Context, billID string, start, end core.Date) (ledger.Sums, error) {
	from, to := ledger.PeriodBounds(start, end)

	var row sumsRow
	err := s.db.GetContext(ctx, &row, `
		SELECT
		  COALESCE(SUM(CASE WHEN amount_cents > 0 THEN amount_cents ELSE 0 END), 0) AS contributed,
		  COALESCE(SUM(CASE WHEN amount_cents < 0 THEN -amount_cents ELSE 0 END), 0) AS paid
		FROM bill_ledger
		WHERE bill_id = ? AND occurred_at >= ? AND occurred_at <= ?`,
		billID, formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return ledger.Sums{}, fmt.Errorf("ledger sums: %w", err)
	}

	return ledger.Sums{
		Contributed: core.Money{Cents: row.Contributed},
		Paid:        core.Money{Cents: row.Paid},
	}, nil
}

// LedgerEntries lists the raw entries of a bill between two days, oldest first.
func (s *Store) LedgerEntries(ctx context.Context, billID string, start, end core.Date) ([]core.LedgerEntry, error) {
	from, to := ledger.PeriodBounds(start, end)

	var rows []ledgerRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT bill_id, occurred_at, amount_cents, note
		FROM bill_ledger
		WHERE bill_id = ? AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at, id`,
		billID, formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}

	entries := make([]core.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		at, err := parseTimestamp(r.OccurredAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, core.LedgerEntry{
			BillID:     r.BillID,
			OccurredAt: at,
			Amount:     core.Money{Cents: r.AmountCents},
			Note:       r.Note,
		})
	}
	return entries, nil
}
