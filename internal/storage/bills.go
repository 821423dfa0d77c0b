package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cashplan/internal/core"
)

type billRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	AmountCents int64          `db:"amount_cents"`
	Currency    string         `db:"currency"`
	Frequency   string         `db:"frequency"`
	Weekday     sql.NullInt64  `db:"weekday"`
	DayOfMonth  sql.NullInt64  `db:"day_of_month"`
	StartDate   sql.NullString `db:"start_date"`
	EndDate     sql.NullString `db:"end_date"`
}

const billColumns = `id, name, amount_cents, currency, frequency, weekday, day_of_month, start_date, end_date`

func (r billRow) toDomain() (core.BillSchedule, error) {
	start, err := parseNullDate(r.StartDate)
	if err != nil {
		return core.BillSchedule{}, fmt.Errorf("bill %s start date: %w", r.ID, err)
	}
	end, err := parseNullDate(r.EndDate)
	if err != nil {
		return core.BillSchedule{}, fmt.Errorf("bill %s end date: %w", r.ID, err)
	}
	return core.BillSchedule{
		ID:         r.ID,
		Name:       r.Name,
		Amount:     core.Money{Cents: r.AmountCents},
		Currency:   r.Currency,
		Frequency:  core.Frequency(r.Frequency),
		Weekday:    intPtr(r.Weekday),
		DayOfMonth: intPtr(r.DayOfMonth),
		StartDate:  start,
		EndDate:    end,
	}, nil
}

func currencyOrDefault(c string) string {
	if c == "" {
		return "USD"
	}
	return c
}

// CreateBill registers a schedule. An existing id is left untouched and
// reported with created=false.
func (s *Store) CreateBill(ctx context.Context, b core.BillSchedule) (bool, error) {
	if err := b.Validate(); err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bills (`+billColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, b.Name, b.Amount.Cents, currencyOrDefault(b.Currency), string(b.Frequency),
		nullInt(b.Weekday), nullInt(b.DayOfMonth), formatDate(b.StartDate), formatDate(b.EndDate))
	if err != nil {
		return false, fmt.Errorf("insert bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert bill rows affected: %w", err)
	}

	created := n == 1
	slog.InfoContext(ctx, "Bill saved to SQLite",
		"bill_id", b.ID,
		"frequency", b.Frequency,
		"amount_cents", b.Amount.Cents,
		"created", created)
	return created, nil
}

func (s *Store) GetBill(ctx context.Context, id string) (core.BillSchedule, error) {
	var row billRow
	err := s.db.GetContext(ctx, &row, `SELECT `+billColumns+` FROM bills WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BillSchedule{}, fmt.Errorf("bill %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.BillSchedule{}, fmt.Errorf("get bill: %w", err)
	}
	return row.toDomain()
}

// ListBills returns every schedule ordered by name.
func (s *Store) ListBills(ctx context.Context) ([]core.BillSchedule, error) {
	var rows []billRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+billColumns+` FROM bills ORDER BY name, id`); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	bills := make([]core.BillSchedule, 0, len(rows))
	for _, r := range rows {
		b, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, nil
}

// UpdateBill replaces every field of an existing schedule.
func (s *Store) UpdateBill(ctx context.Context, b core.BillSchedule) error {
	if err := b.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bills
		SET name = ?, amount_cents = ?, currency = ?, frequency = ?, weekday = ?,
		    day_of_month = ?, start_date = ?, end_date = ?
		WHERE id = ?`,
		b.Name, b.Amount.Cents, currencyOrDefault(b.Currency), string(b.Frequency), nullInt(b.Weekday),
		nullInt(b.DayOfMonth), formatDate(b.StartDate), formatDate(b.EndDate), b.ID)
	if err != nil {
		return fmt.Errorf("update bill: %w", err)
	}
	return requireAffected(res, "bill", b.ID)
}

// DeleteBill removes a schedule together with its ledger.
func (s *Store) DeleteBill(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	if err := requireAffected(res, "bill", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Bill deleted", "bill_id", id)
	return nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s rows affected: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}
