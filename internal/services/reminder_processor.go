package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"cashplan/internal/amqp"
	"cashplan/internal/core"
	"cashplan/internal/ledger"
	"cashplan/internal/log"
	"cashplan/internal/metrics"
	"cashplan/internal/planner"
)

// BillDuePublisher delivers reminders; *amqp.Client implements it.
type BillDuePublisher interface {
	PublishBillDue(ctx context.Context, msg *amqp.BillDueMessage) error
}

type ReminderStore interface {
	planner.BillRegistry
	ledger.Reader
}

// ReminderProcessor publishes one reminder per unpaid bill occurrence that
// enters the due-soon window. Occurrences already announced by this process
// are not published again.
type ReminderProcessor struct {
	store     ReminderStore
	publisher BillDuePublisher
	cfg       planner.Config

	mu   sync.Mutex
	sent map[string]core.Date // dedup key -> due date
}

func NewReminderProcessor(store ReminderStore, publisher BillDuePublisher, cfg planner.Config) *ReminderProcessor {
	return &ReminderProcessor{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		sent:      make(map[string]core.Date),
	}
}

// ProcessDueSoon publishes reminders for occurrences due in
// [today, today+DueSoonDays] and returns how many were published. Publish
// failures do not stop the run; they are joined into the returned error.
func (p *ReminderProcessor) ProcessDueSoon(ctx context.Context, today core.Date) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("reminder processor not properly initialized")
	}

	window := p.cfg.DueSoonWindow(0)
	bills, err := p.store.ListBills(ctx)
	if err != nil {
		return 0, fmt.Errorf("list bills: %w", err)
	}
	occ, err := planner.BuildOccurrences(ctx, bills, p.store, today, today.AddDays(window), today, window, p.cfg)
	if err != nil {
		return 0, fmt.Errorf("build occurrences: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.prune(today)

	slog.InfoContext(ctx, "Processing bill reminders",
		log.FieldComponent, log.ComponentReminder,
		"occurrences", len(occ),
		"window_days", window,
		"processing_date", today.String())

	published := 0
	seenBill := make(map[string]bool)
	var errs []error
	for _, o := range earliestFirst(occ) {
		if o.Paid || seenBill[o.BillID] {
			continue
		}
		seenBill[o.BillID] = true

		msg := amqp.NewBillDueMessage(o.BillID, o.Name, o.Due, o.Amount, o.Need(), o.DaysToDue)
		key := msg.DedupKey()
		if _, done := p.sent[key]; done {
			metrics.IncReminder(metrics.ResultSkipped)
			continue
		}

		if err := p.publisher.PublishBillDue(ctx, msg); err != nil {
			metrics.IncReminder(metrics.ResultError)
			slog.ErrorContext(ctx, "Failed to publish bill reminder",
				log.FieldComponent, log.ComponentReminder,
				log.FieldBillID, o.BillID,
				log.FieldDueDate, o.Due.String(),
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("bill %s due %s: %w", o.BillID, o.Due, err))
			continue
		}
		p.sent[key] = o.Due
		published++
		metrics.IncReminder(metrics.ResultSuccess)
	}

	slog.InfoContext(ctx, "Bill reminder processing complete",
		log.FieldComponent, log.ComponentReminder,
		"published", published,
		"failed", len(errs))
	return published, errors.Join(errs...)
}

// earliestFirst orders occurrences by due date so the nearest one of each
// bill is announced.
func earliestFirst(occ []planner.Occurrence) []planner.Occurrence {
	out := slices.Clone(occ)
	slices.SortStableFunc(out, func(a, b planner.Occurrence) int { return a.Due.Compare(b.Due.Time) })
	return out
}

// prune forgets reminders for occurrences already past.
func (p *ReminderProcessor) prune(today core.Date) {
	for key, due := range p.sent {
		if due.Before(today) {
			delete(p.sent, key)
		}
	}
}
