package main

import (
	"context"
	"os"
	"time"

	"cashplan/internal/amqp"
	"cashplan/internal/cli"
	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/metrics"
	"cashplan/internal/services"
)

// logPublisher stands in for the broker when AMQP_URL is unset.
type logPublisher struct {
	logger *log.Logger
}

func (p logPublisher) PublishBillDue(ctx context.Context, msg *amqp.BillDueMessage) error {
	p.logger.InfoContext(ctx, "Bill due soon",
		log.NewFields().
			WithBill(msg.BillID, msg.Name, msg.Due).
			WithAmount(msg.NeedCents).
			ToSlice()...)
	return nil
}

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentReminder, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	logger.Info("Starting reminder-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	metrics.Init()

	store, closeStore, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeStore()

	var publisher services.BillDuePublisher = logPublisher{logger: logger}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, reminders will only be logged", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled, reminders will only be logged")
	}

	processor := services.NewReminderProcessor(store, publisher, cfg.Planner())
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	run := func(now time.Time) {
		count, err := processor.ProcessDueSoon(ctx, core.DateOf(now.UTC()))
		if err != nil {
			logger.Error("Reminder processing failed", log.FieldError, err, "published", count)
			return
		}
		logger.Info("Reminder processing complete",
			"published", count,
			"next_check", now.Add(cfg.ReminderInterval).Format(time.RFC3339))
	}

	logger.Info("Reminder processor configured",
		"interval", cfg.ReminderInterval,
		"due_soon_days", cfg.DueSoonDays,
		"backend", cfg.DataBackend)

	run(time.Now())

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Reminder-worker stopped")
			return
		case now := <-ticker.C:
			run(now)
		}
	}
}
