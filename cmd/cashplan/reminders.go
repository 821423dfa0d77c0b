package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"cashplan/internal/amqp"
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Work with bill due reminders",
}

var remindersListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print bill due reminders from the broker until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runRemindersListen,
}

func init() {
	remindersCmd.AddCommand(remindersListenCmd)
	rootCmd.AddCommand(remindersCmd)
}

func runRemindersListen(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is not set")
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	logger.Info("Listening for bill due reminders", "queue", cfg.AMQPQueue)
	out := cmd.OutOrStdout()
	err = client.ConsumeBillDue(cmd.Context(), func(_ context.Context, msg *amqp.BillDueMessage) error {
		_, err := fmt.Fprintf(out, "%s  %-24s due %s in %d days, %d.%02d still needed\n",
			msg.Timestamp.Format("15:04:05"), msg.Name, msg.Due, msg.DaysToDue,
			msg.NeedCents/100, msg.NeedCents%100)
		return err
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
