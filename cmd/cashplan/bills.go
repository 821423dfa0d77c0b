package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cashplan/internal/cli"
	"cashplan/internal/core"
	"cashplan/internal/services"
)

var flagNote string

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "List bills and record contributions or payments",
}

var billsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered bills",
	Args:  cobra.NoArgs,
	RunE:  runBillsList,
}

var billsContributeCmd = &cobra.Command{
	Use:   "contribute BILL_ID AMOUNT",
	Short: "Set money aside toward a bill's current period",
	Args:  cobra.ExactArgs(2),
	RunE:  runBillsContribute,
}

var billsMarkPaidCmd = &cobra.Command{
	Use:   "mark-paid BILL_ID",
	Short: "Record the full payment of a bill's current period",
	Args:  cobra.ExactArgs(1),
	RunE:  runBillsMarkPaid,
}

func init() {
	billsContributeCmd.Flags().StringVar(&flagNote, "note", "", "Free-text note stored with the entry")
	billsCmd.AddCommand(billsListCmd, billsContributeCmd, billsMarkPaidCmd)
	rootCmd.AddCommand(billsCmd)
}

func describeSchedule(b core.BillSchedule) string {
	switch b.Frequency {
	case core.Weekly:
		if b.Weekday != nil {
			return "weekly, weekday " + strconv.Itoa(*b.Weekday)
		}
	case core.Monthly:
		if b.DayOfMonth != nil {
			return "monthly, day " + strconv.Itoa(*b.DayOfMonth)
		}
	case core.Yearly:
		return "yearly from " + b.StartDate.String()
	}
	return string(b.Frequency)
}

func runBillsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	bills, err := a.bills.ListBills(cmd.Context())
	if err != nil {
		return err
	}
	if flagJSON {
		type billJSON struct {
			ID       string  `json:"id"`
			Name     string  `json:"name"`
			Schedule string  `json:"schedule"`
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
		}
		out := make([]billJSON, 0, len(bills))
		for _, b := range bills {
			out = append(out, billJSON{b.ID, b.Name, describeSchedule(b), b.Amount.Float(), b.Currency})
		}
		return printJSON(cmd, out)
	}

	rows := make([][]string, 0, len(bills))
	for _, b := range bills {
		rows = append(rows, []string{b.ID, b.Name, describeSchedule(b), cli.FormatMoney(b.Amount) + " " + b.Currency})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   "BILLS",
		Headers: []string{"ID", "Name", "Schedule", "Amount"},
		Rows:    rows,
	}))
	return nil
}

func runBillsContribute(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount("amount", args[1])
	if err != nil {
		return err
	}
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := a.bills.Contribute(cmd.Context(), args[0], amount, flagNote); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s toward %s\n", cli.FormatMoney(amount), args[0])
	return nil
}

func runBillsMarkPaid(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	res, err := a.bills.MarkPaid(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, map[string]any{
			"already_paid": res.AlreadyPaid,
			"period_start": res.PeriodStart.String(),
			"due":          res.Due.String(),
		})
	}
	printMarkPaid(cmd, args[0], res)
	return nil
}

func printMarkPaid(cmd *cobra.Command, id string, res services.MarkPaidResult) {
	if res.AlreadyPaid {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is already paid for %s .. %s\n", id, res.PeriodStart, res.Due)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s marked paid for %s .. %s\n", id, res.PeriodStart, res.Due)
}
