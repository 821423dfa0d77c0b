package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"cashplan/internal/cli"
	"cashplan/internal/core"
	"cashplan/internal/planner"
	"cashplan/internal/services"
)

var (
	flagReserve string
	flagYear    int
	flagMonth   int
)

var breakdownCmd = &cobra.Command{
	Use:   "breakdown AMOUNT",
	Short: "Allocate an inflow across due bills, budgets and the emergency fund",
	Args:  cobra.ExactArgs(1),
	RunE:  runBreakdown,
}

func init() {
	breakdownCmd.Flags().StringVar(&flagReserve, "reserve", "", "Reserve cushion kept aside (default from config)")
	breakdownCmd.Flags().IntVar(&flagDueSoonDays, "due-soon-days", 0, "Bills due within this many days are funded (default from config)")
	breakdownCmd.Flags().IntVar(&flagYear, "year", 0, "Budget year (default current)")
	breakdownCmd.Flags().IntVar(&flagMonth, "month", 0, "Budget month 1-12 (default current)")
	rootCmd.AddCommand(breakdownCmd)
}

// parseAmount reads a non-negative decimal amount such as "1500" or "99.95".
func parseAmount(name, s string) (core.Money, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.Money{}, fmt.Errorf("%s must be a non-negative amount, got %q", name, s)
	}
	m, err := core.ParseUnits(name, f)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w, got %q", err, s)
	}
	return m, nil
}

func runBreakdown(cmd *cobra.Command, args []string) error {
	amount, err := parseAmount("amount", args[0])
	if err != nil {
		return err
	}
	req := services.BreakdownRequest{
		Amount:      amount,
		DueSoonDays: flagDueSoonDays,
		Year:        flagYear,
		Month:       flagMonth,
	}
	if flagReserve != "" {
		cushion, err := parseAmount("--reserve", flagReserve)
		if err != nil {
			return err
		}
		req.ReserveCushion = &cushion
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	res, err := a.planner.Breakdown(cmd.Context(), req)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, planner.NewAllocationView(res))
	}

	rows := [][]string{{"Reserve", "", cli.FormatMoney(res.Reserve)}}
	for _, alloc := range slices.Concat(res.Bills, res.Budgets) {
		rows = append(rows, []string{string(alloc.Stage) + ": " + alloc.Label, alloc.Due.String(), cli.FormatMoney(alloc.Amount)})
	}
	if res.EF.IsPositive() {
		rows = append(rows, []string{"Emergency fund", "", cli.FormatMoney(res.EF)})
	}
	rows = append(rows, []string{"Unallocated", "", cli.FormatMoney(res.Summary.Unallocated)})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprint(out, cli.RenderTable(cli.Table{
		Title:   "BREAKDOWN  " + cli.FormatMoney(res.Input),
		Headers: []string{"To", "Due", "Amount"},
		Rows:    rows,
	}))
	return nil
}
