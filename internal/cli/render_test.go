package cli

import (
	"strings"
	"testing"

	"cashplan/internal/core"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{123450, "1,234.50"},
		{100000000, "1,000,000.00"},
		{-98765, "-987.65"},
	}
	for _, tt := range tests {
		if got := FormatMoney(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("FormatMoney(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(33.333); got != "33.3%" {
		t.Errorf("FormatPercent() = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	if RenderTable(Table{}) != "" {
		t.Fatalf("empty table should render nothing")
	}

	out := RenderTable(Table{
		Title:   "BILLS",
		Headers: []string{"Bill", "Amount"},
		Rows:    [][]string{{"Rent", "1,400.00"}, {"Gym", "25.00"}},
	})
	for _, want := range []string{"BILLS", "Bill", "Amount", "Rent", "1,400.00", "Gym"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatVariance(t *testing.T) {
	if got := FormatVariance(core.Money{Cents: 28000}); got != "280.00" {
		t.Errorf("FormatVariance(under budget) = %q", got)
	}
	if got := FormatVariance(core.Money{Cents: -3000}); !strings.Contains(got, "-30.00") {
		t.Errorf("FormatVariance(overspent) = %q", got)
	}
}
