package planner

import (
	"fmt"
	"strings"

	"cashplan/internal/core"
)

// Config carries the tunables every planner call needs.
type Config struct {
	DueSoonDays    int
	PaidEpsilon    float64
	EFCapRate      float64
	EFTargetMonths int
	ReserveCushion core.Money
}

func DefaultConfig() Config {
	return Config{
		DueSoonDays:    14,
		PaidEpsilon:    1e-6,
		EFCapRate:      0.05,
		EFTargetMonths: 3,
		ReserveCushion: core.Money{Cents: 20000},
	}
}

// Validate reports every out of range value at once.
func (c Config) Validate() error {
	var errs []string
	if c.DueSoonDays < 1 || c.DueSoonDays > 60 {
		errs = append(errs, "due soon days must be between 1 and 60")
	}
	if c.PaidEpsilon < 0 {
		errs = append(errs, "paid epsilon cannot be negative")
	}
	if c.EFCapRate < 0 || c.EFCapRate > 1 {
		errs = append(errs, "emergency fund cap rate must be between 0 and 1")
	}
	if c.EFTargetMonths < 1 {
		errs = append(errs, "emergency fund target months must be at least 1")
	}
	if c.ReserveCushion.Cents < 0 {
		errs = append(errs, "reserve cushion cannot be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("planner configuration errors:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// DueSoonWindow resolves a per-call window: zero falls back to the
// configured value and the result is never below one day.
func (c Config) DueSoonWindow(override int) int {
	days := override
	if days == 0 {
		days = c.DueSoonDays
	}
	if days < 1 {
		days = 1
	}
	return days
}
