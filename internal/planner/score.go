// Package planner scores bill occurrences and runs the waterfall that
// spreads an inflow over bills, budgets and the emergency fund.
package planner

import (
	"math"

	"cashplan/internal/core"
)

const (
	soonWeightFactor     = 0.6
	progressWeightFactor = 0.4
)

// Progress is the funded fraction of amount. A paid occurrence is complete.
func Progress(amount, contributed core.Money, paid bool) float64 {
	if paid {
		return 1.0
	}
	if amount.Cents <= 0 {
		return 0
	}
	return clamp01(float64(contributed.Cents) / float64(amount.Cents))
}

// SoonWeight grows linearly from 0 at the edge of the due-soon window to 1 on
// the due date. Past-due occurrences weigh 1.
func SoonWeight(daysToDue, dueSoonDays int) float64 {
	if dueSoonDays < 1 || daysToDue > dueSoonDays {
		return 0
	}
	return math.Max(0, 1-float64(max(daysToDue, 0))/float64(dueSoonDays))
}

// Score combines urgency and the missing share of the amount into [0,1].
func Score(soonWeight, progress float64) float64 {
	return clamp01(soonWeightFactor*soonWeight + progressWeightFactor*(1-progress))
}

func DueSoon(daysToDue, dueSoonDays int) bool {
	return daysToDue <= dueSoonDays
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
