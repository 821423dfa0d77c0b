package planner

import "cashplan/internal/core"

// EmergencyFund summarises how far liquid savings cover the target and what
// one month's contribution should be.
type EmergencyFund struct {
	BaselineMonthlyOutflow core.Money
	Target                 core.Money
	Liquid                 core.Money
	FundedPct              float64
	MonthlyIncome          core.Money
	Recommended            core.Money
}

// NewEmergencyFund derives the overview from the target outflow over
// cfg.EFTargetMonths months, the liquid total and the month's income.
func NewEmergencyFund(target, liquid, monthlyIncome core.Money, cfg Config) EmergencyFund {
	target = core.MaxMoney(target, core.Money{})
	months := max(cfg.EFTargetMonths, 1)

	funded := 100.0
	if target.IsPositive() {
		funded = min(100, liquid.Float()/target.Float()*100)
	}

	return EmergencyFund{
		BaselineMonthlyOutflow: core.FromFloat(target.Float() / float64(months)),
		Target:                 target,
		Liquid:                 liquid,
		FundedPct:              max(funded, 0),
		MonthlyIncome:          monthlyIncome,
		Recommended:            core.MinMoney(EFCap(monthlyIncome, cfg.EFCapRate), EFNeed(target, liquid)),
	}
}
