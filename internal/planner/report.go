package planner

import (
	"math"

	"cashplan/internal/core"
)

// OccurrenceView is the wire form of an Occurrence.
type OccurrenceView struct {
	BillID        string  `json:"bill_id"`
	Name          string  `json:"name"`
	Due           string  `json:"due"`
	PeriodStart   string  `json:"period_start"`
	Amount        float64 `json:"amount"`
	ProgressPct   float64 `json:"progress_pct"`
	Paid          bool    `json:"paid"`
	ContribSum    float64 `json:"contrib_sum"`
	PaidSum       float64 `json:"paid_sum"`
	DaysToDue     int     `json:"days_to_due"`
	DueSoon       bool    `json:"due_soon"`
	PriorityScore float64 `json:"priority_score"`
	Status        Status  `json:"status"`
}

type AllocationLine struct {
	To     string  `json:"to"`
	Name   string  `json:"name"`
	Due    string  `json:"due,omitempty"`
	Amount float64 `json:"amount"`
}

type AllocationsView struct {
	Bills   []AllocationLine `json:"bills"`
	Budgets []AllocationLine `json:"budgets"`
	EF      float64          `json:"ef"`
}

type SummaryView struct {
	ToBills     float64 `json:"to_bills"`
	ToBudgets   float64 `json:"to_budgets"`
	ToEF        float64 `json:"to_ef"`
	Unallocated float64 `json:"unallocated"`
}

type AllocationView struct {
	InputAmount float64         `json:"input_amount"`
	Reserve     float64         `json:"reserve"`
	Allocations AllocationsView `json:"allocations"`
	Summary     SummaryView     `json:"summary"`
}

func NewOccurrenceView(o Occurrence) OccurrenceView {
	return OccurrenceView{
		BillID:        o.BillID,
		Name:          o.Name,
		Due:           o.Due.String(),
		PeriodStart:   o.PeriodStart.String(),
		Amount:        o.Amount.Float(),
		ProgressPct:   roundTo(o.Progress*100, 2),
		Paid:          o.Paid,
		ContribSum:    o.Contributed.Float(),
		PaidSum:       o.PaidSum.Float(),
		DaysToDue:     o.DaysToDue,
		DueSoon:       o.DueSoon,
		PriorityScore: roundTo(o.PriorityScore, 4),
		Status:        o.Status,
	}
}

func NewOccurrenceViews(occ []Occurrence) []OccurrenceView {
	out := make([]OccurrenceView, 0, len(occ))
	for _, o := range occ {
		out = append(out, NewOccurrenceView(o))
	}
	return out
}

func NewAllocationView(r AllocationResult) AllocationView {
	return AllocationView{
		InputAmount: r.Input.Float(),
		Reserve:     r.Reserve.Float(),
		Allocations: AllocationsView{
			Bills:   allocationLines(r.Bills),
			Budgets: allocationLines(r.Budgets),
			EF:      r.EF.Float(),
		},
		Summary: SummaryView{
			ToBills:     r.Summary.ToBills.Float(),
			ToBudgets:   r.Summary.ToBudgets.Float(),
			ToEF:        r.Summary.ToEF.Float(),
			Unallocated: r.Summary.Unallocated.Float(),
		},
	}
}

func allocationLines(allocs []Allocation) []AllocationLine {
	lines := make([]AllocationLine, 0, len(allocs))
	for _, a := range allocs {
		prefix := "budget:"
		if a.Stage == StageBills {
			prefix = "bill:"
		}
		lines = append(lines, AllocationLine{
			To:     prefix + a.TargetID,
			Name:   a.Label,
			Due:    a.Due.String(),
			Amount: a.Amount.Float(),
		})
	}
	return lines
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// BudgetVsActualView is one eligible category's month against its budget.
type BudgetVsActualView struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Budgeted     float64 `json:"budgeted"`
	Actual       float64 `json:"actual"`
	Variance     float64 `json:"variance"`
}

func NewBudgetVsActualViews(rows []core.BudgetShortfall) []BudgetVsActualView {
	out := make([]BudgetVsActualView, 0, len(rows))
	for _, r := range rows {
		out = append(out, BudgetVsActualView{
			CategoryID:   r.CategoryID,
			CategoryName: r.Name,
			Budgeted:     r.Budgeted.Float(),
			Actual:       r.Actual.Float(),
			Variance:     r.Variance().Float(),
		})
	}
	return out
}

type EmergencyFundView struct {
	BaselineMonthlyOutflow float64 `json:"baseline_monthly_outflow"`
	Target                 float64 `json:"target"`
	Liquid                 float64 `json:"liquid"`
	FundedPct              float64 `json:"funded_pct"`
	MonthlyIncome          float64 `json:"monthly_income"`
	RecommendedContrib     float64 `json:"recommended_contribution"`
}

func NewEmergencyFundView(ef EmergencyFund) EmergencyFundView {
	return EmergencyFundView{
		BaselineMonthlyOutflow: ef.BaselineMonthlyOutflow.Float(),
		Target:                 ef.Target.Float(),
		Liquid:                 ef.Liquid.Float(),
		FundedPct:              roundTo(ef.FundedPct, 2),
		MonthlyIncome:          ef.MonthlyIncome.Float(),
		RecommendedContrib:     ef.Recommended.Float(),
	}
}
