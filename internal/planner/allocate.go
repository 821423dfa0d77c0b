package planner

import (
	"math"
	"slices"

	"cashplan/internal/core"
	"cashplan/internal/ledger"
)

type Stage string

const (
	StageBills   Stage = "bills"
	StageBudgets Stage = "budgets"
	StageEF      Stage = "ef"
)

// BillCandidate is a bill evaluated against its current period.
type BillCandidate struct {
	BillID      string
	Name        string
	Amount      core.Money
	Due         core.Date
	Contributed core.Money
	PaidSum     core.Money
}

// AllocationInput holds every figure the waterfall needs. It is gathered
// before Allocate runs; the engine itself performs no lookups.
type AllocationInput struct {
	Inflow         core.Money
	ReserveCushion core.Money
	DueSoonDays    int
	Today          core.Date
	Bills          []BillCandidate
	Budgets        []core.BudgetShortfall
	EFNeed         core.Money
	EFCap          core.Money
}

type Allocation struct {
	Stage    Stage
	TargetID string
	Label    string
	Due      core.Date // bills only
	Amount   core.Money
}

type Summary struct {
	ToBills     core.Money
	ToBudgets   core.Money
	ToEF        core.Money
	Unallocated core.Money
}

type AllocationResult struct {
	Input   core.Money
	Reserve core.Money
	Bills   []Allocation
	Budgets []Allocation
	EF      core.Money
	Summary Summary
}

// Total is everything accounted for: reserve, allocations and leftover.
func (r AllocationResult) Total() core.Money {
	return r.Reserve.
		Add(r.Summary.ToBills).
		Add(r.Summary.ToBudgets).
		Add(r.Summary.ToEF).
		Add(r.Summary.Unallocated)
}

// stage spends from remaining and returns what is left with its allocations.
type stage func(remaining core.Money) (core.Money, []Allocation)

type need struct {
	id     string
	label  string
	due    core.Date
	amount core.Money
	score  float64
}

// Allocate distributes the inflow across bills due soon, budget shortfalls and
// the emergency fund, in that order. The reserve is set aside first and never
// spent. Stages do not revisit earlier ones.
func Allocate(in AllocationInput, cfg Config) AllocationResult {
	inflow := core.MaxMoney(in.Inflow, core.Money{})
	cushion := core.MaxMoney(in.ReserveCushion, core.Money{})
	reserve := core.MinMoney(cushion, inflow)

	res := AllocationResult{Input: inflow, Reserve: reserve}
	remaining := inflow.Sub(reserve)

	stages := []struct {
		kind Stage
		run  stage
	}{
		{StageBills, billStage(in, cfg)},
		{StageBudgets, budgetStage(in.Budgets)},
		{StageEF, efStage(in.EFNeed, in.EFCap)},
	}
	for _, s := range stages {
		var allocs []Allocation
		remaining, allocs = s.run(remaining)
		total := sumAllocations(allocs)
		switch s.kind {
		case StageBills:
			res.Bills = allocs
			res.Summary.ToBills = total
		case StageBudgets:
			res.Budgets = allocs
			res.Summary.ToBudgets = total
		case StageEF:
			res.EF = total
			res.Summary.ToEF = total
		}
	}
	res.Summary.Unallocated = remaining
	return res
}

// billNeeds selects unpaid bills due inside [today, today+window] with money
// still missing, ranked by priority score.
func billNeeds(in AllocationInput, cfg Config) []need {
	window := cfg.DueSoonWindow(in.DueSoonDays)
	horizon := in.Today.AddDays(window)

	var needs []need
	for _, c := range in.Bills {
		if c.Due.Before(in.Today) || c.Due.After(horizon) {
			continue
		}
		if ledger.IsPaid(c.Amount, c.PaidSum, cfg.PaidEpsilon) {
			continue
		}
		missing := c.Amount.Sub(c.Contributed)
		if !missing.IsPositive() {
			continue
		}
		days := in.Today.DaysUntil(c.Due)
		needs = append(needs, need{
			id:     c.BillID,
			label:  c.Name,
			due:    c.Due,
			amount: missing,
			score:  Score(SoonWeight(days, window), Progress(c.Amount, c.Contributed, false)),
		})
	}
	slices.SortStableFunc(needs, func(a, b need) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	return needs
}

func billStage(in AllocationInput, cfg Config) stage {
	return func(remaining core.Money) (core.Money, []Allocation) {
		return greedy(StageBills, billNeeds(in, cfg), remaining)
	}
}

func budgetStage(shortfalls []core.BudgetShortfall) stage {
	return func(remaining core.Money) (core.Money, []Allocation) {
		var needs []need
		for _, s := range shortfalls {
			if n := s.Need(); n.IsPositive() {
				needs = append(needs, need{id: s.CategoryID, label: s.Name, amount: n})
			}
		}
		slices.SortStableFunc(needs, func(a, b need) int {
			switch {
			case a.amount.Cents > b.amount.Cents:
				return -1
			case a.amount.Cents < b.amount.Cents:
				return 1
			}
			return 0
		})
		return greedy(StageBudgets, needs, remaining)
	}
}

func efStage(efNeed, efCap core.Money) stage {
	return func(remaining core.Money) (core.Money, []Allocation) {
		want := core.MinMoney(core.MaxMoney(efCap, core.Money{}), core.MaxMoney(efNeed, core.Money{}))
		take := core.MinMoney(remaining, want)
		if !take.IsPositive() {
			return remaining, nil
		}
		return remaining.Sub(take), []Allocation{{Stage: StageEF, TargetID: "ef", Label: "Emergency fund", Amount: take}}
	}
}

func greedy(kind Stage, needs []need, remaining core.Money) (core.Money, []Allocation) {
	var out []Allocation
	for _, n := range needs {
		if !remaining.IsPositive() {
			break
		}
		take := core.MinMoney(n.amount, remaining)
		if !take.IsPositive() {
			continue
		}
		out = append(out, Allocation{Stage: kind, TargetID: n.id, Label: n.label, Due: n.due, Amount: take})
		remaining = remaining.Sub(take)
	}
	return remaining, out
}

func sumAllocations(allocs []Allocation) core.Money {
	var total core.Money
	for _, a := range allocs {
		total = total.Add(a.Amount)
	}
	return total
}

// EFCap is the share of monthly income the emergency fund may take from one
// inflow, rounded to the cent.
func EFCap(monthlyIncome core.Money, rate float64) core.Money {
	if monthlyIncome.Cents <= 0 || rate <= 0 {
		return core.Money{}
	}
	return core.Money{Cents: int64(math.Round(float64(monthlyIncome.Cents) * rate))}
}

// EFNeed is how far the liquid balance is below the target.
func EFNeed(target, liquid core.Money) core.Money {
	return core.MaxMoney(core.Money{}, target.Sub(liquid))
}
