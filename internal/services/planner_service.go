package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"cashplan/internal/cache"
	"cashplan/internal/core"
	"cashplan/internal/ledger"
	"cashplan/internal/log"
	"cashplan/internal/metrics"
	"cashplan/internal/planner"
	"cashplan/internal/recurrence"
)

// PlannerStore is every read the planner needs. Both the SQLite and the
// in-memory stores satisfy it.
type PlannerStore interface {
	planner.BillRegistry
	ledger.Reader
	planner.BudgetStore
	planner.AccountStore
	planner.IncomeEstimator
	planner.EFTargetEstimator
}

// BreakdownRequest describes one inflow to allocate. Nil or zero fields fall
// back to the configured defaults and the current month.
type BreakdownRequest struct {
	Amount         core.Money
	ReserveCushion *core.Money
	DueSoonDays    int
	Year           int
	Month          int
}

func (r BreakdownRequest) Validate() error {
	switch {
	case r.Amount.Cents < 0:
		return &core.ValidationError{Field: "amount", Reason: "must not be negative"}
	case r.ReserveCushion != nil && r.ReserveCushion.Cents < 0:
		return &core.ValidationError{Field: "reserve_cushion", Reason: "must not be negative"}
	case r.DueSoonDays != 0 && (r.DueSoonDays < 1 || r.DueSoonDays > 60):
		return &core.ValidationError{Field: "due_soon_days", Reason: "must be between 1 and 60"}
	case r.Month != 0 && (r.Month < 1 || r.Month > 12):
		return &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	case r.Year < 0:
		return &core.ValidationError{Field: "year", Reason: "must not be negative"}
	}
	return nil
}

// PlannerService gathers snapshots from the store and runs the planner over
// them.
type PlannerService struct {
	store   PlannerStore
	cfg     planner.Config
	efCache cache.Cache[planner.EmergencyFund]
	now     func() time.Time
}

// NewPlannerService builds the service. A nil efCache disables caching of
// the emergency-fund overview.
func NewPlannerService(store PlannerStore, cfg planner.Config, efCache cache.Cache[planner.EmergencyFund]) *PlannerService {
	return &PlannerService{store: store, cfg: cfg, efCache: efCache, now: time.Now}
}

func (s *PlannerService) today() core.Date {
	return core.DateOf(s.now().UTC())
}

func (s *PlannerService) Config() planner.Config {
	return s.cfg
}

// Occurrences lists every bill occurrence due inside [from, to].
func (s *PlannerService) Occurrences(ctx context.Context, from, to core.Date, dueSoonDays int) ([]planner.Occurrence, error) {
	if to.Before(from) {
		return nil, &core.ValidationError{Field: "to", Reason: "must not precede from"}
	}
	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return planner.BuildOccurrences(ctx, bills, s.store, from, to, s.today(), dueSoonDays, s.cfg)
}

// snapshot holds the figures one breakdown reads. Each read is independent;
// a write landing between two of them can only shift the figures it touches.
type snapshot struct {
	bills   []core.BillSchedule
	budgets []core.BudgetShortfall
	liquid  core.Money
	income  core.Money
	target  core.Money
}

func (s *PlannerService) snapshot(ctx context.Context, today core.Date, year, month int) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		bills, err := s.store.ListBills(gctx)
		if err != nil {
			return fmt.Errorf("list bills: %w", err)
		}
		snap.bills = bills
		return nil
	})
	g.Go(func() error {
		budgets, err := s.store.EligibleShortfalls(gctx, year, month)
		if err != nil {
			return fmt.Errorf("budget shortfalls %04d-%02d: %w", year, month, err)
		}
		snap.budgets = budgets
		return nil
	})
	g.Go(func() error {
		liquid, err := s.store.LiquidBalanceTotal(gctx)
		if err != nil {
			return fmt.Errorf("liquid balance: %w", err)
		}
		snap.liquid = liquid
		return nil
	})
	g.Go(func() error {
		income, err := s.store.MonthlyIncome(gctx, today.Year(), today.Month())
		if err != nil {
			return fmt.Errorf("monthly income: %w", err)
		}
		snap.income = income
		return nil
	})
	g.Go(func() error {
		target, err := s.store.EFTarget(gctx, today, s.cfg.EFTargetMonths)
		if err != nil {
			return fmt.Errorf("emergency fund target: %w", err)
		}
		snap.target = target
		return nil
	})

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

// candidates evaluates each bill's next due date against its current period.
// Bills due outside [today, today+window] are skipped before their ledger is read.
func (s *PlannerService) candidates(ctx context.Context, bills []core.BillSchedule, today core.Date, window int) ([]planner.BillCandidate, error) {
	horizon := today.AddDays(window)
	var out []planner.BillCandidate
	for _, b := range bills {
		due := recurrence.NextDueDate(b, today)
		if due.Before(today) || due.After(horizon) {
			continue
		}
		start := recurrence.PreviousDueDate(b, due)
		sums, err := s.store.Sums(ctx, b.ID, start, due)
		if err != nil {
			return nil, fmt.Errorf("ledger sums for bill %s: %w", b.ID, err)
		}
		out = append(out, planner.BillCandidate{
			BillID:      b.ID,
			Name:        b.Name,
			Amount:      b.Amount,
			Due:         due,
			Contributed: sums.Contributed,
			PaidSum:     sums.Paid,
		})
	}
	return out, nil
}

// Breakdown allocates one inflow across bills, budgets and the emergency fund.
func (s *PlannerService) Breakdown(ctx context.Context, req BreakdownRequest) (planner.AllocationResult, error) {
	start := time.Now()
	res, err := s.breakdown(ctx, req)
	if err != nil {
		metrics.ObserveBreakdown(metrics.ResultError, time.Since(start))
		return planner.AllocationResult{}, err
	}
	metrics.ObserveBreakdown(metrics.ResultSuccess, time.Since(start))
	metrics.AddAllocated(string(planner.StageBills), res.Summary.ToBills.Cents)
	metrics.AddAllocated(string(planner.StageBudgets), res.Summary.ToBudgets.Cents)
	metrics.AddAllocated(string(planner.StageEF), res.Summary.ToEF.Cents)
	metrics.AddUnallocated(res.Summary.Unallocated.Cents)

	log.NewStructuredLogger(log.FromContext(ctx)).LogAllocation(ctx, res)
	return res, nil
}

func (s *PlannerService) breakdown(ctx context.Context, req BreakdownRequest) (planner.AllocationResult, error) {
	if err := req.Validate(); err != nil {
		return planner.AllocationResult{}, err
	}

	today := s.today()
	year, month := req.Year, req.Month
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = today.Month()
	}
	cushion := s.cfg.ReserveCushion
	if req.ReserveCushion != nil {
		cushion = *req.ReserveCushion
	}
	window := s.cfg.DueSoonWindow(req.DueSoonDays)

	snap, err := s.snapshot(ctx, today, year, month)
	if err != nil {
		return planner.AllocationResult{}, fmt.Errorf("breakdown snapshot: %w", err)
	}
	bills, err := s.candidates(ctx, snap.bills, today, window)
	if err != nil {
		return planner.AllocationResult{}, err
	}

	in := planner.AllocationInput{
		Inflow:         req.Amount,
		ReserveCushion: cushion,
		DueSoonDays:    window,
		Today:          today,
		Bills:          bills,
		Budgets:        snap.budgets,
		EFNeed:         planner.EFNeed(snap.target, snap.liquid),
		EFCap:          planner.EFCap(snap.income, s.cfg.EFCapRate),
	}
	return planner.Allocate(in, s.cfg), nil
}

// BudgetVsActual reports budgeted, actual and variance for every eligible
// category with a budget row in the month. A zero year or month means the
// current one.
func (s *PlannerService) BudgetVsActual(ctx context.Context, year, month int) ([]core.BudgetShortfall, error) {
	today := s.today()
	if year == 0 {
		year = today.Year()
	}
	if month == 0 {
		month = today.Month()
	}
	switch {
	case year < 2000 || year > 2100:
		return nil, &core.ValidationError{Field: "year", Reason: "must be between 2000 and 2100"}
	case month < 1 || month > 12:
		return nil, &core.ValidationError{Field: "month", Reason: "must be between 1 and 12"}
	}

	rows, err := s.store.EligibleShortfalls(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("budget vs actual %04d-%02d: %w", year, month, err)
	}
	return rows, nil
}

// EmergencyFund returns today's overview, served from the cache when present.
func (s *PlannerService) EmergencyFund(ctx context.Context) (planner.EmergencyFund, error) {
	today := s.today()
	load := func(ctx context.Context) (planner.EmergencyFund, error) {
		return s.emergencyFund(ctx, today)
	}
	if s.efCache == nil {
		return load(ctx)
	}
	return s.efCache.GetOrLoad(ctx, "ef:"+today.String(), load)
}

func (s *PlannerService) emergencyFund(ctx context.Context, today core.Date) (planner.EmergencyFund, error) {
	var target, liquid, income core.Money
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		target, err = s.store.EFTarget(gctx, today, s.cfg.EFTargetMonths)
		return err
	})
	g.Go(func() (err error) {
		liquid, err = s.store.LiquidBalanceTotal(gctx)
		return err
	})
	g.Go(func() (err error) {
		income, err = s.store.MonthlyIncome(gctx, today.Year(), today.Month())
		return err
	})
	if err := g.Wait(); err != nil {
		return planner.EmergencyFund{}, fmt.Errorf("emergency fund figures: %w", err)
	}

	slog.DebugContext(ctx, "Emergency fund figures loaded",
		log.FieldComponent, log.ComponentPlanner,
		"target_cents", target.Cents,
		"liquid_cents", liquid.Cents,
		"income_cents", income.Cents)
	return planner.NewEmergencyFund(target, liquid, income, s.cfg), nil
}

// InvalidateEmergencyFund drops cached overviews. BillService calls it after
// every contribution or payment.
func (s *PlannerService) InvalidateEmergencyFund() {
	if s.efCache != nil {
		s.efCache.Purge()
	}
}
