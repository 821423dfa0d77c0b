package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cashplan/internal/cache"
	"cashplan/internal/core"
	"cashplan/internal/log"
	"cashplan/internal/memory"
	"cashplan/internal/planner"
	"cashplan/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	cfg := planner.DefaultConfig()
	efCache := cache.NewLRU[planner.EmergencyFund](4, time.Minute)
	logger := log.New(log.Config{Output: io.Discard, Component: log.ComponentHTTP})

	plannerSvc := services.NewPlannerService(store, cfg, efCache)
	srv := NewServer(":0", plannerSvc, services.NewBillService(store, cfg, plannerSvc), logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, store
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func today() core.Date {
	return core.DateOf(time.Now().UTC())
}

func TestHealthAndHeaders(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
	if got := decode[map[string]string](t, rr)["status"]; got != "ok" {
		t.Fatalf("status=%q", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
	if !strings.HasPrefix(rr.Header().Get(log.RequestIDHeader), "req_") {
		t.Fatalf("missing request id, got %q", rr.Header().Get(log.RequestIDHeader))
	}

	rr = do(t, srv, http.MethodPost, "/healthz", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestBillLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	day := today().AddDays(3).Day()

	body := `{"id":"power","name":"Electricity","amount":120.5,"frequency":"monthly","day_of_month":` + itoa(day) + `}`
	rr := do(t, srv, http.MethodPost, "/bills", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	if created := decode[map[string]any](t, rr)["created"]; created != true {
		t.Fatalf("expected created=true, got %v", created)
	}

	rr = do(t, srv, http.MethodPost, "/bills", body)
	if rr.Code != http.StatusOK || decode[map[string]any](t, rr)["created"] != false {
		t.Fatalf("duplicate create: status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodGet, "/bills/power", "")
	bill := decode[billView](t, rr)
	if bill.Amount != 120.5 || bill.Currency != "USD" || bill.StartDate != nil {
		t.Fatalf("unexpected bill %+v", bill)
	}

	rr = do(t, srv, http.MethodPatch, "/bills/power", `{"amount":130}`)
	if rr.Code != http.StatusOK || decode[billView](t, rr).Amount != 130 {
		t.Fatalf("patch: status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodPatch, "/bills/power", `{"frequency":"fortnightly"}`)
	if rr.Code != http.StatusUnprocessableEntity || decode[errorBody](t, rr).Field != "frequency" {
		t.Fatalf("bad frequency: status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodPost, "/bills/power/contribute", `{"amount":30,"note":"set aside"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("contribute status=%d body=%s", rr.Code, rr.Body)
	}
	rr = do(t, srv, http.MethodPost, "/bills/power/contribute", `{"amount":0}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero contribution: expected 422, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodPost, "/bills/power/mark-paid", "")
	if paid := decode[map[string]any](t, rr); paid["already_paid"] != false {
		t.Fatalf("first mark-paid: %v", paid)
	}
	rr = do(t, srv, http.MethodPost, "/bills/power/mark-paid", "")
	if paid := decode[map[string]any](t, rr); paid["already_paid"] != true {
		t.Fatalf("second mark-paid: %v", paid)
	}

	rr = do(t, srv, http.MethodGet, "/bills/power/ledger", "")
	ledger := decode[ledgerView](t, rr)
	if ledger.ContribSum != 30 || ledger.PaidSum != 130 || len(ledger.Entries) != 2 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}

	rr = do(t, srv, http.MethodDelete, "/bills/power", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	for _, path := range []string{"/bills/power", "/bills/power/ledger"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusNotFound {
			t.Fatalf("%s after delete: expected 404, got %d", path, rr.Code)
		}
	}
	if rr := do(t, srv, http.MethodDelete, "/bills/power", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rr.Code)
	}
}

func TestCreateBillRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t)

	cases := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"malformed json", `{"id":`, http.StatusBadRequest, ""},
		{"unknown field", `{"id":"x","colour":"red"}`, http.StatusBadRequest, ""},
		{"missing amount", `{"id":"x","name":"X","frequency":"monthly","day_of_month":1}`, http.StatusUnprocessableEntity, "amount"},
		{"negative amount", `{"id":"x","name":"X","amount":-1,"frequency":"monthly","day_of_month":1}`, http.StatusUnprocessableEntity, "amount"},
		{"weekly without weekday", `{"id":"x","name":"X","amount":5,"frequency":"weekly"}`, http.StatusUnprocessableEntity, "weekday"},
		{"yearly without start", `{"id":"x","name":"X","amount":5,"frequency":"yearly"}`, http.StatusUnprocessableEntity, "start_date"},
		{"bad date", `{"id":"x","name":"X","amount":5,"frequency":"yearly","start_date":"12/01/2024"}`, http.StatusUnprocessableEntity, "start_date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/bills", tc.body)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d body=%s", tc.status, rr.Code, rr.Body)
			}
			if got := decode[errorBody](t, rr); got.Field != tc.field || got.Error == "" {
				t.Fatalf("unexpected error body %+v", got)
			}
		})
	}
}

func TestOccurrences(t *testing.T) {
	srv, store := newTestServer(t)
	from := today()
	if _, err := store.CreateBill(context.Background(), core.BillSchedule{
		ID: "gym", Name: "Gym", Amount: core.Money{Cents: 2500},
		Frequency: core.Weekly, Weekday: core.IntPtr(from.MondayWeekday()),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	path := "/bills/occurrences?from=" + from.String() + "&to=" + from.AddDays(13).String()
	rr := do(t, srv, http.MethodGet, path, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	occ := decode[[]planner.OccurrenceView](t, rr)
	if len(occ) != 2 {
		t.Fatalf("expected 2 weekly occurrences in 14 days, got %d", len(occ))
	}
	if occ[0].Due != from.String() || !occ[0].DueSoon || occ[0].DaysToDue != 0 {
		t.Fatalf("first occurrence should be due today and due soon: %+v", occ[0])
	}

	bad := map[string]int{
		"/bills/occurrences?to=" + from.String():                                                    http.StatusBadRequest,
		"/bills/occurrences?from=yesterday&to=" + from.String():                                     http.StatusBadRequest,
		"/bills/occurrences?from=" + from.String() + "&to=" + from.AddDays(-1).String():             http.StatusUnprocessableEntity,
		"/bills/occurrences?from=" + from.String() + "&to=" + from.String() + "&due_soon_days=0":    http.StatusUnprocessableEntity,
		"/bills/occurrences?from=" + from.String() + "&to=" + from.String() + "&due_soon_days=abc": http.StatusBadRequest,
	}
	for p, status := range bad {
		if rr := do(t, srv, http.MethodGet, p, ""); rr.Code != status {
			t.Errorf("%s: expected %d, got %d", p, status, rr.Code)
		}
	}
}

func TestBreakdown(t *testing.T) {
	srv, store := newTestServer(t)
	if _, err := store.CreateBill(context.Background(), core.BillSchedule{
		ID: "power", Name: "Electricity", Amount: core.Money{Cents: 10000},
		Frequency: core.Monthly, DayOfMonth: core.IntPtr(today().AddDays(3).Day()),
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rr := do(t, srv, http.MethodPost, "/breakdown", `{"amount":500}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	view := decode[planner.AllocationView](t, rr)
	if view.Reserve != 200 || view.Summary.ToBills != 100 || view.Summary.Unallocated != 200 {
		t.Fatalf("unexpected allocation %+v", view)
	}
	if len(view.Allocations.Bills) != 1 || view.Allocations.Bills[0].To != "bill:power" {
		t.Fatalf("unexpected bill lines %+v", view.Allocations.Bills)
	}

	rr = do(t, srv, http.MethodPost, "/breakdown", `{"amount":500,"reserve_cushion":0,"due_soon_days":1}`)
	view = decode[planner.AllocationView](t, rr)
	if view.Reserve != 0 || view.Summary.ToBills != 0 || view.Summary.Unallocated != 500 {
		t.Fatalf("bill outside a one-day window must not be funded: %+v", view)
	}

	for body, field := range map[string]string{
		`{}`:                                "amount",
		`{"amount":-5}`:                     "amount",
		`{"amount":5,"reserve_cushion":-1}`: "reserve_cushion",
		`{"amount":5,"due_soon_days":61}`:   "due_soon_days",
		`{"amount":5,"month":13}`:           "month",
	} {
		rr := do(t, srv, http.MethodPost, "/breakdown", body)
		if rr.Code != http.StatusUnprocessableEntity || decode[errorBody](t, rr).Field != field {
			t.Errorf("%s: status=%d body=%s", body, rr.Code, rr.Body)
		}
	}
}

func TestEmergencyFundAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/ef", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ef status=%d", rr.Code)
	}
	if ef := decode[planner.EmergencyFundView](t, rr); ef.FundedPct != 100 || ef.RecommendedContrib != 0 {
		t.Fatalf("empty household should be fully funded: %+v", ef)
	}

	rr = do(t, srv, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `route="GET /ef"`) {
		t.Fatalf("metrics missing route label for /ef")
	}
}

func TestBudgetVsActual(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := context.Background()

	for _, c := range []core.Category{
		{ID: "food", Name: "Food", AffectsCashflow: true, Budgetable: true},
		{ID: "fun", Name: "Fun", AffectsCashflow: true, Budgetable: true},
	} {
		if err := store.UpsertCategory(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	for _, b := range []core.Budget{
		{CategoryID: "food", Year: 2024, Month: 6, Amount: core.Money{Cents: 40000}},
		{CategoryID: "fun", Year: 2024, Month: 6, Amount: core.Money{Cents: 5000}},
	} {
		if err := store.UpsertBudget(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	for _, tr := range []core.Transaction{
		{ID: "spend", DatePosted: core.NewDate(2024, 6, 3), Amount: core.Money{Cents: -10000}, CategoryID: "food"},
		{ID: "refund", DatePosted: core.NewDate(2024, 6, 9), Amount: core.Money{Cents: 3000}, CategoryID: "food"},
		{ID: "concert", DatePosted: core.NewDate(2024, 6, 21), Amount: core.Money{Cents: -8000}, CategoryID: "fun"},
	} {
		if err := store.InsertTransaction(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	rr := do(t, srv, http.MethodGet, "/cashflow/budget-vs-actual?year=2024&month=6", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	want := []planner.BudgetVsActualView{
		{CategoryID: "food", CategoryName: "Food", Budgeted: 400, Actual: 100, Variance: 300},
		{CategoryID: "fun", CategoryName: "Fun", Budgeted: 50, Actual: 80, Variance: -30},
	}
	got := decode[[]planner.BudgetVsActualView](t, rr)
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	rr = do(t, srv, http.MethodGet, "/cashflow/budget-vs-actual?year=2024&month=7", "")
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("month without budgets: status=%d body=%s", rr.Code, rr.Body.String())
	}

	tests := []struct {
		query  string
		status int
	}{
		{"year=2024", http.StatusBadRequest},
		{"month=6", http.StatusBadRequest},
		{"year=2024&month=x", http.StatusBadRequest},
		{"year=2024&month=13", http.StatusUnprocessableEntity},
		{"year=1999&month=6", http.StatusUnprocessableEntity},
		{"year=0&month=6", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		if rr := do(t, srv, http.MethodGet, "/cashflow/budget-vs-actual?"+tt.query, ""); rr.Code != tt.status {
			t.Errorf("%s: status=%d, want %d", tt.query, rr.Code, tt.status)
		}
	}
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
