package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cashplan/internal/log"
	"cashplan/internal/metrics"
	"cashplan/internal/services"
)

const (
	writeLimitPerMinute = 60
	rateLimitCleanup    = 5 * time.Minute
)

type Server struct {
	http.Server
	planner     *services.PlannerService
	bills       *services.BillService
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// NewServer wires the routes and middleware, returning a ready-to-run server.
// Requests pass through the logger, request id, security guard and access
// log before reaching the mux.
func NewServer(addr string, plannerSvc *services.PlannerService, billSvc *services.BillService, logger *log.Logger) *Server {
	metrics.Init()

	s := &Server{
		planner:     plannerSvc,
		bills:       billSvc,
		rateLimiter: newRateLimiter(writeLimitPerMinute, time.Minute),
	}
	go s.rateLimiter.startCleanup(rateLimitCleanup)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /bills", s.handleListBills)
	mux.HandleFunc("POST /bills", s.handleCreateBill)
	mux.HandleFunc("GET /bills/occurrences", s.handleOccurrences)
	mux.HandleFunc("GET /bills/{id}", s.handleGetBill)
	mux.HandleFunc("PATCH /bills/{id}", s.handlePatchBill)
	mux.HandleFunc("DELETE /bills/{id}", s.handleDeleteBill)
	mux.HandleFunc("GET /bills/{id}/ledger", s.handleLedger)
	mux.HandleFunc("POST /bills/{id}/contribute", s.handleContribute)
	mux.HandleFunc("POST /bills/{id}/mark-paid", s.handleMarkPaid)

	mux.HandleFunc("POST /breakdown", s.handleBreakdown)
	mux.HandleFunc("GET /ef", s.handleEmergencyFund)
	mux.HandleFunc("GET /cashflow/budget-vs-actual", s.handleBudgetVsActual)

	var handler http.Handler = mux
	handler = log.AccessLog(metrics.ObserveHTTP)(handler)
	handler = s.guard(handler)
	handler = log.RequestIDMiddleware(handler)
	handler = log.Middleware(logger)(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
