// Package metrics exposes the Prometheus collectors of the server and the
// reminder worker.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "cashplan_"

	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	breakdownTotal   *prometheus.CounterVec
	breakdownLatency *prometheus.HistogramVec
	allocatedCents   *prometheus.CounterVec
	unallocatedCents prometheus.Counter

	remindersTotal *prometheus.CounterVec

	ledgerEntriesTotal *prometheus.CounterVec

	httpRequests   *prometheus.HistogramVec
	securityEvents *prometheus.CounterVec
)

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		breakdownTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "breakdown_requests_total",
				Help: "Total inflow breakdowns by result",
			},
			[]string{"result"},
		)
		breakdownLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "breakdown_latency_seconds",
				Help:    "Inflow breakdown latency in seconds, snapshot reads included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		allocatedCents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "allocated_cents_total",
				Help: "Cents allocated by waterfall stage",
			},
			[]string{"stage"},
		)
		unallocatedCents = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "unallocated_cents_total",
				Help: "Cents left unallocated after every stage",
			},
		)
		remindersTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "reminders_total",
				Help: "Bill due reminders by result",
			},
			[]string{"result"},
		)
		ledgerEntriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_entries_total",
				Help: "Ledger entries written by kind",
			},
			[]string{"kind"},
		)
		httpRequests = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency by route and status",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		)
		securityEvents = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_security_events_total",
				Help: "Rate limited and suspicious HTTP requests",
			},
			[]string{"kind"},
		)

		prometheus.MustRegister(
			breakdownTotal,
			breakdownLatency,
			allocatedCents,
			unallocatedCents,
			remindersTotal,
			ledgerEntriesTotal,
			httpRequests,
			securityEvents,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveBreakdown(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if breakdownTotal != nil {
		breakdownTotal.WithLabelValues(result).Inc()
	}
	if breakdownLatency != nil {
		breakdownLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddAllocated adds the cents one stage received. Non-positive amounts are ignored.
func AddAllocated(stage string, cents int64) {
	if cents <= 0 || allocatedCents == nil {
		return
	}
	allocatedCents.WithLabelValues(stage).Add(float64(cents))
}

func AddUnallocated(cents int64) {
	if cents <= 0 || unallocatedCents == nil {
		return
	}
	unallocatedCents.Add(float64(cents))
}

func IncReminder(result string) {
	if result == "" {
		result = "unknown"
	}
	if remindersTotal != nil {
		remindersTotal.WithLabelValues(result).Inc()
	}
}

func IncLedgerEntry(kind string) {
	if ledgerEntriesTotal != nil {
		ledgerEntriesTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveHTTP matches the observer signature of log.AccessLog.
func ObserveHTTP(method, route string, status int, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	}
}

// IncSecurityEvent counts a rejected or flagged request ("rate_limited", "suspicious").
func IncSecurityEvent(kind string) {
	if securityEvents != nil {
		securityEvents.WithLabelValues(kind).Inc()
	}
}
