// Package metrics exposes Prometheus collectors for the API and workers.
//
// All recording methods accept a nil *Metrics so services and tests can run
// without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finflow"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ledgerEntries        *prometheus.CounterVec
	fulfilments          *prometheus.CounterVec
	allocationMismatches *prometheus.CounterVec
	reminders            *prometheus.CounterVec
	syncResults          *prometheus.CounterVec
	cacheLookups         *prometheus.CounterVec
	rateLimited          prometheus.Counter
}

// New creates a registry holding the application collectors plus the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ledgerEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_entries_total",
			Help:      "Ledger entries recorded by type and source.",
		}, []string{"type", "source"}),
		fulfilments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recurring_fulfilments_total",
			Help:      "Recurring obligation fulfilments by trigger.",
		}, []string{"trigger"}),
		allocationMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_allocation_mismatches_total",
			Help:      "Split allocations rejected because shares did not reconcile.",
		}, []string{"strategy"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Reminders sent by obligation kind and status.",
		}, []string{"kind", "status"}),
		syncResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sheet_sync_total",
			Help:      "Spreadsheet mirror attempts by result.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_cache_lookups_total",
			Help:      "Summary cache lookups by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Write requests rejected by the per-client rate limiter.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ledgerEntries,
		m.fulfilments,
		m.allocationMismatches,
		m.reminders,
		m.syncResults,
		m.cacheLookups,
		m.rateLimited,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) LedgerEntry(entryType, source string) {
	if m == nil {
		return
	}
	m.ledgerEntries.WithLabelValues(entryType, source).Inc()
}

// Fulfilment counts one applied period; trigger is "manual" or "auto".
func (m *Metrics) Fulfilment(trigger string) {
	if m == nil {
		return
	}
	m.fulfilments.WithLabelValues(trigger).Inc()
}

func (m *Metrics) AllocationMismatch(strategy string) {
	if m == nil {
		return
	}
	m.allocationMismatches.WithLabelValues(strategy).Inc()
}

func (m *Metrics) ReminderSent(kind, status string) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(kind, status).Inc()
}

// SyncResult counts a mirror attempt by result: "synced", "deleted",
// "error" (will be retried) or "failed" (given up).
func (m *Metrics) SyncResult(result string) {
	if m == nil {
		return
	}
	m.syncResults.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) RateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}
