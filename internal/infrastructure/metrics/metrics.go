// Package metrics exposes Prometheus counters for reconciliation runs,
// ledger API traffic and order sources.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Memo update results
const (
	UpdateApplied = "applied"
	UpdateFailed  = "failed"
	UpdateSkipped = "skipped"
)

// Metrics groups the collectors registered for one registry
type Metrics struct {
	gatherer prometheus.Gatherer

	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	matchesTotal   *prometheus.CounterVec
	memoUpdates    *prometheus.CounterVec
	ledgerRequests *prometheus.CounterVec
	ledgerDuration *prometheus.HistogramVec
	ordersFetched  *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
}

// New registers all collectors on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests isolated.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_runs_total",
				Help: "Total number of reconciliation runs",
			},
			[]string{"dry_run"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "reconcile_run_duration_seconds",
				Help:    "Duration of reconciliation runs",
				Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		matchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_matches_total",
				Help: "Matched transactions by match kind and confidence class",
			},
			[]string{"kind", "confidence_class"},
		),
		memoUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reconcile_memo_updates_total",
				Help: "Memo updates by result",
			},
			[]string{"result"},
		),
		ledgerRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_requests_total",
				Help: "Total number of ledger API requests",
			},
			[]string{"method", "status"},
		),
		ledgerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_request_duration_seconds",
				Help:    "Duration of ledger API requests",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5, 10},
			},
			[]string{"method"},
		),
		ordersFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_source_orders_fetched_total",
				Help: "Orders fetched per order source",
			},
			[]string{"source"},
		),
		sourceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_source_failures_total",
				Help: "Failed fetches per order source",
			},
			[]string{"source"},
		),
	}
}

// NewNop returns metrics bound to a private registry that nothing scrapes
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveRun records one finished run
func (m *Metrics) ObserveRun(dryRun bool, elapsed time.Duration) {
	m.runsTotal.WithLabelValues(strconv.FormatBool(dryRun)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
}

// ObserveMatch records one matched transaction
func (m *Metrics) ObserveMatch(kind, confidenceClass string) {
	m.matchesTotal.WithLabelValues(kind, confidenceClass).Inc()
}

// ObserveMemoUpdate records the outcome of one memo update
func (m *Metrics) ObserveMemoUpdate(result string) {
	m.memoUpdates.WithLabelValues(result).Inc()
}

// ObserveLedgerRequest records one ledger API call
func (m *Metrics) ObserveLedgerRequest(method string, status int, elapsed time.Duration) {
	m.ledgerRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.ledgerDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveOrdersFetched records orders returned by a source
func (m *Metrics) ObserveOrdersFetched(source string, count int) {
	m.ordersFetched.WithLabelValues(source).Add(float64(count))
}

// ObserveSourceFailure records a failed source fetch
func (m *Metrics) ObserveSourceFailure(source string) {
	m.sourceFailures.WithLabelValues(source).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
