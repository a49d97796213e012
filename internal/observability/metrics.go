package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	ledgerDeltasTotal     *prometheus.CounterVec
	ledgerClampsTotal     *prometheus.CounterVec
	ledgerRetriesTotal    *prometheus.CounterVec
	ledgerFailuresTotal   *prometheus.CounterVec
	ledgerReconcileDrift  prometheus.Counter
	liveClientsActive     prometheus.Gauge
	balanceEventsReceived *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the ledger.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "talent_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		ledgerDeltasTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_ledger_deltas_total",
			Help: "Committed balance deltas by source and reason.",
		}, []string{"source", "reason"})

		ledgerClampsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_ledger_clamps_total",
			Help: "Decrements truncated at a zero balance.",
		}, []string{"source"})

		ledgerRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_ledger_retries_total",
			Help: "Ledger units of work retried after a persistence failure.",
		}, []string{"operation"})

		ledgerFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_ledger_operation_failures_total",
			Help: "Ledger units of work that failed after exhausting retries.",
		}, []string{"operation"})

		ledgerReconcileDrift = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "talent_ledger_reconcile_drift_total",
			Help: "Profiles whose cached balance disagreed with the event log during reconciliation.",
		})

		liveClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "talent_live_clients_active",
			Help: "Connected live balance websocket clients.",
		})

		balanceEventsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "talent_balance_events_total",
			Help: "Balance change events delivered to local subscribers by origin.",
		}, []string{"origin"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			ledgerDeltasTotal, ledgerClampsTotal, ledgerRetriesTotal, ledgerFailuresTotal,
			ledgerReconcileDrift, liveClientsActive, balanceEventsReceived,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// LedgerDeltas exposes the committed delta counter.
func LedgerDeltas() *prometheus.CounterVec {
	RegisterMetrics()
	return ledgerDeltasTotal
}

// LedgerClamps exposes the clamp counter.
func LedgerClamps() *prometheus.CounterVec {
	RegisterMetrics()
	return ledgerClampsTotal
}

// LedgerRetries exposes the retry counter.
func LedgerRetries() *prometheus.CounterVec {
	RegisterMetrics()
	return ledgerRetriesTotal
}

// LedgerFailures exposes the exhausted-retry counter.
func LedgerFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return ledgerFailuresTotal
}

// LedgerReconcileDrift exposes the reconciliation drift counter.
func LedgerReconcileDrift() prometheus.Counter {
	RegisterMetrics()
	return ledgerReconcileDrift
}

// LiveClientsActive exposes the websocket client gauge.
func LiveClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return liveClientsActive
}

// BalanceEvents exposes the balance event delivery counter.
func BalanceEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return balanceEventsReceived
}
