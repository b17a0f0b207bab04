package observability

import (
	"time"

	"github.com/arunvilla/Finomini-POC-sub002/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the sync engine.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	syncDuration  *prometheus.HistogramVec
	syncRuns      *prometheus.CounterVec
	txProcessed   *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		syncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finomini_sync_duration_seconds",
				Help:    "Duration of sync runs by mode.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		syncRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finomini_sync_runs_total",
				Help: "Total sync runs by outcome.",
			},
			[]string{"outcome"},
		),
		txProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finomini_sync_transactions_total",
				Help: "Transactions processed by reconcile outcome.",
			},
			[]string{"outcome"},
		),
		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finomini_provider_calls_total",
				Help: "Provider gateway calls by operation and status.",
			},
			[]string{"operation", "status"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finomini_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finomini_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
	}
}

// RecordSyncDuration records the wall-clock duration of one sync run.
func (m *Metrics) RecordSyncDuration(mode string, d time.Duration) {
	m.syncDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// IncrSyncRun increments the run counter ("success" or "error").
func (m *Metrics) IncrSyncRun(outcome string) {
	m.syncRuns.WithLabelValues(outcome).Inc()
}

// AddTransactions adds to the per-outcome transaction counter.
// Outcomes: new, updated, duplicate, deleted_candidate, record_error.
func (m *Metrics) AddTransactions(outcome string, n int) {
	if n <= 0 {
		return
	}
	m.txProcessed.WithLabelValues(outcome).Add(float64(n))
}

// IncrProviderCall counts a provider gateway call.
func (m *Metrics) IncrProviderCall(operation, status string) {
	m.providerCalls.WithLabelValues(operation, status).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// GetSyncSnapshot returns a snapshot of sync counters suitable for the
// GET /v1/metrics/sync endpoint.
func (m *Metrics) GetSyncSnapshot() *domain.SyncMetrics {
	success := getCounterValue(m.syncRuns, "success")
	failed := getCounterValue(m.syncRuns, "error")
	newTotal := getCounterValue(m.txProcessed, "new")
	updated := getCounterValue(m.txProcessed, "updated")
	dupes := getCounterValue(m.txProcessed, "duplicate")
	recErrs := getCounterValue(m.txProcessed, "record_error")

	total := success + failed
	errorRate := float64(0)
	if total > 0 {
		errorRate = failed / total
	}

	return &domain.SyncMetrics{
		TotalRuns:      int64(total),
		FailedRuns:     int64(failed),
		NewTotal:       int64(newTotal),
		UpdatedTotal:   int64(updated),
		DuplicateTotal: int64(dupes),
		RecordErrors:   int64(recErrs),
		ErrorRate:      errorRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
