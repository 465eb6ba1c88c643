// Package metrics defines the Prometheus instruments of the analytics engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vettr"

// Computation results
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Metrics holds every instrument on its own registry
// ⭐ SSOT: 메트릭 정의는 여기서만
type Metrics struct {
	registry *prometheus.Registry

	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	Computations       *prometheus.CounterVec
	ComputeDuration    prometheus.Histogram
	FlagsDetected      *prometheus.CounterVec
	ReconcileOutcomes  *prometheus.CounterVec
	JobRuns            *prometheus.CounterVec
	StreamSubscribers  prometheus.Gauge
	CacheInvalidations *prometheus.CounterVec
}

// New registers the instruments on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score_cache",
			Name:      "hits_total",
			Help:      "Composite score requests served from cache",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score_cache",
			Name:      "misses_total",
			Help:      "Composite score requests that required a computation",
		}),
		CacheInvalidations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score_cache",
			Name:      "invalidations_total",
			Help:      "Cache invalidations by scope",
		}, []string{"scope"}),
		Computations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "computations_total",
			Help:      "Composite score computations by result",
		}, []string{"result"}),
		ComputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "compute_duration_seconds",
			Help:      "Duration of a composite score computation",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms ~ 4s
		}),
		FlagsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redflags",
			Name:      "detected_total",
			Help:      "Red flags detected by kind",
		}, []string{"kind"}),
		ReconcileOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "outcomes_total",
			Help:      "Conflict resolution outcomes by strategy",
		}, []string{"strategy", "outcome"}),
		JobRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by job and status",
		}, []string{"job", "status"}),
		StreamSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Connected live score subscribers",
		}),
	}
}

// Registry exposes the underlying registry (tests, custom exporters)
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveComputation records one score computation.
// Safe to call on a nil receiver.
func (m *Metrics) ObserveComputation(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Computations.WithLabelValues(result).Inc()
	m.ComputeDuration.Observe(elapsed.Seconds())
}

// CacheHit increments the hit counter
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// CacheMiss increments the miss counter
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// Invalidated records a cache invalidation ("entity" or "all")
func (m *Metrics) Invalidated(scope string) {
	if m == nil {
		return
	}
	m.CacheInvalidations.WithLabelValues(scope).Inc()
}

// FlagDetected counts one detected flag
func (m *Metrics) FlagDetected(kind string) {
	if m == nil {
		return
	}
	m.FlagsDetected.WithLabelValues(kind).Inc()
}

// Reconciled records the counts of one batch resolution
func (m *Metrics) Reconciled(strategy string, resolved, unresolved, failed int) {
	if m == nil {
		return
	}
	m.ReconcileOutcomes.WithLabelValues(strategy, "resolved").Add(float64(resolved))
	m.ReconcileOutcomes.WithLabelValues(strategy, "unresolved").Add(float64(unresolved))
	m.ReconcileOutcomes.WithLabelValues(strategy, "failed").Add(float64(failed))
}

// JobRun records a scheduler job run ("success" or "failed")
func (m *Metrics) JobRun(job, status string) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, status).Inc()
}

// SubscriberDelta moves the live subscriber gauge
func (m *Metrics) SubscriberDelta(delta float64) {
	if m == nil {
		return
	}
	m.StreamSubscribers.Add(delta)
}
