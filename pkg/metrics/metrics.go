// package metrics exposes Prometheus metrics about feed refreshes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "benchtrend"

// Metrics owns a private registry so several servers, or tests, never clash
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	refreshes       *prometheus.CounterVec
	recordWarnings  *prometheus.CounterVec
	snapshots       *prometheus.GaugeVec
	refreshDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_refreshes_total",
			Help:      "Feed fetch and load attempts by outcome.",
		}, []string{"outcome"}),
		recordWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_warnings_total",
			Help:      "Malformed snapshot records or measurements skipped while loading feeds.",
		}, []string{"repo"}),
		snapshots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots",
			Help:      "Snapshots held by the most recently loaded feed, per series.",
		}, []string{"repo", "series"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_refresh_duration_seconds",
			Help:      "Time spent fetching and loading a feed.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	m.registry.MustRegister(m.refreshes, m.recordWarnings, m.snapshots, m.refreshDuration)

	return m
}

// ObserveRefresh records one refresh attempt. outcome is a short label such
// as "ok", "not_found", "format_error" or "fetch_error".
func (m *Metrics) ObserveRefresh(outcome string, took time.Duration) {
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(took.Seconds())
}

func (m *Metrics) AddRecordWarnings(repo string, n int) {
	if n > 0 {
		m.recordWarnings.WithLabelValues(repo).Add(float64(n))
	}
}

func (m *Metrics) SetSnapshots(repo, series string, n int) {
	m.snapshots.WithLabelValues(repo, series).Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for registering extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
