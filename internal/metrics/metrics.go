// Package metrics holds the Prometheus collectors for the rate engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RefreshTotal        *prometheus.CounterVec
	RefreshDuration     prometheus.Histogram
	RowsDropped         prometheus.Counter
	TableRows           prometheus.Gauge
	UnresolvedCountries prometheus.Gauge
	CacheRequests       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
// Pass prometheus.NewRegistry() in tests to avoid global registration clashes.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RefreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tbrates_refresh_total",
			Help: "Data refresh attempts by outcome",
		}, []string{"outcome"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tbrates_refresh_duration_seconds",
			Help:    "Time to fetch, clean and install a canonical table",
			Buckets: prometheus.DefBuckets,
		}),
		RowsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "tbrates_rows_dropped_total",
			Help: "Raw rows dropped during cleaning for format problems",
		}),
		TableRows: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tbrates_table_rows",
			Help: "Records in the canonical table currently in service",
		}),
		UnresolvedCountries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tbrates_map_unresolved_countries",
			Help: "Countries left off the most recently built map for lack of a polygon",
		}),
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tbrates_query_cache_requests_total",
			Help: "Query cache lookups by result",
		}, []string{"result"}),
	}
}

// RefreshSucceeded records a successful refresh.
func (m *Metrics) RefreshSucceeded(seconds float64, rows, dropped int) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues("success").Inc()
	m.RefreshDuration.Observe(seconds)
	m.TableRows.Set(float64(rows))
	m.RowsDropped.Add(float64(dropped))
}

// RefreshFailed records a rejected refresh.
func (m *Metrics) RefreshFailed() {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues("failure").Inc()
}

// SetTableRows records the size of a table installed without a refresh.
func (m *Metrics) SetTableRows(rows int) {
	if m == nil {
		return
	}
	m.TableRows.Set(float64(rows))
}

// SetUnresolved records the unresolved count of the latest map.
func (m *Metrics) SetUnresolved(n int) {
	if m == nil {
		return
	}
	m.UnresolvedCountries.Set(float64(n))
}

// CacheHit increments the cache hit counter.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues("hit").Inc()
}

// CacheMiss increments the cache miss counter.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues("miss").Inc()
}
