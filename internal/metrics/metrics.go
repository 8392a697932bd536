// Package metrics holds the Prometheus collectors exported by the API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/railradar/backend/internal/store"
)

// Path query outcomes.
const (
	OutcomeFound        = "found"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidGraph = "invalid_graph"
	OutcomeStoreError   = "store_error"
)

const namespace = "railradar"

// Metrics groups the collectors registered against one registry.
type Metrics struct {
	registry *prometheus.Registry

	pathQueries       *prometheus.CounterVec
	pathQueryDuration prometheus.Histogram
	pathCacheHits     prometheus.Counter
	snapshotLoads     *prometheus.CounterVec
	snapshotLoadTime  prometheus.Histogram
	snapshotStations  prometheus.Gauge
	snapshotEdges     prometheus.Gauge
	snapshotVersion   prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		pathQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_queries_total",
			Help:      "Path queries by outcome.",
		}, []string{"outcome"}),
		pathQueryDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "path_query_duration_seconds",
			Help:      "Time to answer a path query, including snapshot reads.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		pathCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_cache_hits_total",
			Help:      "Path queries answered from the result cache.",
		}),
		snapshotLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_loads_total",
			Help:      "Graph snapshot reloads by result.",
		}, []string{"result"}),
		snapshotLoadTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_load_duration_seconds",
			Help:      "Time to reload the graph snapshot from its source.",
			Buckets:   prometheus.DefBuckets,
		}),
		snapshotStations: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_stations",
			Help:      "Stations in the current graph snapshot.",
		}),
		snapshotEdges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_edges",
			Help:      "Edges in the current graph snapshot.",
		}),
		snapshotVersion: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_version",
			Help:      "Version of the current graph snapshot.",
		}),
	}
}

// ObservePathQuery records one answered path query.
func (m *Metrics) ObservePathQuery(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.pathQueries.WithLabelValues(outcome).Inc()
	m.pathQueryDuration.Observe(took.Seconds())
}

// ObserveCacheHit counts a path query served from cache.
func (m *Metrics) ObserveCacheHit() {
	if m == nil {
		return
	}
	m.pathCacheHits.Inc()
}

// ObserveSnapshotLoad matches store.LoadObserver.
func (m *Metrics) ObserveSnapshotLoad(snap store.Snapshot, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.snapshotLoadTime.Observe(took.Seconds())
	if err != nil {
		m.snapshotLoads.WithLabelValues("error").Inc()
		return
	}
	m.snapshotLoads.WithLabelValues("ok").Inc()
	m.snapshotStations.Set(float64(len(snap.Stations)))
	m.snapshotEdges.Set(float64(len(snap.Edges)))
	m.snapshotVersion.Set(float64(snap.Version))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
