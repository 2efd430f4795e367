// Package metrics provides Prometheus metrics for pipeline runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricRowsLoadedTotal       = "geodsd_rows_loaded_total"
	MetricRowsMatchedTotal      = "geodsd_rows_matched_total"
	MetricGeocodeLookupsTotal   = "geodsd_geocode_lookups_total"
	MetricStageDurationSeconds  = "geodsd_stage_duration_seconds"
	MetricLastRunSuccessSeconds = "geodsd_last_run_success_timestamp_seconds"
)

// Pipeline stages used as the stage label
const (
	StageLoad   = "load"
	StageQuery  = "query"
	StageExport = "export"
	StageRender = "render"
)

// Stages lists every stage label
var Stages = []string{StageLoad, StageQuery, StageExport, StageRender}

// Metrics holds the collectors for one process. All operations are thread-safe.
type Metrics struct {
	rowsLoaded     prometheus.Counter
	rowsMatched    prometheus.Counter
	geocodeLookups *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	lastSuccess    prometheus.Gauge
}

// NewMetrics creates unregistered collectors. outcomes pre-populates the
// lookup counter so every outcome series is exported even at zero.
func NewMetrics(outcomes ...string) *Metrics {
	m := &Metrics{
		rowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRowsLoadedTotal,
			Help: "Total number of CSV rows loaded into the store",
		}),
		rowsMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRowsMatchedTotal,
			Help: "Total number of rows returned by the first name query",
		}),
		geocodeLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGeocodeLookupsTotal,
				Help: "Total number of reverse geocoding lookups by outcome",
			},
			[]string{"outcome"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricStageDurationSeconds,
				Help:    "Histogram of pipeline stage duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"stage"},
		),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricLastRunSuccessSeconds,
			Help: "Unix time of the last successful pipeline run",
		}),
	}

	for _, o := range outcomes {
		m.geocodeLookups.WithLabelValues(o)
	}
	return m
}

// Register registers all metrics with the given registry
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return nil
}

// AddRowsLoaded counts rows loaded from the input CSV
func (m *Metrics) AddRowsLoaded(n int) {
	m.rowsLoaded.Add(float64(n))
}

// AddRowsMatched counts rows returned by the query
func (m *Metrics) AddRowsMatched(n int) {
	m.rowsMatched.Add(float64(n))
}

// ObserveGeocode counts one resolver call
func (m *Metrics) ObserveGeocode(outcome string) {
	m.geocodeLookups.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// MarkSuccess stamps the completion time of a successful run
func (m *Metrics) MarkSuccess(t time.Time) {
	m.lastSuccess.Set(float64(t.Unix()))
}

// Collectors returns all collectors
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rowsLoaded,
		m.rowsMatched,
		m.geocodeLookups,
		m.stageDuration,
		m.lastSuccess,
	}
}

// WriteTextfile writes everything in g to path in the text exposition
// format, for pickup by a node exporter textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
