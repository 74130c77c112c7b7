package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vaultload"

const (
	OutcomeLoaded  = "loaded"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
	OutcomeLocked  = "locked"
)

// Metrics holds the pipeline instruments. A nil *Metrics is a no-op.
type Metrics struct {
	registry *prometheus.Registry

	files        *prometheus.CounterVec
	rowsRead     prometheus.Counter
	rowsInserted *prometheus.CounterVec
	rowsSkipped  *prometheus.CounterVec
	setFailures  *prometheus.CounterVec
	fileDuration *prometheus.HistogramVec
	lastSuccess  prometheus.Gauge
}

// New registers the pipeline instruments on a dedicated registry. Runtime
// collectors stay on the default registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Source files handled by outcome.",
		}, []string{"outcome"}),
		rowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Data rows read from source files.",
		}),
		rowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Vault rows inserted by table and kind.",
		}, []string{"table", "kind"}),
		rowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Vault rows skipped on conflict by table and kind.",
		}, []string{"table", "kind"}),
		setFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_set_failures_total",
			Help:      "Record sets that failed to load by table and reason.",
		}, []string{"table", "reason"}),
		fileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Wall time per source file.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last fully loaded file.",
		}),
	}

	registry.MustRegister(
		m.files,
		m.rowsRead,
		m.rowsInserted,
		m.rowsSkipped,
		m.setFailures,
		m.fileDuration,
		m.lastSuccess,
	)
	return m
}

// Registry exposes the dedicated registry for scraping and pushing.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveFile(outcome string, duration time.Duration, at time.Time) {
	if m == nil {
		return
	}
	outcome = sanitizeLabel(outcome)
	m.files.WithLabelValues(outcome).Inc()
	m.fileDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == OutcomeLoaded && !at.IsZero() {
		m.lastSuccess.Set(float64(at.Unix()))
	}
}

func (m *Metrics) ObserveRowsRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsRead.Add(float64(n))
}

// ObserveSet records the outcome of one record set load.
func (m *Metrics) ObserveSet(table, kind string, inserted, skipped int64) {
	if m == nil {
		return
	}
	table = sanitizeLabel(table)
	kind = sanitizeLabel(kind)
	if inserted > 0 {
		m.rowsInserted.WithLabelValues(table, kind).Add(float64(inserted))
	}
	if skipped > 0 {
		m.rowsSkipped.WithLabelValues(table, kind).Add(float64(skipped))
	}
}

func (m *Metrics) ObserveSetFailure(table, reason string) {
	if m == nil {
		return
	}
	m.setFailures.WithLabelValues(sanitizeLabel(table), sanitizeLabel(reason)).Inc()
}

func sanitizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
