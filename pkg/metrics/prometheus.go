package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons used as label values.
const (
	ReasonNotFound  = "not_found"
	ReasonRetrieval = "retrieval"
)

const directoryPermission = 0o750

// Manager owns the collectors recorded by the aggregator and generator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Aggregator
	playersResolved  prometheus.Counter
	playersSkipped   *prometheus.CounterVec
	projectionsTotal *prometheus.CounterVec
	sigmaFallbacks   *prometheus.CounterVec
	rowsWritten      prometheus.Gauge

	// Provider
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec

	// Both jobs
	runDuration      *prometheus.GaugeVec
	lastSuccessUnix  *prometheus.GaugeVec
	generatedRecords prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide manager used by the cmd binaries

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager()
}

// Default returns the process-wide manager.
func Default() *Manager {
	return globalManager
}

// NewManager creates a manager on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "propline",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		constLabels:      map[string]string{},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.playersResolved = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "players_resolved_total",
		Help:        "Players resolved against the provider directory",
		ConstLabels: labels,
	})

	m.playersSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "players_skipped_total",
		Help:        "Players skipped by reason",
		ConstLabels: labels,
	}, []string{"reason"})

	m.projectionsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "projections_total",
		Help:        "Projections computed by statistic",
		ConstLabels: labels,
	}, []string{"stat"})

	m.sigmaFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sigma_fallbacks_total",
		Help:        "Projections whose sigma was replaced by the statistic fallback",
		ConstLabels: labels,
	}, []string{"stat"})

	m.rowsWritten = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "tabular_rows_written",
		Help:        "Rows written to the projections file by the last aggregator run",
		ConstLabels: labels,
	})

	m.providerRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "provider_requests_total",
		Help:        "Requests to the stats provider by endpoint and status code",
		ConstLabels: labels,
	}, []string{"endpoint", "status_code"})

	m.providerLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "provider_request_duration_seconds",
		Help:        "Stats provider request latency in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint"})

	m.runDuration = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "run_duration_seconds",
		Help:        "Duration of the last run by job",
		ConstLabels: labels,
	}, []string{"job"})

	m.lastSuccessUnix = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_success_unix",
		Help:        "Unix time of the last run that produced output, by job",
		ConstLabels: labels,
	}, []string{"job"})

	m.generatedRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "generated_records",
		Help:        "Records emitted into the generated module by the last generator run",
		ConstLabels: labels,
	})
}

// RecordPlayerResolved counts a successful directory lookup.
func (m *Manager) RecordPlayerResolved() {
	if m.enabled {
		m.playersResolved.Inc()
	}
}

// RecordPlayerSkipped counts a skipped player.
func (m *Manager) RecordPlayerSkipped(reason string) {
	if m.enabled {
		m.playersSkipped.WithLabelValues(reason).Inc()
	}
}

// RecordProjection counts a projection and whether its sigma fell back.
func (m *Manager) RecordProjection(stat string, fellBack bool) {
	if !m.enabled {
		return
	}
	m.projectionsTotal.WithLabelValues(stat).Inc()
	if fellBack {
		m.sigmaFallbacks.WithLabelValues(stat).Inc()
	}
}

// SetRowsWritten records the size of the written projections file.
func (m *Manager) SetRowsWritten(rows int) {
	if m.enabled {
		m.rowsWritten.Set(float64(rows))
	}
}

// RecordProviderRequest records one provider round trip. statusCode is 0
// when no response was received.
func (m *Manager) RecordProviderRequest(endpoint string, statusCode int, d time.Duration) {
	if !m.enabled {
		return
	}
	m.providerRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.providerLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordRun records a finished job run; success also stamps last_success_unix.
func (m *Manager) RecordRun(job string, d time.Duration, success bool, now time.Time) {
	if !m.enabled {
		return
	}
	m.runDuration.WithLabelValues(job).Set(d.Seconds())
	if success {
		m.lastSuccessUnix.WithLabelValues(job).Set(float64(now.Unix()))
	}
}

// SetGeneratedRecords records the number of generated module records.
func (m *Manager) SetGeneratedRecords(n int) {
	if m.enabled {
		m.generatedRecords.Set(float64(n))
	}
}

// Registry returns the registry the collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format for the
// node exporter textfile collector. The write is atomic.
func (m *Manager) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("%w: create directory: %w", ErrTextfileWrite, err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrTextfileWrite, err)
	}
	return nil
}
