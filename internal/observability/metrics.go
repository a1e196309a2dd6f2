package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fews_client"

// Metrics holds the Prometheus counters, histograms, and gauges for the FEWS
// client and the exporter built on it.
type Metrics struct {
	// FEWS web service metrics.
	Requests        *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	RequestDuration *prometheus.HistogramVec // labels: endpoint
	Cache           *prometheus.CounterVec   // labels: result={hit,miss}

	// Decoder metrics.
	SeriesDecoded prometheus.Counter
	SeriesSkipped prometheus.Counter
	MissingValues prometheus.Counter

	// Exporter metrics.
	ExportsCompleted prometheus.Counter
	ExportErrors     prometheus.Counter
	MessagesProduced prometheus.Counter
	ExportDuration   prometheus.Histogram
	ExporterRunning  prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "FEWS web service requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "FEWS web service request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_total",
			Help:      "Time-series cache lookups by result.",
		}, []string{"result"}),
		SeriesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_decoded_total",
			Help:      "Time series decoded into dataset variables.",
		}),
		SeriesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_skipped_total",
			Help:      "Time series dropped because they carried no events.",
		}),
		MissingValues: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_values_total",
			Help:      "Event values decoded as missing (sentinel or unparseable).",
		}),
		ExportsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_completed_total",
			Help:      "Fetch, decode, and publish cycles that completed.",
		}),
		ExportErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_errors_total",
			Help:      "Export cycles that failed.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Dataset variable messages written to the sink topic.",
		}),
		ExportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Duration of a complete fetch, decode, and publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ExporterRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exporter_running",
			Help:      "1 when the exporter loop is active, 0 when shut down.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Requests,
		m.RequestDuration,
		m.Cache,
		m.SeriesDecoded,
		m.SeriesSkipped,
		m.MissingValues,
		m.ExportsCompleted,
		m.ExportErrors,
		m.MessagesProduced,
		m.ExportDuration,
		m.ExporterRunning,
	)

	return m
}

// NewUnregisteredMetrics creates Metrics that are not added to the default
// registry, for short-lived processes that never serve /metrics.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveDataset records decoder statistics for a decoded dataset.
func (m *Metrics) ObserveDataset(decoded, skipped, missing int) {
	m.SeriesDecoded.Add(float64(decoded))
	m.SeriesSkipped.Add(float64(skipped))
	m.MissingValues.Add(float64(missing))
}
