package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wx_graphics"

// Metrics holds the Prometheus counters, histograms, and gauges for rendering and the request pipeline.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ResultsProduced  prometheus.Counter
	RenderErrors     prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Rendering metrics.
	RenderDuration *prometheus.HistogramVec // labels: kind
	ImagesWritten  *prometheus.CounterVec   // labels: kind

	// Data source metrics.
	FetchRequests *prometheus.CounterVec   // labels: source={nws,uwyo}, outcome={success,error}
	FetchDuration *prometheus.HistogramVec // labels: source
	BoundaryCache *prometheus.CounterVec   // labels: result={hit,miss,evict}

	CatalogRecords prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics and registers them with reg. The CLI
// passes a private registry since it never serves /metrics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total plot requests read from the source topic.",
		}),
		ResultsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "results_produced_total",
			Help:      "Total plot results written to the sink topic.",
		}),
		RenderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_errors_total",
			Help:      "Total plot requests that failed to parse or render.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of plot requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-render-load cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of a single plotting call by kind.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		ImagesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_written_total",
			Help:      "PNG images written by kind.",
		}, []string{"kind"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Remote data requests by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Remote data request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		BoundaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boundary_cache_total",
			Help:      "Boundary layer cache lookups and evictions by result.",
		}, []string{"result"}),
		CatalogRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_records_total",
			Help:      "Rendered products recorded in the catalog.",
		}),
	}

	reg.MustRegister(
		m.RequestsConsumed,
		m.ResultsProduced,
		m.RenderErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.RenderDuration,
		m.ImagesWritten,
		m.FetchRequests,
		m.FetchDuration,
		m.BoundaryCache,
		m.CatalogRecords,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RequestsConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "requests_consumed_total"}),
		ResultsProduced:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "results_produced_total"}),
		RenderErrors:            prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "render_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "batch_processing_duration_seconds"}),
		RenderDuration:          prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "render_duration_seconds"}, []string{"kind"}),
		ImagesWritten:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "images_written_total"}, []string{"kind"}),
		FetchRequests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "fetch_requests_total"}, []string{"source", "outcome"}),
		FetchDuration:           prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "fetch_duration_seconds"}, []string{"source"}),
		BoundaryCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "boundary_cache_total"}, []string{"result"}),
		CatalogRecords:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "catalog_records_total"}),
	}
}
