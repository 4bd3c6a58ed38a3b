package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "city_sensor"

// Metrics holds the Prometheus counters, histograms, and gauges for the ingestion pipeline.
type Metrics struct {
	Ingestions        *prometheus.CounterVec // labels: outcome={real,demo}
	StaleBatches      prometheus.Counter
	Rows              *prometheus.CounterVec // labels: result={valid,invalid}
	CoordinateRepairs *prometheus.CounterVec // labels: action={swapped,centered,jittered}
	PublishedRecords  prometheus.Gauge
	UsingDemoData     prometheus.Gauge

	// Batch processing metrics.
	IngestionDuration prometheus.Histogram

	// Dataset fetch metrics.
	FetchRequests *prometheus.CounterVec   // labels: source={http,file}, outcome={success,error}
	FetchCache    *prometheus.CounterVec   // labels: result={hit,miss}
	FetchDuration *prometheus.HistogramVec // labels: source={http,file}

	// Notification metrics.
	WebsocketClients prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)

	prometheus.MustRegister(
		m.Ingestions,
		m.StaleBatches,
		m.Rows,
		m.CoordinateRepairs,
		m.PublishedRecords,
		m.UsingDemoData,
		m.IngestionDuration,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.WebsocketClients,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}

func newMetrics(withHelp bool) *Metrics {
	help := func(s string) string {
		if withHelp {
			return s
		}
		return ""
	}

	return &Metrics{
		Ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      help("Published ingestion batches by outcome."),
		}, []string{"outcome"}),
		StaleBatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_batches_total",
			Help:      help("Batches discarded because a newer batch started."),
		}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      help("Input rows by normalization result."),
		}, []string{"result"}),
		CoordinateRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordinate_repairs_total",
			Help:      help("Coordinate repairs by action."),
		}, []string{"action"}),
		PublishedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "published_records",
			Help:      help("Records in the current snapshot."),
		}),
		UsingDemoData: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "using_demo_data",
			Help:      help("1 when the current snapshot holds demonstration data, 0 otherwise."),
		}),
		IngestionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingestion_duration_seconds",
			Help:      help("Duration of a complete fetch-parse-normalize-aggregate cycle."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      help("Dataset fetches by source and outcome."),
		}, []string{"source", "outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      help("Dataset cache lookups by result."),
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      help("Dataset fetch duration in seconds."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		WebsocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      help("Connected snapshot notification clients."),
		}),
	}
}
