package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation pipeline.
type Metrics struct {
	FilesScanned      prometheus.Counter
	FeaturesParsed    prometheus.Counter
	ParseErrors       prometheus.Counter
	DetectionsAdded   prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	RunsTotal         prometheus.Counter
	RunsFailed        prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Scan cycle metrics.
	ScanDuration prometheus.Histogram
	WindowSize   prometheus.Gauge

	// Kafka publishing metrics.
	DetectionsPublished prometheus.Counter
	PublishErrors       prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FilesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "files_scanned_total",
			Help:      "Total product files read from the source tree.",
		}),
		FeaturesParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "features_parsed_total",
			Help:      "Total GeoJSON features parsed from product files.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "parse_errors_total",
			Help:      "Total features skipped because they could not be parsed.",
		}),
		DetectionsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "detections_added_total",
			Help:      "Total detections newly added to the year aggregate.",
		}),
		DuplicatesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "duplicates_skipped_total",
			Help:      "Total detections skipped because their ID was already aggregated.",
		}),
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "runs_total",
			Help:      "Total aggregation runs attempted.",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "runs_failed_total",
			Help:      "Total aggregation runs that failed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sfide_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sfide_etl",
			Name:      "scan_duration_seconds",
			Help:      "Duration of a complete scan-transform-aggregate cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		WindowSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sfide_etl",
			Name:      "window_detections",
			Help:      "Detections currently inside the rolling window layer.",
		}),
		DetectionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "detections_published_total",
			Help:      "Total detections published to the Kafka sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "publish_errors_total",
			Help:      "Total failed Kafka publish batches.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sfide_etl",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sfide_etl",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sfide_etl",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.FilesScanned,
		m.FeaturesParsed,
		m.ParseErrors,
		m.DetectionsAdded,
		m.DuplicatesSkipped,
		m.RunsTotal,
		m.RunsFailed,
		m.PipelineRunning,
		m.ScanDuration,
		m.WindowSize,
		m.DetectionsPublished,
		m.PublishErrors,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with unregistered collectors to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FilesScanned:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "files_scanned_total"}),
		FeaturesParsed:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "features_parsed_total"}),
		ParseErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "parse_errors_total"}),
		DetectionsAdded:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "detections_added_total"}),
		DuplicatesSkipped:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "duplicates_skipped_total"}),
		RunsTotal:           prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "runs_total"}),
		RunsFailed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "runs_failed_total"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sfide_etl", Name: "pipeline_running"}),
		ScanDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sfide_etl", Name: "scan_duration_seconds"}),
		WindowSize:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sfide_etl", Name: "window_detections"}),
		DetectionsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "detections_published_total"}),
		PublishErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "publish_errors_total"}),
		GeocodeRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sfide_etl", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeAPIDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sfide_etl", Name: "geocode_api_duration_seconds"}),
		GeocodeEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sfide_etl", Name: "geocode_enabled"}),
	}
}
