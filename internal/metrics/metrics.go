package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifmaker_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gifmaker_upload_bytes",
			Help:    "Size of selected video files in bytes",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1 MiB .. 2 GiB
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_conversions_total",
			Help: "Total number of finished conversions by outcome",
		},
		[]string{"outcome"}, // "succeeded", "engine_load", "out_of_memory", "unclassified"
	)

	ConversionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifmaker_conversion_duration_seconds",
			Help:    "Wall time from conversion request to terminal state",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"outcome"},
	)

	ConversionsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_conversions_in_progress",
			Help: "Whether a conversion is currently loading or running (0 or 1)",
		},
	)

	ConversionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_conversions_rejected_total",
			Help: "Conversion requests rejected before starting",
		},
		[]string{"reason"}, // "busy", "no_file"
	)

	ConversionProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_conversion_progress_ratio",
			Help: "Progress of the current conversion (0.0-1.0)",
		},
	)

	LateMarkersIgnored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifmaker_late_markers_ignored_total",
			Help: "Terminal log markers observed after their session had already ended",
		},
	)
)

// Engine metrics
var (
	EngineLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_engine_loads_total",
			Help: "Total number of engine load attempts by status",
		},
		[]string{"status"},
	)

	EngineLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gifmaker_engine_load_duration_seconds",
			Help:    "Engine load duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	EngineDisposalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifmaker_engine_disposals_total",
			Help: "Total number of engine instances disposed",
		},
	)

	EngineFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_engine_failures_total",
			Help: "Unhandled engine failures by source",
		},
		[]string{"source"}, // "crash", "panic"
	)

	EngineLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_engine_loaded",
			Help: "Whether an engine instance is currently loaded (0 or 1)",
		},
	)

	EngineLogLinesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_engine_log_lines_total",
			Help: "Engine log lines by channel and classification",
		},
		[]string{"channel", "kind"},
	)
)

// Workspace (engine virtual filesystem) metrics
var (
	WorkspaceOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gifmaker_workspace_operation_duration_seconds",
			Help:    "Duration of engine workspace operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	WorkspaceOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_workspace_operation_errors_total",
			Help: "Failed engine workspace operations",
		},
		[]string{"operation"},
	)

	WorkspaceCleanupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifmaker_workspace_cleanup_failures_total",
			Help: "Workspace entries that could not be deleted at the end of a session",
		},
	)
)

// Download metrics
var (
	DownloadsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_downloads_pending",
			Help: "Finished GIFs waiting to be fetched",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gifmaker_downloads_total",
			Help: "Delivered artifacts by result",
		},
		[]string{"result"}, // "delivered", "served", "expired", "failed"
	)

	DownloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifmaker_download_bytes_total",
			Help: "Total bytes of GIF output delivered",
		},
	)
)

// Memory metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 if not set)",
		},
	)

	GoMemAllocBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_go_memory_alloc_bytes",
			Help: "Current Go heap allocation in bytes",
		},
	)

	HostMemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_host_memory_usage_ratio",
			Help: "Host memory in use as a ratio of total (0.0-1.0)",
		},
	)

	HostMemoryAvailableBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_host_memory_available_bytes",
			Help: "Host memory available for new allocations",
		},
	)

	MemoryPressure = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gifmaker_memory_pressure",
			Help: "Whether host memory is above the high-water mark (0 or 1)",
		},
	)

	MemoryPressureConversions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gifmaker_memory_pressure_conversions_total",
			Help: "Conversions started while host memory was under pressure",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gifmaker_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
