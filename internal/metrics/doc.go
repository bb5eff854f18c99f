// Package metrics provides Prometheus instrumentation for gifmaker.
//
// All metrics are prefixed with "gifmaker_" and registered on the default
// registry with promauto. Mount promhttp.Handler() to expose them.
//
// # Metric Categories
//
// HTTP: request counts, durations, in-flight requests and upload sizes.
//
// Conversion: finished conversions by outcome ("succeeded", "engine_load",
// "out_of_memory", "unclassified"), wall time, rejected requests, live
// progress, and terminal markers that arrived after their session ended.
//
// Engine: loads, disposals, unhandled failures, and every log line by
// channel and classification.
//
// Workspace: duration and errors of operations on the engine's scratch
// workspace, plus entries that survived session cleanup.
//
// Downloads: pending artifacts and delivered bytes.
//
// Memory: GOMEMLIMIT, Go heap, host memory usage and pressure.
//
// # Prometheus Queries
//
// Out-of-memory share of conversions:
//
//	sum(rate(gifmaker_conversions_total{outcome="out_of_memory"}[1h])) /
//	sum(rate(gifmaker_conversions_total[1h]))
//
// P95 conversion time:
//
//	histogram_quantile(0.95, sum(rate(gifmaker_conversion_duration_seconds_bucket[1h])) by (le))
//
// Leaked workspace entries (should stay at zero):
//
//	increase(gifmaker_workspace_cleanup_failures_total[1d])
package metrics
