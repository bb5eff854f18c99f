package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, outcome := range []string{"succeeded", "engine_load", "out_of_memory", "unclassified"} {
		ConversionsTotal.WithLabelValues(outcome)
		ConversionDuration.WithLabelValues(outcome)
	}

	for _, reason := range []string{"busy", "no_file"} {
		ConversionsRejected.WithLabelValues(reason)
	}

	for _, status := range []string{"success", "error"} {
		EngineLoadsTotal.WithLabelValues(status)
	}

	for _, source := range []string{"crash", "panic"} {
		EngineFailuresTotal.WithLabelValues(source)
	}

	for _, channel := range []string{"ffout", "fferr", "info"} {
		for _, kind := range []string{"noise", "completion", "fatal_memory"} {
			EngineLogLinesTotal.WithLabelValues(channel, kind)
		}
	}

	for _, op := range []string{"create", "write", "read", "remove", "list", "destroy"} {
		WorkspaceOperationDuration.WithLabelValues(op)
		WorkspaceOperationErrors.WithLabelValues(op)
	}

	for _, result := range []string{"delivered", "served", "expired", "failed"} {
		DownloadsTotal.WithLabelValues(result)
	}
}
