package metrics

import "gifmaker/internal/vfs"

// workspaceObserver implements vfs.Observer using the Prometheus
// metrics declared in this package.
type workspaceObserver struct{}

// NewWorkspaceObserver creates an observer that records engine workspace
// operations into the histograms and counters declared in metrics.go.
func NewWorkspaceObserver() vfs.Observer {
	return workspaceObserver{}
}

func (workspaceObserver) ObserveOperation(operation string, durationSeconds float64, err error) {
	WorkspaceOperationDuration.WithLabelValues(operation).Observe(durationSeconds)
	if err != nil {
		WorkspaceOperationErrors.WithLabelValues(operation).Inc()
	}
}
