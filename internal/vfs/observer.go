package vfs

// Observer records workspace operation metrics. Implementations are provided
// by the metrics package to break the import cycle between vfs and metrics.
type Observer interface {
	// ObserveOperation records duration and error status for one operation.
	// operation is one of "create", "write", "read", "remove", "list", "destroy".
	ObserveOperation(operation string, durationSeconds float64, err error)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is silently skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup after creating the observer implementation.
func SetObserver(o Observer) {
	defaultObserver = o
}
