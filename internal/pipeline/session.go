package pipeline

import "time"

// Status is the state of the conversion session.
type Status string

// Session states. Idle and the two terminal states accept a new
// conversion; Loading and Running do not.
const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s ends a session.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Busy reports whether a conversion is in flight.
func (s Status) Busy() bool {
	return s == StatusLoading || s == StatusRunning
}

// FailureKind classifies why a session failed.
type FailureKind string

// Failure kinds.
const (
	FailureNone         FailureKind = ""
	FailureEngineLoad   FailureKind = "engine_load"
	FailureOutOfMemory  FailureKind = "out_of_memory"
	FailureUnclassified FailureKind = "unclassified"
)

// Session is a snapshot of the conversion session. Exactly one of Error
// and Success is set once a session has ended.
type Session struct {
	// ID identifies one conversion attempt; empty until the first one.
	ID       string  `json:"id,omitempty"`
	File     string  `json:"file,omitempty"`
	FileSize int64   `json:"fileSize,omitempty"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`

	Error   string      `json:"error,omitempty"`
	Success string      `json:"success,omitempty"`
	Failure FailureKind `json:"failure,omitempty"`

	// Output is the derived GIF name.
	Output string `json:"output,omitempty"`
	// Download is where the dispatcher put the GIF.
	Download string `json:"download,omitempty"`

	StartedAt  time.Time `json:"startedAt,omitzero"`
	FinishedAt time.Time `json:"finishedAt,omitzero"`
}

// Duration returns how long the last conversion took, or zero while it
// has not finished.
func (s Session) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
