package pipeline

import "sync"

// reason is what ended a run.
type reason int

const (
	reasonCompleted reason = iota
	reasonOutOfMemory
	reasonCrash
	reasonRunEnded
	reasonCanceled
)

func (r reason) String() string {
	switch r {
	case reasonCompleted:
		return "completed"
	case reasonOutOfMemory:
		return "out of memory"
	case reasonCrash:
		return "engine crash"
	case reasonRunEnded:
		return "run ended without completion marker"
	case reasonCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// terminal is the first signal that ended a run.
type terminal struct {
	reason reason
	err    error
	// line is the log line of a marker.
	line string
}

// run is the live part of one session. It accepts exactly one terminal
// signal; everything after the first is ignored.
type run struct {
	id   string
	once sync.Once
	done chan struct{}
	sig  terminal
}

func newRun(id string) *run {
	return &run{id: id, done: make(chan struct{})}
}

// signal records t if no signal was recorded yet and reports whether it
// did.
func (r *run) signal(t terminal) bool {
	accepted := false
	r.once.Do(func() {
		r.sig = t
		accepted = true
		close(r.done)
	})
	return accepted
}

// result returns the recorded signal. It must only be called after done
// is closed.
func (r *run) result() terminal {
	<-r.done
	return r.sig
}
