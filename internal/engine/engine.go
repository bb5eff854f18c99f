package engine

import (
	"context"
	"errors"

	"gifmaker/internal/logclass"
)

var (
	// ErrNotLoaded is returned by Handle operations that need a loaded engine.
	ErrNotLoaded = errors.New("engine not loaded")

	// ErrEngineCrashed wraps panics recovered from engine calls.
	ErrEngineCrashed = errors.New("engine crashed")
)

// LogEvent is one line of engine output.
type LogEvent struct {
	Channel logclass.Channel
	Text    string
}

// Engine is an in-process transcoding capability with a private virtual
// filesystem. Implementations need not be safe for concurrent Run calls;
// Handle never issues them.
type Engine interface {
	// Load prepares the engine. It is only called when Loaded is false.
	Load(ctx context.Context) error
	Loaded() bool

	WriteFile(name string, data []byte) error
	ReadFile(name string) ([]byte, error)
	// DeleteFile returns an error matching fs.ErrNotExist for a missing entry.
	DeleteFile(name string) error

	// Run executes one command line. It may never return if the engine
	// dies without noticing; Exit must unblock it.
	Run(ctx context.Context, args ...string) error

	// Exit terminates the engine and discards its filesystem.
	Exit() error

	SetProgress(fn func(ratio float64))
	SetLogger(fn func(LogEvent))
}

// CrashReporter is implemented by engines that can tell when they died
// abruptly, independently of any pending Run.
type CrashReporter interface {
	SetCrashHandler(fn func(error))
}

// Factory creates a new, unloaded engine instance.
type Factory func() Engine
