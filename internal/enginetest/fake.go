// Package enginetest provides a scriptable in-memory engine for tests.
package enginetest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"gifmaker/internal/engine"
	"gifmaker/internal/logclass"
)

// Script is executed by Run. It drives the fake through its exported
// helpers and returns what Run should return.
type Script func(ctx context.Context, f *Fake, args []string) error

// Fake is an engine.Engine backed by a map. It is safe for concurrent use.
type Fake struct {
	// LoadErr, if set, is returned by Load.
	LoadErr error
	// WriteErr, if set, is returned by WriteFile.
	WriteErr error
	// Script runs on every Run call. Nil means Succeed.
	Script Script

	mu          sync.Mutex
	loaded      bool
	files       map[string][]byte
	progress    func(float64)
	logger      func(engine.LogEvent)
	crash       func(error)
	exited      chan struct{}
	loads       int
	exits       int
	runs        [][]string
	deleted     []string
	filesAtExit []string
}

// New returns an unloaded fake running script.
func New(script Script) *Fake {
	return &Fake{
		Script: script,
		files:  make(map[string][]byte),
		exited: make(chan struct{}),
	}
}

// Factory returns an engine.Factory that hands out f on every call.
// Exit resets f so it can be loaded again.
func (f *Fake) Factory() engine.Factory {
	return func() engine.Engine { return f }
}

func (f *Fake) Load(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.loaded = true
	f.exited = make(chan struct{})
	return nil
}

func (f *Fake) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

func (f *Fake) WriteFile(name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.files[name] = append([]byte(nil), data...)
	return nil
}

func (f *Fake) ReadFile(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, fs.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (f *Fake) DeleteFile(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[name]; !ok {
		return fmt.Errorf("delete %s: %w", name, fs.ErrNotExist)
	}
	delete(f.files, name)
	f.deleted = append(f.deleted, name)
	return nil
}

func (f *Fake) Run(ctx context.Context, args ...string) error {
	f.mu.Lock()
	f.runs = append(f.runs, append([]string(nil), args...))
	script := f.Script
	f.mu.Unlock()

	if script == nil {
		script = Succeed([]byte("GIF89a"))
	}
	return script(ctx, f, args)
}

func (f *Fake) Exit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exits++
	if !f.loaded {
		return nil
	}
	f.filesAtExit = sortedKeys(f.files)
	f.loaded = false
	f.files = make(map[string][]byte)
	close(f.exited)
	return nil
}

func (f *Fake) SetProgress(fn func(float64)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress = fn
}

func (f *Fake) SetLogger(fn func(engine.LogEvent)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = fn
}

// SetCrashHandler implements engine.CrashReporter.
func (f *Fake) SetCrashHandler(fn func(error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.crash = fn
}

// Progress emits a progress ratio.
func (f *Fake) Progress(ratio float64) {
	f.mu.Lock()
	fn := f.progress
	f.mu.Unlock()
	if fn != nil {
		fn(ratio)
	}
}

// Log emits a log line.
func (f *Fake) Log(channel logclass.Channel, text string) {
	f.mu.Lock()
	fn := f.logger
	f.mu.Unlock()
	if fn != nil {
		fn(engine.LogEvent{Channel: channel, Text: text})
	}
}

// Crash reports an abrupt termination through the crash handler.
func (f *Fake) Crash(err error) {
	f.mu.Lock()
	fn := f.crash
	f.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Put writes an entry from inside a script, bypassing WriteErr.
func (f *Fake) Put(name string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[name] = append([]byte(nil), data...)
}

// WaitExit blocks until Exit is called or ctx is done.
func (f *Fake) WaitExit(ctx context.Context) error {
	f.mu.Lock()
	ch := f.exited
	f.mu.Unlock()
	select {
	case <-ch:
		return errors.New("engine exited")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Files returns the names currently stored.
func (f *Fake) Files() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return sortedKeys(f.files)
}

// FilesAtExit returns the entries that were still stored when Exit last
// discarded a loaded filesystem.
func (f *Fake) FilesAtExit() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.filesAtExit...)
}

// Deleted returns the names removed through DeleteFile, in order.
func (f *Fake) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Runs returns the argument lists of every Run call.
func (f *Fake) Runs() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.runs))
	copy(out, f.runs)
	return out
}

// Loads returns how many times Load was called.
func (f *Fake) Loads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loads
}

// Exits returns how many times Exit was called.
func (f *Fake) Exits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exits
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Output returns the workspace entry a command line writes: its last
// argument without the file: protocol.
func Output(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimPrefix(args[len(args)-1], "file:")
}

// Succeed writes gif to the output entry, reports progress and then the
// completion sentinel, like a clean engine run.
func Succeed(gif []byte, ratios ...float64) Script {
	return func(_ context.Context, f *Fake, args []string) error {
		for _, r := range ratios {
			f.Progress(r)
		}
		f.Log(logclass.StdErr, "frame=   42 fps=20 q=-0.0 Lsize=    512kB time=00:00:02.10")
		f.Put(Output(args), gif)
		f.Log(logclass.StdOut, logclass.EndSentinel)
		return nil
	}
}

// OutOfMemory reports progress, writes a partial output, prints the OOM
// line and then hangs until the engine is exited, like a crashed wasm
// worker whose run promise never settles.
func OutOfMemory(line string, ratios ...float64) Script {
	return func(ctx context.Context, f *Fake, args []string) error {
		for _, r := range ratios {
			f.Progress(r)
		}
		f.Put(Output(args), []byte("partial"))
		f.Log(logclass.StdErr, line)
		return f.WaitExit(ctx)
	}
}

// CrashScript reports an abrupt termination out of band and hangs.
func CrashScript(err error) Script {
	return func(ctx context.Context, f *Fake, _ []string) error {
		f.Progress(0.2)
		f.Crash(err)
		return f.WaitExit(ctx)
	}
}

// Fail returns err from Run without printing any marker.
func Fail(err error) Script {
	return func(_ context.Context, f *Fake, _ []string) error {
		f.Log(logclass.StdErr, "Invalid data found when processing input")
		return err
	}
}

// Hang blocks until the engine is exited or ctx is done.
func Hang() Script {
	return func(ctx context.Context, f *Fake, _ []string) error {
		return f.WaitExit(ctx)
	}
}

// Panic panics inside Run.
func Panic(v any) Script {
	return func(_ context.Context, _ *Fake, _ []string) error {
		panic(v)
	}
}
