package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/gofrs/flock"

	"gifmaker/internal/engine"
	"gifmaker/internal/logclass"
	"gifmaker/internal/logging"
	"gifmaker/internal/vfs"
)

// DefaultBinary is the FFmpeg executable looked up on PATH.
const DefaultBinary = "ffmpeg"

const (
	workspacePattern = "ws-*"
	lockSuffix       = ".lock"
)

// Sentinel errors for the FFmpeg engine.
var (
	// ErrBinaryNotFound is returned by Load when the FFmpeg executable
	// cannot be found.
	ErrBinaryNotFound = errors.New("ffmpeg binary not found")

	// ErrRunning is returned by Run while another run is in progress.
	ErrRunning = errors.New("ffmpeg is already running")

	// ErrExited is returned by a run that was stopped by Exit.
	ErrExited = errors.New("ffmpeg engine exited")

	// ErrWorkspaceLocked is returned when a fresh workspace is already
	// locked by someone else.
	ErrWorkspaceLocked = errors.New("workspace is locked")
)

// globalArgs are prepended to every command line.
var globalArgs = []string{"-hide_banner", "-nostdin", "-y"}

// Config configures an Engine.
type Config struct {
	// Binary is the FFmpeg executable name or path.
	Binary string
	// WorkDir is the parent directory of engine workspaces. Empty means
	// the system temporary directory.
	WorkDir string
}

// Engine runs FFmpeg as a child process inside a private workspace. It
// implements engine.Engine and engine.CrashReporter.
type Engine struct {
	cfg Config

	mu       sync.Mutex
	binary   string
	store    *vfs.Store
	lock     *flock.Flock
	cmd      *exec.Cmd
	stopped  bool
	progress func(float64)
	logger   func(engine.LogEvent)
	crash    func(error)
}

// New creates an unloaded engine.
func New(cfg Config) *Engine {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	return &Engine{cfg: cfg}
}

// Factory returns an engine.Factory creating engines with cfg.
func Factory(cfg Config) engine.Factory {
	return func() engine.Engine { return New(cfg) }
}

// Load resolves the binary and creates a locked workspace.
func (e *Engine) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	binary, err := exec.LookPath(e.cfg.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrBinaryNotFound, e.cfg.Binary, err)
	}

	store, err := vfs.Create(e.cfg.WorkDir, workspacePattern)
	if err != nil {
		return err
	}

	lock := flock.New(store.Dir() + lockSuffix)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		_ = store.Destroy()
		if err == nil {
			err = ErrWorkspaceLocked
		}
		return fmt.Errorf("failed to lock workspace: %w", err)
	}

	e.mu.Lock()
	e.binary = binary
	e.store = store
	e.lock = lock
	e.stopped = false
	e.mu.Unlock()

	e.emitLog(logclass.Info, fmt.Sprintf("ffmpeg loaded: %s, workspace %s", binary, store.Dir()))
	return nil
}

// Loaded reports whether the engine holds a workspace.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store != nil
}

func (e *Engine) workspace() (*vfs.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return nil, engine.ErrNotLoaded
	}
	return e.store, nil
}

func (e *Engine) WriteFile(name string, data []byte) error {
	store, err := e.workspace()
	if err != nil {
		return err
	}
	return store.Write(name, data)
}

func (e *Engine) ReadFile(name string) ([]byte, error) {
	store, err := e.workspace()
	if err != nil {
		return nil, err
	}
	return store.Read(name)
}

func (e *Engine) DeleteFile(name string) error {
	store, err := e.workspace()
	if err != nil {
		return err
	}
	return store.Remove(name)
}

// Workdir returns the current workspace directory, or "" when unloaded.
func (e *Engine) Workdir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.store == nil {
		return ""
	}
	return e.store.Dir()
}

// Run executes FFmpeg with args in the workspace. Output lines go to the
// logger; a clean exit is followed by the completion sentinel on StdOut.
func (e *Engine) Run(ctx context.Context, args ...string) error {
	e.mu.Lock()
	if e.store == nil {
		e.mu.Unlock()
		return engine.ErrNotLoaded
	}
	if e.cmd != nil {
		e.mu.Unlock()
		return ErrRunning
	}

	full := append(append([]string(nil), globalArgs...), args...)
	cmd := exec.CommandContext(ctx, e.binary, full...)
	cmd.Dir = e.store.Dir()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	e.cmd = cmd
	e.mu.Unlock()
	e.emitLog(logclass.Info, "run: ffmpeg "+strings.Join(full, " "))

	tracker := &progressTracker{}
	var lastErrLine string
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.pump(stdout, func(line string) {
			e.emitLog(logclass.StdOut, line)
		})
	}()
	go func() {
		defer wg.Done()
		e.pump(stderr, func(line string) {
			if ratio, ok := tracker.Observe(line); ok {
				e.emitProgress(ratio)
			}
			lastErrLine = line
			e.emitLog(logclass.StdErr, line)
		})
	}()
	wg.Wait()
	waitErr := cmd.Wait()

	e.mu.Lock()
	e.cmd = nil
	stopped := e.stopped
	e.mu.Unlock()

	switch {
	case waitErr == nil:
		e.emitProgress(1)
		e.emitLog(logclass.StdOut, logclass.EndSentinel)
		return nil
	case stopped:
		return ErrExited
	case ctx.Err() != nil:
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			crashErr := fmt.Errorf("ffmpeg killed by signal: %v", ws.Signal())
			e.emitCrash(crashErr)
			return crashErr
		}
	}
	if lastErrLine != "" {
		return fmt.Errorf("ffmpeg failed: %w: %s", waitErr, lastErrLine)
	}
	return fmt.Errorf("ffmpeg failed: %w", waitErr)
}

func (e *Engine) pump(r io.Reader, emit func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		if line := scanner.Text(); strings.TrimSpace(line) != "" {
			emit(line)
		}
	}
	if err := scanner.Err(); err != nil {
		logging.Debug("ffmpeg output reader stopped: %v", err)
		// Keep draining so the process never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

// Exit kills a running process and destroys the workspace. It is safe to
// call when nothing is loaded.
func (e *Engine) Exit() error {
	e.mu.Lock()
	store, lock, cmd := e.store, e.lock, e.cmd
	e.store, e.lock = nil, nil
	if cmd != nil {
		e.stopped = true
	}
	e.mu.Unlock()

	if store == nil {
		return nil
	}

	var errs []error
	if cmd != nil && cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("failed to kill ffmpeg: %w", err))
		}
	}
	if err := store.Destroy(); err != nil {
		errs = append(errs, err)
	}
	if lock != nil {
		if err := lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("failed to release workspace lock: %w", err))
		}
		if err := os.Remove(lock.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) SetProgress(fn func(ratio float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.progress = fn
}

func (e *Engine) SetLogger(fn func(engine.LogEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = fn
}

// SetCrashHandler sets the function told about a process killed by a
// signal the engine did not send.
func (e *Engine) SetCrashHandler(fn func(error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.crash = fn
}

func (e *Engine) emitProgress(ratio float64) {
	e.mu.Lock()
	fn := e.progress
	e.mu.Unlock()
	if fn != nil {
		fn(ratio)
	}
}

func (e *Engine) emitLog(channel logclass.Channel, text string) {
	e.mu.Lock()
	fn := e.logger
	e.mu.Unlock()
	if fn != nil {
		fn(engine.LogEvent{Channel: channel, Text: text})
	}
}

func (e *Engine) emitCrash(err error) {
	e.mu.Lock()
	fn := e.crash
	e.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

// Version returns the first line of "ffmpeg -version".
func Version(ctx context.Context, binary string) (string, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s -version: %w", binary, err)
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(line)), nil
}

// Available reports whether binary can be found.
func Available(binary string) bool {
	if binary == "" {
		binary = DefaultBinary
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// SweepStale removes workspaces under root whose owning process is gone,
// detected by their lock file no longer being held. It returns how many
// workspaces were removed.
func SweepStale(root string) (int, error) {
	dirs, err := filepath.Glob(filepath.Join(root, workspacePattern))
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, dir := range dirs {
		if strings.HasSuffix(dir, lockSuffix) {
			continue
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		lock := flock.New(dir + lockSuffix)
		ok, err := lock.TryLock()
		if err != nil || !ok {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		} else {
			removed++
			logging.Info("Removed stale engine workspace %s", dir)
		}
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}
	return removed, errors.Join(errs...)
}
