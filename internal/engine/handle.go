package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"gifmaker/internal/logging"
	"gifmaker/internal/metrics"
)

// Handle owns the single shared engine instance. It recreates the
// instance after Dispose and routes engine callbacks to the observers
// registered with SetObservers.
type Handle struct {
	factory Factory

	mu        sync.Mutex
	eng       Engine
	instances int

	obsMu    sync.RWMutex
	progress func(float64)
	logFn    func(LogEvent)

	hookMu   sync.Mutex
	hooks    map[uint64]func(error)
	nextHook uint64
}

// NewHandle creates a handle that builds engine instances with factory.
func NewHandle(factory Factory) *Handle {
	return &Handle{
		factory: factory,
		hooks:   make(map[uint64]func(error)),
	}
}

// SetObservers sets the callbacks that receive progress ratios and log
// lines from every engine instance this handle loads.
func (h *Handle) SetObservers(progress func(float64), log func(LogEvent)) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.progress = progress
	h.logFn = log
}

func (h *Handle) emitProgress(ratio float64) {
	h.obsMu.RLock()
	fn := h.progress
	h.obsMu.RUnlock()
	if fn != nil {
		fn(ratio)
	}
}

func (h *Handle) emitLog(ev LogEvent) {
	h.obsMu.RLock()
	fn := h.logFn
	h.obsMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

// OnFailure registers fn to receive unhandled engine failures until the
// returned function is called.
func (h *Handle) OnFailure(fn func(error)) (deregister func()) {
	h.hookMu.Lock()
	id := h.nextHook
	h.nextHook++
	h.hooks[id] = fn
	h.hookMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.hookMu.Lock()
			delete(h.hooks, id)
			h.hookMu.Unlock()
		})
	}
}

// Fail delivers err to every registered failure hook.
func (h *Handle) Fail(source string, err error) {
	metrics.EngineFailuresTotal.WithLabelValues(source).Inc()
	logging.Error("Unhandled engine failure (%s): %v", source, err)

	h.hookMu.Lock()
	hooks := make([]func(error), 0, len(h.hooks))
	for _, fn := range h.hooks {
		hooks = append(hooks, fn)
	}
	h.hookMu.Unlock()

	for _, fn := range hooks {
		fn(err)
	}
}

// EnsureLoaded loads the engine unless it is already loaded. A disposed
// engine is replaced by a fresh instance.
func (h *Handle) EnsureLoaded(ctx context.Context) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.eng == nil {
		h.eng = h.factory()
		h.instances++
	}
	eng := h.eng
	if eng.Loaded() {
		return nil
	}

	eng.SetProgress(h.emitProgress)
	eng.SetLogger(h.emitLog)
	if cr, ok := eng.(CrashReporter); ok {
		cr.SetCrashHandler(func(err error) { h.Fail("crash", err) })
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: load: %v", ErrEngineCrashed, r)
		}
		metrics.EngineLoadDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.EngineLoadsTotal.WithLabelValues("error").Inc()
			return
		}
		metrics.EngineLoadsTotal.WithLabelValues("success").Inc()
		metrics.EngineLoaded.Set(1)
		logging.Info("Engine loaded in %v", time.Since(start))
	}()

	return eng.Load(ctx)
}

// Loaded reports whether a loaded engine instance is held.
func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.eng != nil && h.eng.Loaded()
}

// Instances returns how many engine instances have been created.
func (h *Handle) Instances() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.instances
}

func (h *Handle) current() (Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.eng == nil || !h.eng.Loaded() {
		return nil, ErrNotLoaded
	}
	return h.eng, nil
}

// WriteInput stores data in the engine's filesystem under name.
func (h *Handle) WriteInput(name string, data []byte) (err error) {
	eng, err := h.current()
	if err != nil {
		return err
	}
	defer h.recoverInto("write", &err)
	return eng.WriteFile(name, data)
}

// ReadOutput returns the named entry from the engine's filesystem.
func (h *Handle) ReadOutput(name string) (data []byte, err error) {
	eng, err := h.current()
	if err != nil {
		return nil, err
	}
	defer h.recoverInto("read", &err)
	return eng.ReadFile(name)
}

// DeleteEntry removes the named entry. Missing entries and an unloaded
// engine are not errors.
func (h *Handle) DeleteEntry(name string) (err error) {
	eng, err := h.current()
	if err != nil {
		return nil
	}
	defer h.recoverInto("delete", &err)
	if err := eng.DeleteFile(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// RunPipeline runs one command line and blocks until the engine returns.
// A panic inside the engine is reported to the failure hooks.
func (h *Handle) RunPipeline(ctx context.Context, args ...string) (err error) {
	eng, err := h.current()
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: run: %v", ErrEngineCrashed, r)
			h.Fail("panic", err)
		}
	}()
	return eng.Run(ctx, args...)
}

// Dispose terminates the current engine instance. It never fails and may
// be called at any time, including concurrently with RunPipeline.
func (h *Handle) Dispose() {
	h.mu.Lock()
	eng := h.eng
	h.eng = nil
	h.mu.Unlock()

	if eng == nil {
		return
	}

	metrics.EngineDisposalsTotal.Inc()
	metrics.EngineLoaded.Set(0)

	defer func() {
		if r := recover(); r != nil {
			logging.Warn("Engine panicked during exit: %v", r)
		}
	}()
	if err := eng.Exit(); err != nil {
		logging.Warn("Engine exit failed: %v", err)
		return
	}
	logging.Debug("Engine disposed")
}

func (h *Handle) recoverInto(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %s: %v", ErrEngineCrashed, op, r)
		h.Fail("panic", *err)
	}
}
