package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"gifmaker/internal/download"
	"gifmaker/internal/engine"
	"gifmaker/internal/logclass"
	"gifmaker/internal/logging"
	"gifmaker/internal/mediatypes"
	"gifmaker/internal/metrics"
)

// Sentinel errors returned to callers. Engine failures are never returned;
// they end up in the session.
var (
	// ErrNoFile is returned when no file is selected.
	ErrNoFile = errors.New("no file selected")

	// ErrBusy is returned while a conversion is loading or running.
	ErrBusy = errors.New("a conversion is already in progress")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("pipeline closed")
)

// User-facing messages.
const (
	msgEngineLoad   = "The conversion engine could not be started. Please try again."
	msgUnclassified = "The conversion failed unexpectedly. Try a smaller file."
	msgDelivery     = "The GIF was created but could not be saved. Please try again."
)

// runSettleTimeout bounds each wait for a run call that outlived its
// session: once before the engine is disposed and once after.
const runSettleTimeout = 5 * time.Second

// MemoryGuard reports host memory pressure before a conversion starts.
type MemoryGuard interface {
	UnderPressure() bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithParams sets the encoding parameters. Invalid params are ignored.
func WithParams(params Params) Option {
	return func(p *Pipeline) {
		if err := params.Validate(); err != nil {
			logging.Warn("Ignoring invalid conversion parameters: %v", err)
			return
		}
		p.params = params
	}
}

// WithClassifier replaces the default log classifier.
func WithClassifier(c *logclass.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithMemoryGuard sets the guard consulted before each conversion.
func WithMemoryGuard(g MemoryGuard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithClock sets the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline drives one conversion at a time through the shared engine
// handle: Idle, Loading, Running, then Succeeded or Failed.
type Pipeline struct {
	handle     *engine.Handle
	dispatcher download.Dispatcher
	params     Params
	classifier *logclass.Classifier
	guard      MemoryGuard
	now        func() time.Time
	// settleTimeout is runSettleTimeout outside tests.
	settleTimeout time.Duration

	mu      sync.Mutex
	file    *File
	session Session
	active  *run
	closed  bool
	// settling is closed once the previous run call returned or was
	// abandoned.
	settling chan struct{}

	wg sync.WaitGroup
}

// New creates a pipeline that owns handle. The pipeline installs its own
// progress and log observers on the handle.
func New(handle *engine.Handle, dispatcher download.Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		handle:     handle,
		dispatcher: dispatcher,
		params:     DefaultParams(),
		classifier: logclass.Default(),
		now:        time.Now,
		session:    Session{Status: StatusIdle},

		settleTimeout: runSettleTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	handle.SetObservers(p.onProgress, p.onLog)
	return p
}

// Params returns the encoding parameters.
func (p *Pipeline) Params() Params {
	return p.params
}

// Select makes the first of files the current selection and resets the
// session. Any further files are ignored.
func (p *Pipeline) Select(files ...File) error {
	if len(files) == 0 {
		return ErrNoFile
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.session.Status.Busy() {
		return ErrBusy
	}

	f := files[0]
	p.file = &f
	p.session = Session{
		Status:   StatusIdle,
		File:     f.Name,
		FileSize: f.Size(),
	}

	if len(files) > 1 {
		logging.Info("Selected %s; ignoring %d more file(s)", f.Name, len(files)-1)
	} else {
		logging.Debug("Selected %s (%s)", f.Name, humanize.IBytes(uint64(f.Size())))
	}
	if !mediatypes.IsLikelyConvertible(f.Name) {
		logging.Warn("%s does not look like a video (%s); converting anyway", f.Name, mediatypes.MimeType(f.Name))
	}
	return nil
}

// Snapshot returns the current session. Observing a terminal session
// returns the pipeline to Idle; the messages stay until the next
// conversion or selection.
func (p *Pipeline) Snapshot() Session {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s.Status.Terminal() {
		p.session.Status = StatusIdle
	}
	return s
}

// Status returns the current status without observing the session.
func (p *Pipeline) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Status
}

// Convert runs a conversion of the selected file and returns the terminal
// session. Only ErrNoFile, ErrBusy and ErrClosed are returned as errors.
func (p *Pipeline) Convert(ctx context.Context) (Session, error) {
	f, id, err := p.begin()
	if err != nil {
		return Session{}, err
	}
	defer p.wg.Done()
	p.execute(ctx, f, id)
	return p.Snapshot(), nil
}

// Start begins a conversion in the background. The conversion stops when
// ctx is canceled.
func (p *Pipeline) Start(ctx context.Context) error {
	f, id, err := p.begin()
	if err != nil {
		return err
	}
	go func() {
		defer p.wg.Done()
		p.execute(ctx, f, id)
	}()
	return nil
}

// Close tears down the engine and waits for background conversions and
// outstanding run calls to end. It is safe to call more than once.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.handle.Dispose()
	p.wg.Wait()
	return nil
}

// begin enforces single flight and moves the session to Loading. On
// success the caller owns one count of p.wg.
func (p *Pipeline) begin() (File, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case p.closed:
		return File{}, "", ErrClosed
	case p.file == nil:
		metrics.ConversionsRejected.WithLabelValues("no_file").Inc()
		return File{}, "", ErrNoFile
	case p.session.Status.Busy():
		metrics.ConversionsRejected.WithLabelValues("busy").Inc()
		return File{}, "", ErrBusy
	}

	f := *p.file
	id := uuid.NewString()
	p.session = Session{
		ID:        id,
		File:      f.Name,
		FileSize:  f.Size(),
		Status:    StatusLoading,
		StartedAt: p.now(),
	}
	metrics.ConversionsInProgress.Set(1)
	metrics.ConversionProgress.Set(0)
	p.wg.Add(1)
	return f, id, nil
}

// result is the terminal outcome of one session.
type result struct {
	failure  FailureKind
	message  string
	download string
}

func (p *Pipeline) execute(ctx context.Context, f File, id string) {
	logging.Info("Conversion %s started: %s (%s)", id, f.Name, humanize.IBytes(uint64(f.Size())))

	if p.guard != nil && p.guard.UnderPressure() {
		metrics.MemoryPressureConversions.Inc()
		logging.Warn("Host memory is under pressure; converting %s may run out of memory", f.Name)
	}

	p.awaitSettled(ctx)

	if p.isClosed() {
		logging.Warn("Pipeline closed before conversion %s could load the engine", id)
		p.finish(id, result{failure: FailureEngineLoad, message: msgEngineLoad})
		return
	}
	if err := p.handle.EnsureLoaded(ctx); err != nil {
		logging.Error("Engine failed to load: %v", err)
		p.handle.Dispose()
		p.finish(id, result{failure: FailureEngineLoad, message: msgEngineLoad})
		return
	}
	// Close may have disposed before the load above finished.
	if p.isClosed() {
		logging.Warn("Pipeline closed while loading the engine; abandoning conversion %s", id)
		p.handle.Dispose()
		p.finish(id, result{failure: FailureEngineLoad, message: msgEngineLoad})
		return
	}

	output := OutputName(f.Name)
	entry := outputEntry(f.Name, output)

	r := newRun(id)
	p.mu.Lock()
	p.session.Status = StatusRunning
	p.session.Output = output
	p.active = r
	p.mu.Unlock()

	deregister := p.handle.OnFailure(func(err error) {
		if !r.signal(terminal{reason: reasonCrash, err: err}) {
			logging.Debug("Engine failure after session %s ended: %v", id, err)
		}
	})

	res, pending := p.running(ctx, r, f, output, entry)

	deregister()
	p.mu.Lock()
	p.active = nil
	p.mu.Unlock()

	if pending != nil {
		p.settleLater(pending)
	}
	p.finish(id, res)
}

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// pendingRun is a run call still in flight when its session ended.
type pendingRun struct {
	done     <-chan error
	cancel   context.CancelFunc
	disposed bool
}

// running performs the Running state: write, run, wait for the first
// terminal signal, then clean up according to it. A run call that has not
// returned yet is handed back as pending.
func (p *Pipeline) running(ctx context.Context, r *run, f File, output, entry string) (result, *pendingRun) {
	if err := p.handle.WriteInput(f.Name, f.Data); err != nil {
		logging.Error("Failed to write %s into the engine workspace: %v", f.Name, err)
		p.cleanup(f.Name, entry)
		p.handle.Dispose()
		return result{failure: FailureUnclassified, message: msgUnclassified}, nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	runDone := make(chan error, 1)
	go func() {
		runDone <- p.handle.RunPipeline(runCtx, p.params.Args(f.Name, entry)...)
	}()

	returned := false
	select {
	case <-r.done:
	case err := <-runDone:
		returned = true
		// Markers are delivered before the run call returns.
		r.signal(terminal{reason: reasonRunEnded, err: err})
	case <-ctx.Done():
		r.signal(terminal{reason: reasonCanceled, err: ctx.Err()})
	}

	pending := func(disposed bool) *pendingRun {
		if returned {
			cancel()
			return nil
		}
		return &pendingRun{done: runDone, cancel: cancel, disposed: disposed}
	}

	t := r.result()
	switch t.reason {
	case reasonCompleted:
		res := p.complete(ctx, output, entry)
		p.cleanup(f.Name, entry)
		return res, pending(false)

	case reasonOutOfMemory:
		logging.Error("Engine ran out of memory converting %s: %s", f.Name, t.line)
		p.cleanup(f.Name, entry)
		p.handle.Dispose()
		return result{
			failure: FailureOutOfMemory,
			message: p.remediation(f.Name, output),
		}, pending(true)

	default:
		logging.Error("Conversion of %s failed (%s): %v", f.Name, t.reason, t.err)
		p.cleanup(f.Name, entry)
		p.handle.Dispose()
		return result{failure: FailureUnclassified, message: msgUnclassified}, pending(true)
	}
}

// complete reads the output back and hands it to the dispatcher.
func (p *Pipeline) complete(ctx context.Context, output, entry string) result {
	data, err := p.handle.ReadOutput(entry)
	if err != nil {
		logging.Error("Failed to read %s from the engine workspace: %v", entry, err)
		return result{failure: FailureUnclassified, message: msgUnclassified}
	}

	location, err := p.dispatcher.Deliver(ctx, data, output)
	if err != nil {
		logging.Error("Failed to deliver %s: %v", output, err)
		return result{failure: FailureUnclassified, message: msgDelivery}
	}

	return result{
		message:  fmt.Sprintf("%s is ready (%s).", output, humanize.IBytes(uint64(len(data)))),
		download: location,
	}
}

// cleanup deletes the session's workspace entries. Failures are logged
// and counted, never returned.
func (p *Pipeline) cleanup(names ...string) {
	for _, name := range names {
		if err := p.handle.DeleteEntry(name); err != nil {
			metrics.WorkspaceCleanupFailures.Inc()
			logging.Warn("Failed to delete workspace entry %s: %v", name, err)
		}
	}
}

// settleLater waits for pending in the background. The next conversion does
// not load the engine until the wait is over.
func (p *Pipeline) settleLater(pending *pendingRun) {
	settled := make(chan struct{})
	p.mu.Lock()
	p.settling = settled
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(settled)
		p.settle(pending)
	}()
}

// awaitSettled blocks until the previous run call settled or ctx is done.
func (p *Pipeline) awaitSettled(ctx context.Context) {
	p.mu.Lock()
	settled := p.settling
	p.mu.Unlock()
	if settled == nil {
		return
	}
	select {
	case <-settled:
	case <-ctx.Done():
	}
}

// settle stops a run call that outlived its session. The run is canceled
// first, then the engine is disposed if it still has not returned. A run
// that survives disposal is abandoned.
func (p *Pipeline) settle(pending *pendingRun) {
	pending.cancel()

	timer := time.NewTimer(p.settleTimeout)
	defer timer.Stop()

	select {
	case err := <-pending.done:
		if err != nil {
			logging.Debug("Engine run returned after session end: %v", err)
		}
		return
	case <-timer.C:
	}

	if !pending.disposed {
		logging.Warn("Engine run did not return %v after session end; disposing engine", p.settleTimeout)
		p.handle.Dispose()
	}
	timer.Reset(p.settleTimeout)

	select {
	case <-pending.done:
	case <-timer.C:
		logging.Warn("Engine run did not return %v after disposal; abandoning it", p.settleTimeout)
	}
}

func (p *Pipeline) remediation(input, output string) string {
	return fmt.Sprintf("The conversion ran out of memory. Try a shorter or smaller video, "+
		"or run the same conversion locally with FFmpeg, lowering the scale width of %d if it still fails:\n\n%s",
		p.params.Width, p.params.CommandLine(input, output))
}

// finish records the terminal state of session id.
func (p *Pipeline) finish(id string, res result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session.ID != id {
		return
	}

	s := &p.session
	s.FinishedAt = p.now()
	s.Failure = res.failure
	outcome := string(res.failure)
	if res.failure == FailureNone {
		outcome = "succeeded"
		s.Status = StatusSucceeded
		s.Progress = 1
		s.Success = res.message
		s.Download = res.download
		logging.Info("Conversion %s succeeded in %v: %s", id, s.Duration(), s.Download)
	} else {
		s.Status = StatusFailed
		s.Error = res.message
		logging.Warn("Conversion %s failed (%s) after %v", id, res.failure, s.Duration())
	}

	metrics.ConversionsTotal.WithLabelValues(outcome).Inc()
	metrics.ConversionDuration.WithLabelValues(outcome).Observe(s.Duration().Seconds())
	metrics.ConversionsInProgress.Set(0)
	metrics.ConversionProgress.Set(s.Progress)
}

func (p *Pipeline) onProgress(ratio float64) {
	ratio = min(max(ratio, 0), 1)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil || p.session.Status != StatusRunning {
		return
	}
	p.session.Progress = ratio
	metrics.ConversionProgress.Set(ratio)
}

func (p *Pipeline) onLog(ev engine.LogEvent) {
	kind := p.classifier.Classify(ev.Channel, ev.Text)
	metrics.EngineLogLinesTotal.WithLabelValues(string(ev.Channel), kind.String()).Inc()

	if kind == logclass.Noise {
		logging.Debug("[%s] %s", ev.Channel, ev.Text)
		return
	}

	p.mu.Lock()
	r := p.active
	p.mu.Unlock()

	t := terminal{reason: reasonCompleted, line: ev.Text}
	if kind == logclass.FatalMemoryMarker {
		t.reason = reasonOutOfMemory
	}
	if r == nil || !r.signal(t) {
		metrics.LateMarkersIgnored.Inc()
		logging.Debug("Ignoring %s marker outside a running session: %q", kind, ev.Text)
	}
}
