package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/mem"

	"gifmaker/internal/logging"
	"gifmaker/internal/metrics"
)

// Config holds host memory monitoring configuration
type Config struct {
	// HighWaterMark is the used share of host memory (0.0-1.0) at which
	// conversions are considered at risk of running out of memory.
	HighWaterMark float64

	// RecoverWaterMark is the used share below which pressure clears.
	RecoverWaterMark float64

	// CheckInterval is how often to sample host memory
	CheckInterval time.Duration
}

// DefaultConfig returns sensible defaults for host memory monitoring
func DefaultConfig() Config {
	return Config{
		HighWaterMark:    0.85,
		RecoverWaterMark: 0.75,
		CheckInterval:    5 * time.Second,
	}
}

// Sample is one reading of host memory.
type Sample struct {
	Total     uint64
	Available uint64
	// UsedRatio is the share of Total not available (0.0-1.0).
	UsedRatio float64
}

// Sampler reads host memory.
type Sampler func(ctx context.Context) (Sample, error)

// HostSampler reads host memory with gopsutil.
func HostSampler(ctx context.Context) (Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, err
	}
	s := Sample{Total: vm.Total, Available: vm.Available}
	if vm.Total > 0 {
		s.UsedRatio = 1 - float64(vm.Available)/float64(vm.Total)
	}
	return s, nil
}

// Monitor samples host memory in the background and tells the conversion
// pipeline when a new conversion is likely to exhaust it.
type Monitor struct {
	config Config
	sample Sampler

	mu        sync.RWMutex
	last      Sample
	sampled   bool
	pressured bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	done      chan struct{}
}

// NewMonitor creates a monitor. A nil sampler means HostSampler.
func NewMonitor(config Config, sampler Sampler) *Monitor {
	def := DefaultConfig()
	if config.HighWaterMark <= 0 || config.HighWaterMark > 1 {
		config.HighWaterMark = def.HighWaterMark
	}
	if config.RecoverWaterMark <= 0 || config.RecoverWaterMark > config.HighWaterMark {
		config.RecoverWaterMark = config.HighWaterMark - 0.1
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = def.CheckInterval
	}
	if sampler == nil {
		sampler = HostSampler
	}
	return &Monitor{
		config:   config,
		sample:   sampler,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins monitoring host memory
func (m *Monitor) Start() {
	m.startOnce.Do(func() {
		go m.monitorLoop()
	})
}

// Stop stops the monitor and waits for the loop to exit. It is safe to
// call without Start.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	started := true
	m.startOnce.Do(func() { started = false })
	if started {
		<-m.done
	}
}

func (m *Monitor) monitorLoop() {
	defer close(m.done)

	m.check()

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.CheckInterval)
	defer cancel()
	if err := m.Check(ctx); err != nil {
		logging.Debug("Host memory sample failed: %v", err)
	}
}

// Check samples host memory now and updates the pressure state.
func (m *Monitor) Check(ctx context.Context) error {
	s, err := m.sample(ctx)
	if err != nil {
		return err
	}

	metrics.HostMemoryUsageRatio.Set(s.UsedRatio)
	metrics.HostMemoryAvailableBytes.Set(float64(s.Available))

	m.mu.Lock()
	wasPressured := m.pressured
	m.last = s
	m.sampled = true
	switch {
	case s.UsedRatio >= m.config.HighWaterMark:
		m.pressured = true
	case s.UsedRatio < m.config.RecoverWaterMark:
		m.pressured = false
	}
	pressured := m.pressured
	m.mu.Unlock()

	if pressured != wasPressured {
		if pressured {
			metrics.MemoryPressure.Set(1)
			logging.Warn("Host memory high (%.1f%% used, %s available)",
				s.UsedRatio*100, humanize.IBytes(s.Available))
		} else {
			metrics.MemoryPressure.Set(0)
			logging.Info("Host memory recovered (%.1f%% used, %s available)",
				s.UsedRatio*100, humanize.IBytes(s.Available))
		}
	}
	return nil
}

// UnderPressure reports whether host memory is above the high-water mark.
// Before the first sample it samples synchronously.
func (m *Monitor) UnderPressure() bool {
	m.mu.RLock()
	sampled, pressured := m.sampled, m.pressured
	m.mu.RUnlock()

	if !sampled {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := m.Check(ctx); err != nil {
			return false
		}
		m.mu.RLock()
		pressured = m.pressured
		m.mu.RUnlock()
	}
	return pressured
}

// Last returns the most recent sample and whether one exists.
func (m *Monitor) Last() (Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.sampled
}
