package metrics

import (
	"runtime"
	"time"

	"gifmaker/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	EngineLoaded     bool
	PendingDownloads int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	GoMemAllocBytes.Set(float64(ms.Alloc))

	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	if stats.EngineLoaded {
		EngineLoaded.Set(1)
	} else {
		EngineLoaded.Set(0)
	}
	DownloadsPending.Set(float64(stats.PendingDownloads))

	logging.Debug("Metrics collected: engineLoaded=%v, pendingDownloads=%d",
		stats.EngineLoaded, stats.PendingDownloads)
}
