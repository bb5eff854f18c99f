package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gifmaker/internal/download"
	"gifmaker/internal/engine"
	"gifmaker/internal/ffmpeg"
	"gifmaker/internal/handlers"
	"gifmaker/internal/logging"
	"gifmaker/internal/memory"
	"gifmaker/internal/metrics"
	"gifmaker/internal/middleware"
	"gifmaker/internal/pipeline"
	"gifmaker/internal/startup"
	"gifmaker/internal/vfs"

	"github.com/gorilla/mux"
)

const metricsInterval = 15 * time.Second

func main() {
	startTime := time.Now()

	// Configure GOMEMLIMIT before anything large is allocated
	memConfig := memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}
	startup.LogMemoryConfig(memConfig)

	metrics.InitializeMetrics()
	build := startup.GetBuildInfo()
	metrics.AppInfo.WithLabelValues(build.Version, build.Commit, build.GoVersion).Set(1)
	vfs.SetObserver(metrics.NewWorkspaceObserver())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	startup.LogEngineInit(ctx, config.FFmpegPath, config.WorkspaceDir)
	handle := engine.NewHandle(ffmpeg.Factory(ffmpeg.Config{
		Binary:  config.FFmpegPath,
		WorkDir: config.WorkspaceDir,
	}))

	tickets := download.NewTickets(download.TicketsConfig{
		TTL:      config.DownloadTTL,
		BasePath: "/api/download",
	})

	monitorConfig := memory.DefaultConfig()
	monitorConfig.CheckInterval = config.MemoryCheckInterval
	monitor := memory.NewMonitor(monitorConfig, memory.HostSampler)
	monitor.Start()

	p := pipeline.New(handle, tickets, pipeline.WithMemoryGuard(monitor))

	collector := metrics.NewCollector(&statsAdapter{handle: handle, tickets: tickets}, metricsInterval)
	collector.Start()

	h := handlers.New(ctx, p, handle, tickets, monitor, config)
	router := setupRouter(h, config.StaticDir)

	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)

	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	// WriteTimeout stays 0: downloads set their own per-write deadlines
	srv := &http.Server{
		Addr:         config.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsSrv = newMetricsServer(config.MetricsAddr())
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(shutdownTargets{
		cancel:    cancel,
		srv:       srv,
		metrics:   metricsSrv,
		pipeline:  p,
		tickets:   tickets,
		monitor:   monitor,
		collector: collector,
	})

	startup.LogServerStarted(startup.ServerConfig{
		Addr:            config.Addr(),
		MetricsAddr:     config.MetricsAddr(),
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-shutdownDone
}

// statsAdapter feeds the metrics collector from the engine handle and the
// download tickets.
type statsAdapter struct {
	handle  *engine.Handle
	tickets *download.Tickets
}

// GetStats implements metrics.StatsProvider
func (a *statsAdapter) GetStats() metrics.Stats {
	return metrics.Stats{
		EngineLoaded:     a.handle.Loaded(),
		PendingDownloads: a.tickets.Len(),
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	h.Register(r)

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))

	return r
}

func newMetricsServer(addr string) *http.Server {
	m := http.NewServeMux()
	m.Handle("/metrics", handlers.MetricsHandler())
	return &http.Server{
		Addr:              addr,
		Handler:           m,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type shutdownTargets struct {
	cancel    context.CancelFunc
	srv       *http.Server
	metrics   *http.Server
	pipeline  *pipeline.Pipeline
	tickets   *download.Tickets
	monitor   *memory.Monitor
	collector *metrics.Collector
}

// shutdownDone is closed once handleShutdown has released every component.
var shutdownDone = make(chan struct{})

func handleShutdown(t shutdownTargets) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	defer close(shutdownDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := t.srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping conversion engine")
	t.cancel()
	if err := t.pipeline.Close(); err != nil {
		logging.Warn("Pipeline close error: %v", err)
	}
	startup.LogShutdownStepComplete("Engine disposed")

	startup.LogShutdownStep("Releasing pending downloads")
	if err := t.tickets.Close(); err != nil {
		logging.Warn("Download tickets close error: %v", err)
	}
	startup.LogShutdownStepComplete("Downloads released")

	t.monitor.Stop()
	t.collector.Stop()

	if t.metrics != nil {
		if err := t.metrics.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
	}

	startup.LogShutdownComplete()
}
