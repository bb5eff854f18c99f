package handlers

import (
	"context"
	"time"

	"github.com/gorilla/mux"

	"gifmaker/internal/download"
	"gifmaker/internal/engine"
	"gifmaker/internal/pipeline"
	"gifmaker/internal/preview"
	"gifmaker/internal/startup"
)

// MemoryStatus reports host memory pressure for the health endpoint.
type MemoryStatus interface {
	UnderPressure() bool
}

// Handlers serves the web UI's API on top of one conversion pipeline.
type Handlers struct {
	// ctx bounds background conversions; it is canceled on shutdown.
	ctx        context.Context
	pipeline   *pipeline.Pipeline
	engine     *engine.Handle
	tickets    *download.Tickets
	memory     MemoryStatus
	posters    *preview.Cache
	serveCfg   download.ServeConfig
	maxUpload  int64
	ffmpegPath string
	started    time.Time
}

// New creates the handlers. ctx is the server lifetime; conversions
// started over HTTP are canceled when it is done. mem may be nil.
func New(ctx context.Context, p *pipeline.Pipeline, handle *engine.Handle, tickets *download.Tickets, mem MemoryStatus, config *startup.Config) *Handlers {
	return &Handlers{
		ctx:        ctx,
		pipeline:   p,
		engine:     handle,
		tickets:    tickets,
		memory:     mem,
		posters:    preview.NewCache(preview.DefaultMaxSide, 8),
		serveCfg:   download.DefaultServeConfig(),
		maxUpload:  config.MaxUploadSize,
		ffmpegPath: config.FFmpegPath,
		started:    time.Now(),
	}
}

// Register adds the API, probe and version routes to r.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", h.GetSession).Methods("GET")
	api.HandleFunc("/select", h.SelectFile).Methods("POST")
	api.HandleFunc("/convert", h.Convert).Methods("POST")
	api.HandleFunc("/download/{token}", h.Download).Methods("GET")
	api.HandleFunc("/preview/{token}", h.Preview).Methods("GET")
}
