package handlers

import (
	"net/http"
	"runtime"
	"time"

	"gifmaker/internal/ffmpeg"
	"gifmaker/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Engine info
	FFmpegAvailable bool `json:"ffmpegAvailable"`
	EngineLoaded    bool `json:"engineLoaded"`
	EngineInstances int  `json:"engineInstances"`

	// Session info
	Conversion       string `json:"conversion"`
	PendingDownloads int    `json:"pendingDownloads"`
	MemoryPressure   bool   `json:"memoryPressure"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck reports engine availability and the conversion status. It
// does not observe the session, so polling it never clears a result.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	available := ffmpeg.Available(h.ffmpegPath)

	response := HealthResponse{
		Status:           statusHealthy,
		Ready:            available,
		Version:          startup.Version,
		Uptime:           time.Since(h.started).Round(time.Second).String(),
		FFmpegAvailable:  available,
		EngineLoaded:     h.engine.Loaded(),
		EngineInstances:  h.engine.Instances(),
		Conversion:       string(h.pipeline.Status()),
		PendingDownloads: h.tickets.Len(),
		GoVersion:        runtime.Version(),
		NumCPU:           runtime.NumCPU(),
		NumGoroutine:     runtime.NumGoroutine(),
	}
	if h.memory != nil {
		response.MemoryPressure = h.memory.UnderPressure()
	}

	code := http.StatusOK
	if !available {
		response.Status = statusDegraded
		code = http.StatusServiceUnavailable
	}
	writeJSONStatusCode(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatus(w, http.StatusOK, "alive")
}

// ReadinessCheck returns 200 only when FFmpeg can be found.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if ffmpeg.Available(h.ffmpegPath) {
		writeJSONStatus(w, http.StatusOK, "ready")
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
}
