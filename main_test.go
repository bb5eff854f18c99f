package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gifmaker/internal/download"
	"gifmaker/internal/engine"
	"gifmaker/internal/enginetest"
	"gifmaker/internal/handlers"
	"gifmaker/internal/metrics"
	"gifmaker/internal/pipeline"
	"gifmaker/internal/startup"
)

func newTestStack(t *testing.T) (*engine.Handle, *download.Tickets, *pipeline.Pipeline) {
	t.Helper()
	fake := enginetest.New(enginetest.Succeed([]byte("GIF89a")))
	handle := engine.NewHandle(fake.Factory())
	tickets := download.NewTickets(download.TicketsConfig{BasePath: "/api/download"})
	p := pipeline.New(handle, tickets)
	t.Cleanup(func() {
		_ = p.Close()
		_ = tickets.Close()
	})
	return handle, tickets, p
}

func TestStatsAdapter(t *testing.T) {
	handle, tickets, _ := newTestStack(t)
	adapter := &statsAdapter{handle: handle, tickets: tickets}

	// Verify the adapter implements the interface
	var _ metrics.StatsProvider = adapter

	stats := adapter.GetStats()
	if stats.EngineLoaded {
		t.Error("EngineLoaded = true before first load")
	}
	if stats.PendingDownloads != 0 {
		t.Errorf("PendingDownloads = %d, want 0", stats.PendingDownloads)
	}

	if err := handle.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded() error = %v", err)
	}
	if _, err := tickets.Deliver(context.Background(), []byte("GIF89a"), "out-a.gif"); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	stats = adapter.GetStats()
	if !stats.EngineLoaded {
		t.Error("EngineLoaded = false after load")
	}
	if stats.PendingDownloads != 1 {
		t.Errorf("PendingDownloads = %d, want 1", stats.PendingDownloads)
	}
}

func TestSetupRouter(t *testing.T) {
	handle, tickets, p := newTestStack(t)

	staticDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<title>gifmaker</title>"), 0o644); err != nil {
		t.Fatal(err)
	}

	config := &startup.Config{MaxUploadSize: 1 << 20, FFmpegPath: "ffmpeg"}
	h := handlers.New(context.Background(), p, handle, tickets, nil, config)
	router := setupRouter(h, staticDir)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"static index", "/", http.StatusOK, "gifmaker"},
		{"session", "/api/session", http.StatusOK, `"status":"idle"`},
		{"version", "/version", http.StatusOK, `"version"`},
		{"missing static file", "/nope.js", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("127.0.0.1:0")
	if srv.ReadHeaderTimeout <= 0 {
		t.Error("metrics server should set a read header timeout")
	}

	metrics.InitializeMetrics()
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "gifmaker_") {
		t.Error("metrics output has no gifmaker series")
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", http.NoBody))
	if w.Code != http.StatusNotFound {
		t.Errorf("metrics server served %d for an API path, want 404", w.Code)
	}
}
