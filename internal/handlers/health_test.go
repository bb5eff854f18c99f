package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"testing"

	"gifmaker/internal/startup"
)

type stubMemory bool

func (m stubMemory) UnderPressure() bool { return bool(m) }

func availableBinary(t *testing.T) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	return exe
}

func TestHealthCheckWithoutFFmpeg(t *testing.T) {
	s := newTestServer(t, nil, nil)

	for _, path := range []string{"/health", "/healthz"} {
		t.Run(path, func(t *testing.T) {
			w := s.do(httptest.NewRequest(http.MethodGet, path, http.NoBody))
			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("Expected status 503, got %d", w.Code)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Status != statusDegraded || resp.Ready || resp.FFmpegAvailable {
				t.Errorf("unexpected health %+v", resp)
			}
			if resp.Conversion != "idle" {
				t.Errorf("Conversion = %q, want idle", resp.Conversion)
			}
			if resp.GoVersion != runtime.Version() {
				t.Errorf("GoVersion = %q", resp.GoVersion)
			}
		})
	}
}

func TestHealthCheckWithFFmpeg(t *testing.T) {
	s := newTestServer(t, nil, &startup.Config{MaxUploadSize: 1 << 20, FFmpegPath: availableBinary(t)})
	s.h.memory = stubMemory(true)

	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != statusHealthy || !resp.Ready {
		t.Errorf("unexpected health %+v", resp)
	}
	if !resp.MemoryPressure {
		t.Error("MemoryPressure = false, want true")
	}
	if resp.EngineLoaded || resp.EngineInstances != 0 {
		t.Errorf("engine should not load before the first conversion: %+v", resp)
	}
	if resp.Version != startup.Version {
		t.Errorf("Version = %q, want %q", resp.Version, startup.Version)
	}
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name   string
		binary func(t *testing.T) string
		want   int
		status string
	}{
		{"ffmpeg missing", func(*testing.T) string { return "gifmaker-test-no-such-ffmpeg" }, http.StatusServiceUnavailable, "not_ready"},
		{"ffmpeg present", availableBinary, http.StatusOK, "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, &startup.Config{MaxUploadSize: 1, FFmpegPath: tt.binary(t)})

			w := s.do(httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
			if w.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, w.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp["status"] != tt.status {
				t.Errorf("status = %q, want %q", resp["status"], tt.status)
			}
		})
	}
}

func TestLivenessCheck(t *testing.T) {
	s := newTestServer(t, nil, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["status"] != "alive" {
		t.Errorf("status = %q, want alive", resp["status"])
	}

	w = s.do(httptest.NewRequest(http.MethodHead, "/livez", http.NoBody))
	if w.Code != http.StatusOK {
		t.Errorf("HEAD: Expected status 200, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("HEAD: Expected empty body, got %d bytes", w.Body.Len())
	}
}
