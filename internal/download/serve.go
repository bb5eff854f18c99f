package download

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gifmaker/internal/logging"
	"gifmaker/internal/metrics"
)

// Sentinel errors for serving an artifact.
var (
	// ErrWriteTimeout indicates that a single write exceeded its deadline,
	// typically because the client stopped reading.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone indicates that the client disconnected before the
	// artifact was fully written.
	ErrClientGone = errors.New("client disconnected")
)

// ServeConfig bounds how an artifact is written to a client.
type ServeConfig struct {
	// WriteTimeout is the maximum time to wait for one chunk.
	WriteTimeout time.Duration
	// ChunkSize is the size of each write. Zero writes everything at once.
	ChunkSize int
}

// DefaultServeConfig returns the settings used for GIF downloads.
func DefaultServeConfig() ServeConfig {
	return ServeConfig{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// deadlineWriter writes to an http.ResponseWriter in chunks, bounding
// each write with a timeout.
type deadlineWriter struct {
	w       http.ResponseWriter
	ctx     context.Context
	config  ServeConfig
	flusher http.Flusher

	mu      sync.Mutex
	written int64
}

func newDeadlineWriter(ctx context.Context, w http.ResponseWriter, config ServeConfig) *deadlineWriter {
	dw := &deadlineWriter{w: w, ctx: ctx, config: config}
	if f, ok := w.(http.Flusher); ok {
		dw.flusher = f
	}
	return dw
}

func (dw *deadlineWriter) Write(p []byte) (int, error) {
	if dw.config.ChunkSize <= 0 || len(p) <= dw.config.ChunkSize {
		return dw.writeWithTimeout(p)
	}

	total := 0
	for len(p) > 0 {
		if err := dw.ctx.Err(); err != nil {
			return total, ErrClientGone
		}
		size := min(dw.config.ChunkSize, len(p))
		n, err := dw.writeWithTimeout(p[:size])
		total += n
		if err != nil {
			return total, err
		}
		p = p[size:]
		if dw.flusher != nil {
			dw.flusher.Flush()
		}
	}
	return total, nil
}

func (dw *deadlineWriter) writeWithTimeout(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	go func() {
		n, err := dw.w.Write(p)
		ch <- result{n, err}
	}()

	var timeout <-chan time.Time
	if dw.config.WriteTimeout > 0 {
		timer := time.NewTimer(dw.config.WriteTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-ch:
		dw.mu.Lock()
		dw.written += int64(r.n)
		dw.mu.Unlock()
		return r.n, r.err
	case <-timeout:
		return 0, ErrWriteTimeout
	case <-dw.ctx.Done():
		return 0, ErrClientGone
	}
}

func (dw *deadlineWriter) Written() int64 {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	return dw.written
}

// Serve writes a as a file attachment.
func Serve(ctx context.Context, w http.ResponseWriter, a *Artifact, config ServeConfig) error {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})
	if disposition == "" {
		disposition = "attachment"
	}

	h := w.Header()
	h.Set("Content-Type", "image/gif")
	h.Set("Content-Disposition", disposition)
	h.Set("Content-Length", strconv.FormatInt(a.Size(), 10))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	dw := newDeadlineWriter(ctx, w, config)
	if _, err := dw.Write(a.Data); err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("serve %s: %w", a.Filename, err)
	}

	metrics.DownloadsTotal.WithLabelValues("served").Inc()
	metrics.DownloadBytes.Add(float64(dw.Written()))
	logging.Debug("Served %s: %d bytes in %v", a.Filename, dw.Written(), time.Since(start))
	return nil
}
