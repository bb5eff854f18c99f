package download

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"gifmaker/internal/logging"
	"gifmaker/internal/metrics"
)

// DefaultTTL is how long an unclaimed artifact is kept.
const DefaultTTL = 10 * time.Minute

// TicketsConfig configures a Tickets dispatcher.
type TicketsConfig struct {
	// TTL is how long an unclaimed artifact is kept. Zero means DefaultTTL.
	TTL time.Duration
	// BasePath is joined with the token to form the returned location.
	// Empty means the bare token is returned.
	BasePath string
}

// Tickets holds finished artifacts in memory under one-shot tokens until
// the browser fetches them. A ticket is the server-side equivalent of a
// temporary object URL: it is released as soon as it has been claimed.
type Tickets struct {
	ttl      time.Duration
	basePath string
	now      func() time.Time

	mu     sync.Mutex
	items  map[string]*Artifact
	closed bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewTickets creates a ticket dispatcher and starts its expiry loop.
// Call Close to stop it.
func NewTickets(cfg TicketsConfig) *Tickets {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	t := &Tickets{
		ttl:      cfg.TTL,
		basePath: cfg.BasePath,
		now:      time.Now,
		items:    make(map[string]*Artifact),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go t.expiryLoop()
	return t
}

// Deliver stores data under a new token and returns its location.
func (t *Tickets) Deliver(ctx context.Context, data []byte, filename string) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", err
	}
	if err := ctx.Err(); err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", err
	}

	token := uuid.NewString()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", ErrClosed
	}
	t.items[token] = &Artifact{
		Token:     token,
		Filename:  name,
		Data:      data,
		CreatedAt: t.now(),
	}
	pending := len(t.items)
	t.mu.Unlock()

	metrics.DownloadsPending.Set(float64(pending))
	metrics.DownloadsTotal.WithLabelValues("delivered").Inc()
	logging.Debug("Download ticket %s issued for %s (%s)", token, name, humanize.IBytes(uint64(len(data))))

	if t.basePath == "" {
		return token, nil
	}
	return path.Join(t.basePath, token), nil
}

// Claim hands out the artifact for token and releases it.
func (t *Tickets) Claim(token string) (*Artifact, error) {
	t.mu.Lock()
	a, ok := t.items[token]
	if ok {
		delete(t.items, token)
	}
	expired := ok && t.expired(a)
	pending := len(t.items)
	t.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	metrics.DownloadsPending.Set(float64(pending))
	if expired {
		metrics.DownloadsTotal.WithLabelValues("expired").Inc()
		return nil, ErrNotFound
	}
	return a, nil
}

// Peek returns the artifact for token without releasing it.
func (t *Tickets) Peek(token string) (*Artifact, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.items[token]
	if !ok || t.expired(a) {
		return nil, ErrNotFound
	}
	return a, nil
}

// Len returns the number of artifacts waiting to be claimed.
func (t *Tickets) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Close stops the expiry loop and releases every pending artifact.
func (t *Tickets) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done

	t.mu.Lock()
	released := len(t.items)
	t.items = make(map[string]*Artifact)
	t.closed = true
	t.mu.Unlock()

	metrics.DownloadsPending.Set(0)
	if released > 0 {
		logging.Info("Released %d unclaimed downloads", released)
	}
	return nil
}

// expired must be called with t.mu held.
func (t *Tickets) expired(a *Artifact) bool {
	return t.now().Sub(a.CreatedAt) > t.ttl
}

// sweep drops expired artifacts and returns how many it removed.
func (t *Tickets) sweep() int {
	t.mu.Lock()
	removed := 0
	for token, a := range t.items {
		if t.expired(a) {
			delete(t.items, token)
			removed++
		}
	}
	pending := len(t.items)
	t.mu.Unlock()

	if removed > 0 {
		metrics.DownloadsTotal.WithLabelValues("expired").Add(float64(removed))
		metrics.DownloadsPending.Set(float64(pending))
		logging.Debug("Expired %d unclaimed downloads", removed)
	}
	return removed
}

func (t *Tickets) expiryLoop() {
	defer close(t.done)

	interval := t.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stop:
			return
		}
	}
}
