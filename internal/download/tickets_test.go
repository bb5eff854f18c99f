package download

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTickets(t *testing.T, cfg TicketsConfig) *Tickets {
	t.Helper()
	tk := NewTickets(cfg)
	t.Cleanup(func() { _ = tk.Close() })
	return tk
}

func (t *Tickets) setNow(fn func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = fn
}

func TestTicketsClaimOnce(t *testing.T) {
	tk := newTestTickets(t, TicketsConfig{})

	token, err := tk.Deliver(context.Background(), []byte("GIF89a"), "clip.gif")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if tk.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tk.Len())
	}

	a, err := tk.Claim(token)
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if a.Filename != "clip.gif" || string(a.Data) != "GIF89a" {
		t.Errorf("Claim() = %q/%q, want clip.gif/GIF89a", a.Filename, a.Data)
	}
	if tk.Len() != 0 {
		t.Errorf("Len() after Claim = %d, want 0", tk.Len())
	}

	if _, err := tk.Claim(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Claim() error = %v, want ErrNotFound", err)
	}
}

func TestTicketsBasePath(t *testing.T) {
	tk := newTestTickets(t, TicketsConfig{BasePath: "/api/download/"})

	loc, err := tk.Deliver(context.Background(), []byte("x"), "clip.gif")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if !strings.HasPrefix(loc, "/api/download/") {
		t.Fatalf("Deliver() location = %q, want /api/download/ prefix", loc)
	}
	token := strings.TrimPrefix(loc, "/api/download/")
	if _, err := tk.Peek(token); err != nil {
		t.Errorf("Peek(%q) error = %v", token, err)
	}
}

func TestTicketsPeekKeepsArtifact(t *testing.T) {
	tk := newTestTickets(t, TicketsConfig{})
	token, err := tk.Deliver(context.Background(), []byte("x"), "clip.gif")
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := tk.Peek(token); err != nil {
			t.Fatalf("Peek() #%d error = %v", i, err)
		}
	}
	if _, err := tk.Claim(token); err != nil {
		t.Errorf("Claim() after Peek error = %v", err)
	}
}

func TestTicketsExpiry(t *testing.T) {
	tk := newTestTickets(t, TicketsConfig{TTL: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tk.setNow(func() time.Time { return now })

	stale, err := tk.Deliver(context.Background(), []byte("x"), "stale.gif")
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	tk.setNow(func() time.Time { return now })
	fresh, err := tk.Deliver(context.Background(), []byte("y"), "fresh.gif")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tk.Peek(stale); !errors.Is(err, ErrNotFound) {
		t.Errorf("Peek(stale) error = %v, want ErrNotFound", err)
	}
	if removed := tk.sweep(); removed != 1 {
		t.Errorf("sweep() removed %d, want 1", removed)
	}
	if _, err := tk.Claim(fresh); err != nil {
		t.Errorf("Claim(fresh) error = %v", err)
	}
}

func TestTicketsClose(t *testing.T) {
	tk := NewTickets(TicketsConfig{})
	token, err := tk.Deliver(context.Background(), []byte("x"), "clip.gif")
	if err != nil {
		t.Fatal(err)
	}

	if err := tk.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tk.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := tk.Claim(token); !errors.Is(err, ErrNotFound) {
		t.Errorf("Claim() after Close error = %v, want ErrNotFound", err)
	}
	if _, err := tk.Deliver(context.Background(), []byte("x"), "clip.gif"); !errors.Is(err, ErrClosed) {
		t.Errorf("Deliver() after Close error = %v, want ErrClosed", err)
	}
}
