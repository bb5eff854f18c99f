package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gifmaker/internal/logging"
)

var (
	// ErrInvalidName is returned for names that are not a single,
	// option-safe path element.
	ErrInvalidName = errors.New("invalid workspace entry name")

	// ErrDestroyed is returned for operations on a destroyed store.
	ErrDestroyed = errors.New("workspace destroyed")
)

// Store is a flat set of named byte buffers backed by a private directory.
// It is the transcoding engine's virtual filesystem: inputs are written
// here before a run and outputs are read back after it.
type Store struct {
	dir string

	mu        sync.RWMutex
	destroyed bool
}

// Create makes a new store in a fresh directory under parent.
// pattern follows os.MkdirTemp.
func Create(parent, pattern string) (*Store, error) {
	start := time.Now()
	if parent != "" {
		if err := os.MkdirAll(parent, 0o700); err != nil {
			observe("create", start, err)
			return nil, fmt.Errorf("failed to create workspace parent: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, pattern)
	observe("create", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	logging.Debug("Workspace created: %s", dir)
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// ValidateName reports whether name can be used as an entry name.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.HasPrefix(name, "-"):
		return fmt.Errorf("%w: %q starts with a dash", ErrInvalidName, name)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if s.destroyed {
		return "", ErrDestroyed
	}
	return filepath.Join(s.dir, name), nil
}

// Write stores data under name, replacing any previous entry.
func (s *Store) Write(name string, data []byte) error {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.path(name)
	if err == nil {
		err = os.WriteFile(p, data, 0o600)
	}
	observe("write", start, err)
	return err
}

// Read returns the contents of the named entry.
func (s *Store) Read(name string) ([]byte, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.path(name)
	if err != nil {
		observe("read", start, err)
		return nil, err
	}
	data, err := os.ReadFile(p)
	observe("read", start, err)
	return data, err
}

// Remove deletes the named entry. A missing entry yields an error that
// matches fs.ErrNotExist.
func (s *Store) Remove(name string) error {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := s.path(name)
	if err == nil {
		err = os.Remove(p)
	}
	// A missing entry is an expected outcome, not an operation error.
	if errors.Is(err, fs.ErrNotExist) {
		observe("remove", start, nil)
	} else {
		observe("remove", start, err)
	}
	return err
}

// List returns the entry names in lexical order.
func (s *Store) List() ([]string, error) {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		observe("list", start, ErrDestroyed)
		return nil, ErrDestroyed
	}
	entries, err := os.ReadDir(s.dir)
	observe("list", start, err)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Destroy removes the backing directory and everything in it. It is safe
// to call more than once.
func (s *Store) Destroy() error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return nil
	}
	s.destroyed = true
	err := os.RemoveAll(s.dir)
	observe("destroy", start, err)
	if err != nil {
		return fmt.Errorf("failed to remove workspace %s: %w", s.dir, err)
	}
	logging.Debug("Workspace destroyed: %s", s.dir)
	return nil
}

func observe(operation string, start time.Time, err error) {
	if defaultObserver != nil {
		defaultObserver.ObserveOperation(operation, time.Since(start).Seconds(), err)
	}
}
