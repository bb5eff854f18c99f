package download

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// Sentinel errors for download operations.
var (
	// ErrNotFound is returned for tokens that were never issued, were
	// already claimed or have expired.
	ErrNotFound = errors.New("download not found")

	// ErrClosed is returned by a dispatcher that has been closed.
	ErrClosed = errors.New("dispatcher closed")

	// ErrInvalidFilename is returned when a target name has no usable
	// base name.
	ErrInvalidFilename = errors.New("invalid download filename")
)

// Dispatcher hands a finished artifact to the user. Deliver takes
// ownership of data and returns where the artifact can be found: a file
// path for the command line, a URL for the browser.
type Dispatcher interface {
	Deliver(ctx context.Context, data []byte, filename string) (location string, err error)
}

// Artifact is a finished GIF waiting to be fetched.
type Artifact struct {
	Token     string
	Filename  string
	Data      []byte
	CreatedAt time.Time
}

// Size returns the artifact length in bytes.
func (a *Artifact) Size() int64 {
	return int64(len(a.Data))
}

// cleanFilename reduces name to a base name safe to hand to a browser or
// to create in a directory.
func cleanFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	switch name {
	case "", ".", "..", "/":
		return "", ErrInvalidFilename
	}
	return name, nil
}
