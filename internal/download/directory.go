package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"gifmaker/internal/logging"
	"gifmaker/internal/metrics"
)

// maxCollisions bounds the " (n)" suffixes tried for a taken name.
const maxCollisions = 999

// Directory delivers artifacts as files in a directory, the way a browser
// saves a download: an existing file is never overwritten, the new one
// gets a numbered name instead.
type Directory struct {
	dir string
}

// NewDirectory creates the target directory if needed.
func NewDirectory(dir string) (*Directory, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Directory{dir: dir}, nil
}

// Dir returns the target directory.
func (d *Directory) Dir() string {
	return d.dir
}

// Deliver writes data into the directory and returns the final path.
// The data goes to a hidden temporary file first which is linked into
// place once synced; the temporary file never outlives the call.
func (d *Directory) Deliver(ctx context.Context, data []byte, filename string) (string, error) {
	name, err := cleanFilename(filename)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", err
	}
	if err := ctx.Err(); err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", err
	}

	tmp, err := os.CreateTemp(d.dir, ".gifmaker-*.part")
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			logging.Warn("Failed to remove temporary download %s: %v", tmpName, rmErr)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}

	target, err := d.claim(tmpName, name)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("failed").Inc()
		return "", err
	}
	if err := os.Chmod(target, 0o644); err != nil {
		logging.Debug("Could not relax permissions on %s: %v", target, err)
	}

	metrics.DownloadsTotal.WithLabelValues("delivered").Inc()
	metrics.DownloadBytes.Add(float64(len(data)))
	logging.Info("Saved %s (%s)", target, humanize.IBytes(uint64(len(data))))
	return target, nil
}

// claim links tmpName to the first unused path for name: "clip.gif",
// "clip (1).gif", "clip (2).gif" and so on. Linking fails on an existing
// path, so a file created by someone else is never replaced.
func (d *Directory) claim(tmpName, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i <= maxCollisions; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		p := filepath.Join(d.dir, candidate)
		err := os.Link(tmpName, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("failed to save %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, d.dir)
}
