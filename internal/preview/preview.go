package preview

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	// Image format decoders
	_ "image/gif"
	_ "image/png"

	"github.com/disintegration/imaging"

	"gifmaker/internal/logging"
)

const (
	// DefaultMaxSide bounds the poster's longer side in pixels.
	DefaultMaxSide = 320

	// jpegQuality keeps posters small enough to poll.
	jpegQuality = 80
)

// ErrEmpty is returned for an empty artifact.
var ErrEmpty = errors.New("empty image")

// Info describes an image without decoding its pixels.
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Inspect returns the dimensions and format of data.
func Inspect(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Poster renders the first frame of a GIF (or any decodable image) as a
// JPEG fitted inside maxSide x maxSide.
func Poster(data []byte, maxSide int) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode poster: %w", err)
	}
	return buf.Bytes(), nil
}

// Cache memoizes posters by key, typically a download token. It holds at
// most a fixed number of entries and evicts the oldest first.
type Cache struct {
	maxSide int
	limit   int

	mu    sync.Mutex
	items map[string][]byte
	order []string
}

// NewCache creates a cache holding up to limit posters.
func NewCache(maxSide, limit int) *Cache {
	if limit <= 0 {
		limit = 16
	}
	return &Cache{
		maxSide: maxSide,
		limit:   limit,
		items:   make(map[string][]byte),
	}
}

// Poster returns the cached poster for key, rendering it from data on a
// miss.
func (c *Cache) Poster(key string, data []byte) ([]byte, error) {
	c.mu.Lock()
	if p, ok := c.items[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	p, err := Poster(data, c.maxSide)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		c.items[key] = p
		c.order = append(c.order, key)
		for len(c.order) > c.limit {
			delete(c.items, c.order[0])
			c.order = c.order[1:]
		}
	}
	logging.Debug("Poster rendered for %s (%d bytes)", key, len(p))
	return p, nil
}

// Forget drops the poster for key.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		return
	}
	delete(c.items, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of cached posters.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
