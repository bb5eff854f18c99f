package pipeline

import (
	"path"
	"strings"
)

const fallbackName = "input"

// File is a selected video. The pipeline borrows Data for the duration of
// a conversion and never modifies it.
type File struct {
	Name string
	Data []byte
}

// NewFile wraps data under a name usable inside the engine workspace:
// only the base name is kept, and leading dashes are replaced so the
// name cannot be mistaken for a command-line option.
func NewFile(name string, data []byte) File {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if trimmed := strings.TrimLeft(name, "-"); trimmed != name {
		name = strings.Repeat("_", len(name)-len(trimmed)) + trimmed
	}
	switch name {
	case "", ".", "..", "/":
		name = fallbackName
	}
	return File{Name: name, Data: data}
}

// Size returns the file length in bytes.
func (f File) Size() int64 {
	return int64(len(f.Data))
}
