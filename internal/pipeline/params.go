package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Params are the fixed encoding settings of one conversion.
type Params struct {
	// FPS is the output frame rate.
	FPS int
	// Width is the output width in pixels; height keeps the aspect ratio.
	Width int
	// Flags selects the scaler's resampling algorithm.
	Flags string
	// Loop is the GIF loop count; 0 loops forever.
	Loop int
}

// DefaultParams returns 20 fps, 720 px wide, lanczos resampling, looping
// forever.
func DefaultParams() Params {
	return Params{
		FPS:   20,
		Width: 720,
		Flags: "lanczos",
		Loop:  0,
	}
}

// Validate reports settings FFmpeg would reject.
func (p Params) Validate() error {
	var errs []error
	if p.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", p.FPS))
	}
	if p.Width <= 0 {
		errs = append(errs, fmt.Errorf("width must be positive, got %d", p.Width))
	}
	if p.Flags == "" || strings.ContainsAny(p.Flags, ",;:[] ") {
		errs = append(errs, fmt.Errorf("invalid scaler flags %q", p.Flags))
	}
	if p.Loop < -1 {
		errs = append(errs, fmt.Errorf("loop must be -1 or more, got %d", p.Loop))
	}
	return errors.Join(errs...)
}

// FilterGraph returns the two-branch graph that builds one palette from
// the whole clip and applies it to every frame.
func (p Params) FilterGraph() string {
	return fmt.Sprintf("fps=%d,scale=%d:-1:flags=%s,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse",
		p.FPS, p.Width, p.Flags)
}

// Args returns the engine argument list converting input into output.
// Both names carry the file: protocol so FFmpeg never reads a "name:"
// prefix as a protocol.
func (p Params) Args(input, output string) []string {
	return p.argv(fileURL(input), fileURL(output))
}

// CommandLine returns the same conversion as a command a user can paste
// into a shell. Names only get the file: protocol when they need it.
func (p Params) CommandLine(input, output string) string {
	args := p.argv(localName(input), localName(output))
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, "ffmpeg")
	for _, a := range args {
		quoted = append(quoted, shellQuote(a))
	}
	return strings.Join(quoted, " ")
}

func (p Params) argv(input, output string) []string {
	return []string{
		"-i", input,
		"-vf", p.FilterGraph(),
		"-loop", strconv.Itoa(p.Loop),
		output,
	}
}

func fileURL(name string) string {
	return "file:" + name
}

func localName(name string) string {
	if strings.Contains(name, ":") {
		return fileURL(name)
	}
	return name
}

// shellQuote quotes s for a POSIX shell. Plain words are left alone,
// anything else is double-quoted when that is unambiguous and
// single-quoted otherwise.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool { return !isShellSafe(r) }) < 0 {
		return s
	}
	if !strings.ContainsAny(s, "$`\\\"!\n") {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("_-+=.,:/@%", r)
}
