package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"gifmaker/internal/pipeline"
)

const (
	defaultWidth = 80
	minBar       = 10
	maxBar       = 50
	plainStep    = 10
)

// progressPrinter draws conversion progress. On a terminal it redraws a
// single bar line; otherwise it prints a line per status change and per
// plainStep percent.
type progressPrinter struct {
	w     io.Writer
	tty   bool
	width int

	status  pipeline.Status
	lastPct int
	drawn   bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	p := &progressPrinter{w: w, width: defaultWidth, lastPct: -1}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			p.width = width
		}
	}
	return p
}

// Update renders s if anything visible changed.
func (p *progressPrinter) Update(s pipeline.Session) {
	pct := int(s.Progress * 100)
	if s.Status == p.status && pct == p.lastPct {
		return
	}

	if p.tty {
		if s.Status.Busy() {
			fmt.Fprint(p.w, "\r\033[K"+renderBar(statusLabel(s), s.Progress, p.width))
			p.drawn = true
		}
	} else if s.Status != p.status || pct/plainStep != p.lastPct/plainStep {
		if s.Status.Busy() {
			fmt.Fprintf(p.w, "%s %3d%%\n", statusLabel(s), pct)
		}
	}

	p.status = s.Status
	p.lastPct = pct
}

// Done ends the bar line.
func (p *progressPrinter) Done() {
	if p.tty && p.drawn {
		fmt.Fprintln(p.w)
	}
}

func statusLabel(s pipeline.Session) string {
	if s.Status == pipeline.StatusLoading {
		return "Loading engine"
	}
	return "Converting " + s.File
}

// renderBar fits "label [=====>    ]  42%" into width columns.
func renderBar(label string, ratio float64, width int) string {
	ratio = min(max(ratio, 0), 1)
	pct := fmt.Sprintf(" %3d%%", int(ratio*100))

	bar := width - len(label) - len(pct) - 3
	if bar > maxBar {
		bar = maxBar
	}
	if bar < minBar {
		bar = minBar
		if room := width - bar - len(pct) - 3; room < len(label) && room > 3 {
			label = label[:room-3] + "..."
		}
	}

	filled := int(ratio * float64(bar))
	var b strings.Builder
	b.WriteString(label)
	b.WriteString(" [")
	switch {
	case filled >= bar:
		b.WriteString(strings.Repeat("=", bar))
	default:
		b.WriteString(strings.Repeat("=", filled))
		b.WriteString(">")
		b.WriteString(strings.Repeat(" ", bar-filled-1))
	}
	b.WriteString("]")
	b.WriteString(pct)
	return b.String()
}
