package ffmpeg

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

var (
	durationRegex = regexp.MustCompile(`^\s*Duration:\s*([0-9]+:[0-9]{2}:[0-9]{2}(?:\.[0-9]+)?)`)
	timeRegex     = regexp.MustCompile(`(?:^|\s)time=\s*([0-9]+:[0-9]{2}:[0-9]{2}(?:\.[0-9]+)?)`)
)

// progressTracker turns FFmpeg's stderr stats into a completion ratio
// using the first input's Duration line and the running time= stat.
type progressTracker struct {
	duration float64
}

// Observe parses one stderr line and returns the new ratio when the line
// carries progress.
func (pt *progressTracker) Observe(line string) (float64, bool) {
	if pt.duration <= 0 {
		if m := durationRegex.FindStringSubmatch(line); len(m) > 1 {
			pt.duration = timeToSeconds(m[1])
		}
		return 0, false
	}

	m := timeRegex.FindStringSubmatch(line)
	if len(m) < 2 {
		return 0, false
	}
	ratio := timeToSeconds(m[1]) / pt.duration
	return min(max(ratio, 0), 1), true
}

// timeToSeconds converts HH:MM:SS.ms to seconds.
func timeToSeconds(s string) float64 {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}
	return hours*3600 + minutes*60 + seconds
}

// scanLines is a bufio.SplitFunc that treats \n, \r\n and a lone \r as
// line breaks. FFmpeg rewrites its stats line with \r.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' {
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if !atEOF {
				// Need one more byte to tell \r from \r\n.
				return 0, nil, nil
			}
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
