package ffmpeg

import (
	"bufio"
	"reflect"
	"strings"
	"testing"
)

func TestProgressTracker(t *testing.T) {
	lines := []string{
		"Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'clip.mov':",
		"  Duration: 00:00:04.00, start: 0.000000, bitrate: 1205 kb/s",
		"frame=   10 fps=0.0 q=-0.0 size=N/A time=00:00:01.00 bitrate=N/A speed=2.1x",
		"  Duration: 00:10:00.00, start: 0.000000, bitrate: 1 kb/s",
		"frame=   40 fps=20 q=-0.0 size=N/A time=00:00:03.00 bitrate=N/A speed=2.0x",
		"frame=   80 fps=20 q=-0.0 Lsize=512kB time=00:00:05.00 bitrate=N/A speed=2.0x",
		"frame=   80 fps=20 q=-0.0 size=N/A time=N/A bitrate=N/A",
	}

	var pt progressTracker
	var got []float64
	for _, line := range lines {
		if ratio, ok := pt.Observe(line); ok {
			got = append(got, ratio)
		}
	}

	want := []float64{0.25, 0.75, 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ratios = %v, want %v", got, want)
	}
}

func TestProgressTrackerWithoutDuration(t *testing.T) {
	var pt progressTracker
	if _, ok := pt.Observe("frame=1 time=00:00:01.00"); ok {
		t.Error("Observe() reported progress without a known duration")
	}
}

func TestTimeToSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"00:00:01.50", 1.5},
		{"01:02:03", 3723},
		{"00:01", 0},
		{"aa:bb:cc", 0},
	}
	for _, tt := range tests {
		if got := timeToSeconds(tt.in); got != tt.want {
			t.Errorf("timeToSeconds(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestScanLines(t *testing.T) {
	input := "first\nframe=1\rframe=2\rlast\r\ntrailing"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(scanLines)

	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	want := []string{"first", "frame=1", "frame=2", "last", "trailing"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
}
