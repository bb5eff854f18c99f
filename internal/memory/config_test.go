package memory

import (
	"runtime/debug"
	"testing"
)

func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })
}

func TestConfigureFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		configured bool
		source     string
		container  int64
		ratio      float64
	}{
		{
			name:   "nothing set",
			env:    map[string]string{},
			source: "none",
		},
		{
			name:       "memory limit with default ratio",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824"},
			configured: true,
			source:     "MEMORY_LIMIT",
			container:  1 << 30,
			ratio:      DefaultMemoryRatio,
		},
		{
			name:       "human size and custom ratio",
			env:        map[string]string{"MEMORY_LIMIT": "2GiB", "MEMORY_RATIO": "0.25"},
			configured: true,
			source:     "MEMORY_LIMIT",
			container:  2 << 30,
			ratio:      0.25,
		},
		{
			name:       "ratio out of range",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "1.5"},
			configured: true,
			source:     "MEMORY_LIMIT",
			container:  1 << 30,
			ratio:      DefaultMemoryRatio,
		},
		{
			name:       "ratio unparsable",
			env:        map[string]string{"MEMORY_LIMIT": "1073741824", "MEMORY_RATIO": "half"},
			configured: true,
			source:     "MEMORY_LIMIT",
			container:  1 << 30,
			ratio:      DefaultMemoryRatio,
		},
		{
			name:   "invalid limit",
			env:    map[string]string{"MEMORY_LIMIT": "lots"},
			source: "none",
		},
		{
			name:   "zero limit",
			env:    map[string]string{"MEMORY_LIMIT": "0"},
			source: "none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", "")
			t.Setenv("MEMORY_RATIO", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			result := ConfigureFromEnv()

			if result.Configured != tt.configured {
				t.Errorf("Configured = %v, want %v", result.Configured, tt.configured)
			}
			if result.Source != tt.source {
				t.Errorf("Source = %q, want %q", result.Source, tt.source)
			}
			if result.ContainerLimit != tt.container {
				t.Errorf("ContainerLimit = %d, want %d", result.ContainerLimit, tt.container)
			}
			if result.Ratio != tt.ratio {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.ratio)
			}
			if tt.configured {
				want := int64(float64(tt.container) * tt.ratio)
				if result.GoMemLimit != want {
					t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, want)
				}
				if got := debug.SetMemoryLimit(-1); got != want {
					t.Errorf("runtime memory limit = %d, want %d", got, want)
				}
			}
		})
	}
}

func TestConfigureFromEnvGOMEMLIMITTakesPrecedence(t *testing.T) {
	restoreMemoryLimit(t)
	t.Setenv("GOMEMLIMIT", "512MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")
	debug.SetMemoryLimit(512 << 20)

	result := ConfigureFromEnv()
	if result.Source != "GOMEMLIMIT" {
		t.Errorf("Source = %q, want GOMEMLIMIT", result.Source)
	}
	if result.GoMemLimit != 512<<20 {
		t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, 512<<20)
	}
	if result.ContainerLimit != 0 {
		t.Errorf("ContainerLimit = %d, want 0", result.ContainerLimit)
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1024", 1024, false},
		{"1KiB", 1024, false},
		{"1.5 GiB", 3 << 29, false},
		{"-5", 0, true},
		{"", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseBytes(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseBytes(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseBytes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
