package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDirectoryDeliver(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	loc, err := d.Deliver(context.Background(), []byte("GIF89a"), "clip.gif")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if want := filepath.Join(dir, "clip.gif"); loc != want {
		t.Errorf("Deliver() location = %q, want %q", loc, want)
	}

	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "GIF89a" {
		t.Errorf("saved contents = %q, want %q", data, "GIF89a")
	}
	assertNoPartFiles(t, dir)
}

func TestDirectoryDeliverDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "clip.gif"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []string{"clip (1).gif", "clip (2).gif"}
	for _, want := range tests {
		loc, err := d.Deliver(context.Background(), []byte("new"), "clip.gif")
		if err != nil {
			t.Fatalf("Deliver() error = %v", err)
		}
		if filepath.Base(loc) != want {
			t.Errorf("Deliver() saved as %q, want %q", filepath.Base(loc), want)
		}
	}

	old, err := os.ReadFile(filepath.Join(dir, "clip.gif"))
	if err != nil {
		t.Fatal(err)
	}
	if string(old) != "old" {
		t.Error("existing file was overwritten")
	}
	assertNoPartFiles(t, dir)
}

func TestDirectoryDeliverSkipsTakenNames(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}
	existing := map[string]string{
		"clip.gif":     "first",
		"clip (1).gif": "second",
	}
	for name, data := range existing {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	loc, err := d.Deliver(context.Background(), []byte("new"), "clip.gif")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if filepath.Base(loc) != "clip (2).gif" {
		t.Errorf("Deliver() saved as %q, want %q", filepath.Base(loc), "clip (2).gif")
	}
	for name, want := range existing {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	assertNoPartFiles(t, dir)
}

func TestDirectoryDeliverConcurrentSameName(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	const n = 16
	locs := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locs[i], errs[i] = d.Deliver(context.Background(), []byte(fmt.Sprintf("gif-%d", i)), "clip.gif")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i, loc := range locs {
		if errs[i] != nil {
			t.Fatalf("Deliver() #%d error = %v", i, errs[i])
		}
		if seen[loc] {
			t.Errorf("two deliveries saved as %s", loc)
		}
		seen[loc] = true
		got, err := os.ReadFile(loc)
		if err != nil {
			t.Fatal(err)
		}
		if want := fmt.Sprintf("gif-%d", i); string(got) != want {
			t.Errorf("%s = %q, want %q", filepath.Base(loc), got, want)
		}
	}
	assertNoPartFiles(t, dir)
}

func TestDirectoryDeliverStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	loc, err := d.Deliver(context.Background(), []byte("x"), "../../etc/evil.gif")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if filepath.Dir(loc) != dir {
		t.Errorf("Deliver() wrote outside the directory: %q", loc)
	}
}

func TestDirectoryDeliverErrors(t *testing.T) {
	dir := t.TempDir()
	d, err := NewDirectory(dir)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Deliver(context.Background(), []byte("x"), ""); !errors.Is(err, ErrInvalidFilename) {
		t.Errorf("Deliver(\"\") error = %v, want ErrInvalidFilename", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Deliver(ctx, []byte("x"), "clip.gif"); !errors.Is(err, context.Canceled) {
		t.Errorf("Deliver() with canceled context error = %v, want context.Canceled", err)
	}
	assertNoPartFiles(t, dir)
}

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"clip.gif", "clip.gif", false},
		{"dir/clip.gif", "clip.gif", false},
		{`C:\videos\clip.gif`, "clip.gif", false},
		{"bad\"name\n.gif", "badname.gif", false},
		{"  spaced.gif ", "spaced.gif", false},
		{"", "", true},
		{"..", "", true},
		{"/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanFilename(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("cleanFilename(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("cleanFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func assertNoPartFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".part") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}
