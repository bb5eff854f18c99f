package logclass

import "testing"

func TestClassify(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		channel  Channel
		text     string
		expected Kind
	}{
		{"completion sentinel", StdOut, "FFMPEG_END", CompletionMarker},
		{"sentinel with trailing space", StdOut, "FFMPEG_END ", Noise},
		{"sentinel as substring", StdOut, "prefix FFMPEG_END", Noise},
		{"sentinel on stderr", StdErr, "FFMPEG_END", Noise},
		{"sentinel on info", Info, "FFMPEG_END", Noise},
		{"wasm oom", StdErr, "pthread sent an error #0 (oom)", FatalMemoryMarker},
		{"wasm oom embedded", StdErr, "... pthread sent an error ...", FatalMemoryMarker},
		{"native enomem", StdErr, "Error while filtering: Cannot allocate memory", FatalMemoryMarker},
		{"input named out of memory", StdErr, "Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'Out of memory.mp4':", Noise},
		{"bare out of memory", StdErr, "[gif @ 0x1] Out of memory", Noise},
		{"oom text on stdout", StdOut, "pthread sent an error #0 (oom)", Noise},
		{"oom text on info", Info, "pthread sent an error", Noise},
		{"progress line", StdErr, "frame=  120 fps= 30 q=-0.0 size=    1024kB time=00:00:04.00", Noise},
		{"empty", StdErr, "", Noise},
		{"unknown channel", Channel("other"), "FFMPEG_END", Noise},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.channel, tt.text); got != tt.expected {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.channel, tt.text, got, tt.expected)
			}
		})
	}
}

func TestClassifyCustomVocabulary(t *testing.T) {
	c := New(Vocabulary{
		Completion:       "DONE",
		MemoryExhaustion: []string{"", "heap exhausted"},
	})

	if got := c.Classify(StdOut, "DONE"); got != CompletionMarker {
		t.Errorf("expected completion, got %v", got)
	}
	if got := c.Classify(StdOut, "FFMPEG_END"); got != Noise {
		t.Errorf("default sentinel should not match custom vocabulary, got %v", got)
	}
	if got := c.Classify(StdErr, "fatal: heap exhausted"); got != FatalMemoryMarker {
		t.Errorf("expected fatal memory, got %v", got)
	}
	// The empty substring must not turn every stderr line into an OOM.
	if got := c.Classify(StdErr, "anything"); got != Noise {
		t.Errorf("empty substring matched: %v", got)
	}
}

func TestClassifyNilAndZero(t *testing.T) {
	var nilClassifier *Classifier
	if got := nilClassifier.Classify(StdOut, "FFMPEG_END"); got != Noise {
		t.Errorf("nil classifier returned %v", got)
	}

	var zero Classifier
	if got := zero.Classify(StdOut, ""); got != Noise {
		t.Errorf("zero classifier matched empty completion: %v", got)
	}
}

func TestVocabularyIsCopied(t *testing.T) {
	c := Default()
	v := c.Vocabulary()
	v.MemoryExhaustion[0] = "mutated"

	if got := c.Classify(StdErr, "pthread sent an error"); got != FatalMemoryMarker {
		t.Error("mutating the returned vocabulary changed the classifier")
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{
		Noise:             "noise",
		CompletionMarker:  "completion",
		FatalMemoryMarker: "fatal_memory",
		Kind(9):           "unknown",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
