package logclass

import "strings"

// Channel identifies which stream of the engine produced a log line.
type Channel string

const (
	// StdOut is the engine's native standard output.
	StdOut Channel = "ffout"
	// StdErr is the engine's native standard error.
	StdErr Channel = "fferr"
	// Info carries the engine wrapper's own workflow messages.
	Info Channel = "info"
)

// Kind is the semantic meaning of one log line.
type Kind int

const (
	// Noise is any line that does not change conversion state.
	Noise Kind = iota
	// CompletionMarker means the run finished successfully.
	CompletionMarker
	// FatalMemoryMarker means the engine exhausted its memory and crashed.
	FatalMemoryMarker
)

func (k Kind) String() string {
	switch k {
	case Noise:
		return "noise"
	case CompletionMarker:
		return "completion"
	case FatalMemoryMarker:
		return "fatal_memory"
	default:
		return "unknown"
	}
}

// Vocabulary is the set of literals the engine is known to print.
type Vocabulary struct {
	// Completion must equal a standard output line exactly.
	Completion string
	// MemoryExhaustion substrings are matched against standard error lines.
	MemoryExhaustion []string
}

// Engine log literals. The wasm build prints the pthread line when a
// worker runs out of memory; native builds report ENOMEM. FFmpeg echoes
// input names on stderr, so bare phrases like "Out of memory" are not
// markers.
const (
	EndSentinel      = "FFMPEG_END"
	WasmOOMSubstring = "pthread sent an error"
	NativeENOMEM     = "Cannot allocate memory"
)

// DefaultVocabulary returns the literals emitted by the supported engines.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Completion:       EndSentinel,
		MemoryExhaustion: []string{WasmOOMSubstring, NativeENOMEM},
	}
}

// Classifier maps raw engine log lines onto Kinds. The zero value matches
// nothing; use New or Default.
type Classifier struct {
	vocab Vocabulary
}

// New creates a classifier for the given vocabulary. Empty memory
// substrings are dropped so they cannot match every line.
func New(vocab Vocabulary) *Classifier {
	subs := make([]string, 0, len(vocab.MemoryExhaustion))
	for _, s := range vocab.MemoryExhaustion {
		if s != "" {
			subs = append(subs, s)
		}
	}
	return &Classifier{vocab: Vocabulary{Completion: vocab.Completion, MemoryExhaustion: subs}}
}

// Default creates a classifier for DefaultVocabulary.
func Default() *Classifier {
	return New(DefaultVocabulary())
}

// Vocabulary returns a copy of the literals this classifier matches.
func (c *Classifier) Vocabulary() Vocabulary {
	out := c.vocab
	out.MemoryExhaustion = append([]string(nil), c.vocab.MemoryExhaustion...)
	return out
}

// Classify returns the Kind of one log line. It is pure and never panics.
func (c *Classifier) Classify(channel Channel, text string) Kind {
	if c == nil {
		return Noise
	}
	switch channel {
	case StdOut:
		if c.vocab.Completion != "" && text == c.vocab.Completion {
			return CompletionMarker
		}
	case StdErr:
		for _, s := range c.vocab.MemoryExhaustion {
			if strings.Contains(text, s) {
				return FatalMemoryMarker
			}
		}
	}
	return Noise
}
