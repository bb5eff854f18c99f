package pipeline

import (
	"path"
	"strings"
)

const gifExt = ".gif"

// OutputName derives the GIF name for an input: the last extension is
// replaced with .gif, or .gif is appended when there is none. A name made
// only of a leading dot and letters, like ".hidden", has no extension.
func OutputName(input string) string {
	ext := path.Ext(input)
	if ext == "" || ext == input {
		return input + gifExt
	}
	return strings.TrimSuffix(input, ext) + gifExt
}

// outputEntry returns the workspace name for the output of input. It
// differs from the download name only when the input already is a .gif,
// so the engine never reads and writes the same entry.
func outputEntry(input, output string) string {
	if input == output {
		return "out-" + output
	}
	return output
}
