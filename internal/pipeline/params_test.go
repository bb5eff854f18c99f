package pipeline

import (
	"reflect"
	"testing"
)

func TestFilterGraph(t *testing.T) {
	want := "fps=20,scale=720:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"
	if got := DefaultParams().FilterGraph(); got != want {
		t.Errorf("FilterGraph() = %q, want %q", got, want)
	}
}

func TestCommandLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		output string
		want   string
	}{
		{
			name:   "plain names",
			input:  "clip.mov",
			output: "clip.gif",
			want: `ffmpeg -i clip.mov -vf "fps=20,scale=720:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"` +
				` -loop 0 clip.gif`,
		},
		{
			name:   "spaces",
			input:  "my clip.mov",
			output: "my clip.gif",
			want: `ffmpeg -i "my clip.mov" -vf "fps=20,scale=720:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"` +
				` -loop 0 "my clip.gif"`,
		},
		{
			name:   "shell metacharacters",
			input:  `it's $HOME.mov`,
			output: `it's $HOME.gif`,
			want: `ffmpeg -i 'it'\''s $HOME.mov' -vf "fps=20,scale=720:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"` +
				` -loop 0 'it'\''s $HOME.gif'`,
		},
		{
			name:   "protocol-like names",
			input:  "clip:1.mov",
			output: "pipe:1.gif",
			want: `ffmpeg -i file:clip:1.mov -vf "fps=20,scale=720:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"` +
				` -loop 0 file:pipe:1.gif`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultParams().CommandLine(tt.input, tt.output); got != tt.want {
				t.Errorf("CommandLine() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestArgs(t *testing.T) {
	graph := DefaultParams().FilterGraph()
	tests := []struct {
		name   string
		input  string
		output string
		want   []string
	}{
		{"plain names", "clip.mov", "clip.gif", []string{"-i", "file:clip.mov", "-vf", graph, "-loop", "0", "file:clip.gif"}},
		{"protocol-like input", "clip:1.mov", "clip:1.gif", []string{"-i", "file:clip:1.mov", "-vf", graph, "-loop", "0", "file:clip:1.gif"}},
		{"pipe output", "in.mov", "pipe:1.gif", []string{"-i", "file:in.mov", "-vf", graph, "-loop", "0", "file:pipe:1.gif"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultParams().Args(tt.input, tt.output); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Args() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShellQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"clip.gif", "clip.gif"},
		{"-loop", "-loop"},
		{"a b", `"a b"`},
		{"a;b", `"a;b"`},
		{`a"b`, `'a"b'`},
		{"a'b c", `"a'b c"`},
		{"`cmd`", "'`cmd`'"},
	}
	for _, tt := range tests {
		if got := shellQuote(tt.in); got != tt.want {
			t.Errorf("shellQuote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"zero fps", Params{FPS: 0, Width: 720, Flags: "lanczos"}, true},
		{"negative width", Params{FPS: 20, Width: -1, Flags: "lanczos"}, true},
		{"flag injection", Params{FPS: 20, Width: 720, Flags: "lanczos,drawtext"}, true},
		{"no loop", Params{FPS: 20, Width: 720, Flags: "lanczos", Loop: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWithParamsIgnoresInvalid(t *testing.T) {
	fx := newFixture(t, nil, WithParams(Params{FPS: -5}))
	if got := fx.p.Params(); got != DefaultParams() {
		t.Errorf("Params() = %+v, want defaults", got)
	}
}
