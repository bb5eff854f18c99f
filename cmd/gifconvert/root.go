package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"gifmaker/internal/download"
	"gifmaker/internal/engine"
	"gifmaker/internal/ffmpeg"
	"gifmaker/internal/logging"
	"gifmaker/internal/pipeline"
)

// errReported is returned after a failed conversion has already been
// printed, so main only sets the exit code.
var errReported = errors.New("conversion failed")

const pollInterval = 100 * time.Millisecond

// engineFactory builds the engine factory for an FFmpeg configuration.
type engineFactory func(ffmpeg.Config) engine.Factory

type convertOptions struct {
	outDir    string
	ffmpeg    string
	workspace string
	quiet     bool
	verbose   bool
}

func newRootCommand(factory engineFactory) *cobra.Command {
	opts := convertOptions{}

	cmd := &cobra.Command{
		Use:   "gifconvert <video> [more videos...]",
		Short: "Convert a video to an animated GIF",
		Long: `Convert a video to an animated GIF with FFmpeg.

Only the first video is converted; any others are listed and skipped.
The GIF is written next to the other downloads in --out-dir and is never
overwritten: a numbered name is used instead.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLevel(logging.LevelError)
			if opts.verbose {
				logging.SetLevel(logging.LevelDebug)
			}
			return runConvert(cmd, factory, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.outDir, "out-dir", "o", ".", "Directory the GIF is saved to")
	flags.StringVar(&opts.ffmpeg, "ffmpeg", ffmpeg.DefaultBinary, "FFmpeg executable")
	flags.StringVar(&opts.workspace, "workspace", filepath.Join(os.TempDir(), "gifmaker"), "Parent directory of engine workspaces")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "Do not show progress")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity")

	return cmd
}

func runConvert(cmd *cobra.Command, factory engineFactory, opts convertOptions, args []string) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	files, err := loadFiles(args)
	if err != nil {
		return err
	}
	for _, f := range files[1:] {
		fmt.Fprintf(errOut, "Ignoring %s: only one video is converted at a time\n", f.Name)
	}

	if err := os.MkdirAll(opts.workspace, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	if _, err := ffmpeg.SweepStale(opts.workspace); err != nil {
		logging.Warn("Failed to sweep stale workspaces: %v", err)
	}

	dir, err := download.NewDirectory(opts.outDir)
	if err != nil {
		return err
	}

	handle := engine.NewHandle(factory(ffmpeg.Config{Binary: opts.ffmpeg, WorkDir: opts.workspace}))
	p := pipeline.New(handle, dir)
	defer func() { _ = p.Close() }()

	if err := p.Select(files...); err != nil {
		return err
	}

	var progress io.Writer = errOut
	if opts.quiet {
		progress = io.Discard
	}
	printer := newProgressPrinter(progress)

	if err := p.Start(cmd.Context()); err != nil {
		return err
	}
	s := waitTerminal(p, printer)
	printer.Done()

	if s.Status != pipeline.StatusSucceeded {
		fmt.Fprintln(errOut, s.Error)
		return errReported
	}
	fmt.Fprintf(out, "Saved %s (%s in %s)\n",
		s.Download, humanize.IBytes(uint64(fileSize(s.Download))), s.Duration().Round(time.Millisecond))
	return nil
}

// loadFiles reads the first video and keeps only the names of the rest.
func loadFiles(args []string) ([]pipeline.File, error) {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	files := []pipeline.File{pipeline.NewFile(args[0], data)}
	for _, name := range args[1:] {
		files = append(files, pipeline.NewFile(name, nil))
	}
	return files, nil
}

// waitTerminal polls the session until the conversion ends. Snapshot
// returns the terminal session once before the pipeline goes back to
// idle, so the first terminal snapshot is the result. A canceled
// command context reaches the pipeline, which then fails the session.
func waitTerminal(p *pipeline.Pipeline, printer *progressPrinter) pipeline.Session {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		s := p.Snapshot()
		printer.Update(s)
		if s.Status.Terminal() {
			return s
		}
		<-ticker.C
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
