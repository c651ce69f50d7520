// Package driver sequences an engine across input files and owns the
// output sink for the whole job.
package driver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/awkward/internal/engine"
)

// Options configures one driver invocation.
type Options struct {
	// Output is the path the job's output is written to. Empty means the
	// process's standard output (or Stdout below).
	Output string

	// Stdout overrides os.Stdout when Output is empty. Used by tests and
	// by the CLI to route output through cobra's writer.
	Stdout io.Writer
}

// File returns a source backed by a file path, opened lazily when the
// engine reaches it.
func File(path string) engine.Source { return fileSource(path) }

type fileSource string

func (f fileSource) Name() string { return string(f) }

func (f fileSource) Open() (io.ReadCloser, error) { return os.Open(string(f)) }

// Reader returns a source over a pre-opened reader. The engine's close of
// the source is a no-op; the caller keeps ownership of r.
func Reader(name string, r io.Reader) engine.Source {
	return readerSource{name: name, r: r}
}

type readerSource struct {
	name string
	r    io.Reader
}

func (s readerSource) Name() string { return s.name }

func (s readerSource) Open() (io.ReadCloser, error) { return io.NopCloser(s.r), nil }

// Stdin returns a source reading the process's standard input, named "-".
func Stdin() engine.Source { return Reader("-", os.Stdin) }

// Run drives one job: it opens exactly one output sink, hands the sources
// to the engine in order, and guarantees the sink is released on every exit
// path. Zero sources is valid; the job hooks still fire.
func Run(ctx context.Context, eng *engine.Engine, sources []engine.Source, opts Options) error {
	sink, closeSink, err := openSink(opts)
	if err != nil {
		return err
	}

	runErr := eng.Run(ctx, sink, sources...)

	if cerr := closeSink(); cerr != nil {
		slog.Error("closing output sink", "output", opts.Output, "error", cerr)
		if runErr == nil {
			runErr = &engine.PhaseError{Phase: engine.PhaseSink, Err: cerr}
		}
	}
	return runErr
}

func openSink(opts Options) (io.Writer, func() error, error) {
	noClose := func() error { return nil }
	if opts.Output == "" {
		if opts.Stdout != nil {
			return opts.Stdout, noClose, nil
		}
		return os.Stdout, noClose, nil
	}
	f, err := os.Create(opts.Output)
	if err != nil {
		return nil, nil, &engine.PhaseError{Phase: engine.PhaseSink, Err: fmt.Errorf("open output %s: %w", opts.Output, err)}
	}
	return f, f.Close, nil
}
