package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/awkward/internal/driver"
	"github.com/roach88/awkward/internal/engine"
	"github.com/roach88/awkward/internal/program"
	"github.com/roach88/awkward/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Output  string
	Journal string

	// Tokens allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens trace.TokenGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <program.yaml> [input...]",
		Short: "Run a rule program over input files",
		Long: `Run a rule program over one or more input files in order.

Inputs are processed as a single job: record numbering, variables and
range state carry across files. With no input arguments the program
reads standard input. Output goes to stdout unless -o is given.

Example:
  awkward run count-errors.yaml app.log worker.log
  awkward run extract.yaml big.log -o section.txt
  awkward run tally.yaml access.log --journal ./awkward.db`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in a SQLite journal at this path")

	return cmd
}

func runProgram(opts *RunOptions, programPath string, inputs []string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	slog.Debug("loading program", "path", programPath)
	p, err := program.Load(programPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}
	eng, err := p.Compile()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compile program", err)
	}

	sources := make([]engine.Source, 0, len(inputs))
	for _, path := range inputs {
		sources = append(sources, driver.File(path))
	}
	if len(sources) == 0 {
		sources = append(sources, driver.Stdin())
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	started := time.Now().UTC()
	slog.Debug("job starting", "program", p.Name, "sources", len(sources))

	runErr := driver.Run(ctx, eng, sources, driver.Options{
		Output: opts.Output,
		Stdout: cmd.OutOrStdout(),
	})

	if opts.Journal != "" {
		if err := journalRun(ctx, opts, p.Name, started, eng, runErr); err != nil {
			slog.Error("failed to journal run", "error", err)
			if runErr == nil {
				return WrapExitError(ExitCommandError, "failed to journal run", err)
			}
		}
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	stats := eng.Stats()
	slog.Debug("job finished", "records", stats.Records, "sources", len(stats.Sources))
	return nil
}

// journalRun records the finished job, successful or not, in the journal.
func journalRun(ctx context.Context, opts *RunOptions, programName string, started time.Time, eng *engine.Engine, runErr error) error {
	j, err := trace.Open(opts.Journal)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("error closing journal", "error", closeErr)
		}
	}()

	tokens := opts.Tokens
	if tokens == nil {
		tokens = trace.UUIDv7Generator{}
	}

	stats := eng.Stats()
	run := trace.Run{
		ID:        tokens.Generate(),
		Program:   programName,
		StartedAt: started,
		Records:   stats.Records,
		Outcome:   "ok",
	}
	if runErr != nil {
		run.Outcome = "error"
		run.Error = runErr.Error()
	}
	for _, s := range stats.Sources {
		run.Sources = append(run.Sources, trace.SourceCount{Name: s.Name, Records: s.Records})
	}
	for _, r := range stats.Rules {
		run.Rules = append(run.Rules, trace.RuleCount{Label: r.Label, Hits: r.Hits})
	}

	// The record context must outlive a cancelled run so an interrupted
	// job still lands in the journal.
	recordCtx := ctx
	if recordCtx.Err() != nil {
		recordCtx = context.Background()
	}
	return j.Record(recordCtx, run)
}
