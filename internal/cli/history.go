package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/awkward/internal/trace"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs from a journal",
		Long: `List recent runs recorded in a journal, newest first.

With a run ID argument, show that run's per-source record counts and
per-rule hit counts instead.

Examples:
  awkward history --journal ./awkward.db
  awkward history --journal ./awkward.db --limit 5
  awkward history --journal ./awkward.db 0190cafe-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "maximum number of runs to list")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	j, err := trace.Open(opts.Journal)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		return showRun(ctx, formatter, j, args[0])
	}
	return listRuns(ctx, formatter, j, opts.Limit)
}

func listRuns(ctx context.Context, formatter *OutputFormatter, j *trace.Journal, limit int) error {
	runs, err := j.Recent(ctx, limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  %-7s %6d records  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Outcome, r.Records, r.Program)
	}
	return nil
}

func showRun(ctx context.Context, formatter *OutputFormatter, j *trace.Journal, id string) error {
	run, err := j.Get(ctx, id)
	if err != nil {
		if errors.Is(err, trace.ErrNotFound) {
			_ = formatter.Error("E404", fmt.Sprintf("run %s not found", id), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", id))
		}
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(run)
	}

	fmt.Fprintf(formatter.Writer, "Run %s\n", run.ID)
	fmt.Fprintf(formatter.Writer, "  program: %s\n", run.Program)
	fmt.Fprintf(formatter.Writer, "  started: %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(formatter.Writer, "  outcome: %s\n", run.Outcome)
	if run.Error != "" {
		fmt.Fprintf(formatter.Writer, "  error:   %s\n", run.Error)
	}
	fmt.Fprintf(formatter.Writer, "  records: %d\n", run.Records)
	if len(run.Sources) > 0 {
		fmt.Fprintln(formatter.Writer, "  sources:")
		for _, s := range run.Sources {
			fmt.Fprintf(formatter.Writer, "    %s: %d\n", s.Name, s.Records)
		}
	}
	if len(run.Rules) > 0 {
		fmt.Fprintln(formatter.Writer, "  rules:")
		for _, r := range run.Rules {
			fmt.Fprintf(formatter.Writer, "    %s: %d hit(s)\n", r.Label, r.Hits)
		}
	}
	return nil
}
