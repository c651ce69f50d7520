package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/awkward/internal/program"
)

// CheckResult holds check results.
type CheckResult struct {
	Valid   bool   `json:"valid"`
	Program string `json:"program"`
	Rules   int    `json:"rules,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <program.yaml>",
		Short: "Validate a rule program without running it",
		Long: `Parse and compile a rule program without processing any input.

Catches malformed YAML, unknown fields, missing when clauses, invalid
patterns and bad field references before a run touches real data.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCheck(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	p, err := program.Load(path)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load program", err)
	}

	formatter.VerboseLog("Loaded program %s with %d rule(s)", p.Name, len(p.Rules))

	eng, err := p.Compile()
	if err != nil {
		if formatter.Format == "json" {
			result := CheckResult{Valid: false, Program: p.Name, Error: err.Error()}
			_ = formatter.Success(result)
		} else {
			fmt.Fprintln(formatter.Writer, "✗ Program invalid")
			fmt.Fprintf(formatter.Writer, "  %v\n", err)
		}
		return WrapExitError(ExitFailure, "invalid program", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CheckResult{
			Valid:   true,
			Program: p.Name,
			Rules:   len(eng.Stats().Rules),
		})
	}
	fmt.Fprintf(formatter.Writer, "✓ Program valid (%d rule(s))\n", len(eng.Stats().Rules))
	return nil
}
