package harness

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/awkward/internal/driver"
	"github.com/roach88/awkward/internal/engine"
	"github.com/roach88/awkward/internal/program"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Output is everything the program wrote to the sink.
	Output string

	// Stats is the engine's snapshot after the run.
	Stats engine.Stats
}

// Run compiles the scenario's program and executes it over the scenario's
// inputs. A compile failure or a run-time phase error is returned as an
// error; expectation mismatches are Verify's job.
func Run(ctx context.Context, s *Scenario) (*Result, error) {
	p, err := program.Load(s.Program)
	if err != nil {
		return nil, err
	}
	eng, err := p.Compile()
	if err != nil {
		return nil, err
	}

	sources := make([]engine.Source, len(s.Inputs))
	for i, in := range s.Inputs {
		sources[i] = driver.Reader(in.Name, strings.NewReader(in.Text))
	}

	var out bytes.Buffer
	if err := eng.Run(ctx, &out, sources...); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return &Result{Output: out.String(), Stats: eng.Stats()}, nil
}

// Verify checks the scenario's inline expectations against a result and
// returns one message per failed expectation. An empty slice means pass.
func Verify(s *Scenario, res *Result) []string {
	if s.Expect == nil {
		return nil
	}
	var failures []string

	if s.Expect.Output != nil && res.Output != *s.Expect.Output {
		failures = append(failures,
			fmt.Sprintf("output mismatch:\n  want %q\n  got  %q", *s.Expect.Output, res.Output))
	}
	if s.Expect.Records != nil && res.Stats.Records != *s.Expect.Records {
		failures = append(failures,
			fmt.Sprintf("records: want %d, got %d", *s.Expect.Records, res.Stats.Records))
	}
	labels := make([]string, 0, len(s.Expect.RuleHits))
	for label := range s.Expect.RuleHits {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		want := s.Expect.RuleHits[label]
		got, ok := ruleHits(res.Stats, label)
		switch {
		case !ok:
			failures = append(failures, fmt.Sprintf("rule %s: not in program", label))
		case got != want:
			failures = append(failures, fmt.Sprintf("rule %s: want %d hits, got %d", label, want, got))
		}
	}
	return failures
}

func ruleHits(st engine.Stats, label string) (int64, bool) {
	for _, r := range st.Rules {
		if r.Label == label {
			return r.Hits, true
		}
	}
	return 0, false
}
