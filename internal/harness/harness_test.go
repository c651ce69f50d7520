package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCountErrors(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/count-errors.yaml")
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "ERROR disk full\nERROR timeout\nERROR timeout\nerrors=3\n", res.Output)
	assert.EqualValues(t, 6, res.Stats.Records)
	assert.Empty(t, Verify(s, res))
}

func TestRunBadProgramFails(t *testing.T) {
	prog := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(prog, []byte("rules:\n  - when: {search: '('}\n"), 0o644))

	s := &Scenario{
		Name:    "bad",
		Program: prog,
		Inputs:  []Input{{Name: "in", Text: "x\n"}},
	}
	_, err := Run(context.Background(), s)
	require.Error(t, err)
}

func TestVerifyReportsMismatches(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/csv-totals.yaml")
	require.NoError(t, err)

	res, err := Run(context.Background(), s)
	require.NoError(t, err)
	require.Empty(t, Verify(s, res))

	wrong := "qty=99\n"
	var records int64 = 7
	s.Expect.Output = &wrong
	s.Expect.Records = &records
	s.Expect.RuleHits["missing-rule"] = 1

	failures := Verify(s, res)
	require.Len(t, failures, 3)
	assert.Contains(t, failures[0], "output mismatch")
	assert.Contains(t, failures[1], "records: want 7")
	assert.Contains(t, failures[2], "rule missing-rule: not in program")
}
