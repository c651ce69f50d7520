package trace

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, j.Close()) })
	return j
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:        id,
		Program:   "count-errors",
		StartedAt: started,
		Records:   5,
		Outcome:   "ok",
		Sources: []SourceCount{
			{Name: "a.log", Records: 3},
			{Name: "b.log", Records: 2},
		},
		Rules: []RuleCount{
			{Label: "has-error", Hits: 2},
			{Label: "rule-2", Hits: 5},
		},
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j1.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j2.Close())
}

func TestRecordAndGet(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, sampleRun("run-1", started)))

	got, err := j.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "count-errors", got.Program)
	assert.Equal(t, started, got.StartedAt)
	assert.Equal(t, int64(5), got.Records)
	assert.Equal(t, "ok", got.Outcome)
	assert.Equal(t, []SourceCount{{Name: "a.log", Records: 3}, {Name: "b.log", Records: 2}}, got.Sources)
	assert.Equal(t, []RuleCount{{Label: "has-error", Hits: 2}, {Label: "rule-2", Hits: 5}}, got.Rules)
}

func TestRecordIsIdempotent(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	run := sampleRun("run-1", started)
	require.NoError(t, j.Record(ctx, run))
	require.NoError(t, j.Record(ctx, run), "second write of the same ID is a no-op")

	runs, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Len(t, runs[0].Sources, 2, "counts are not duplicated")
}

func TestRecentNewestFirst(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		r := sampleRun(id, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, j.Record(ctx, r))
	}

	runs, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestRecordFailedRun(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	run := sampleRun("run-err", time.Now().UTC().Truncate(time.Second))
	run.Outcome = "error"
	run.Error = "record-loop (source a.log): boom"
	require.NoError(t, j.Record(ctx, run))

	got, err := j.Get(ctx, "run-err")
	require.NoError(t, err)
	assert.Equal(t, "error", got.Outcome)
	assert.Contains(t, got.Error, "boom")
}

func TestGetMissingRun(t *testing.T) {
	j := openTemp(t)

	_, err := j.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("t1", "t2")
	assert.Equal(t, "t1", gen.Generate())
	assert.Equal(t, "t2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func TestUUIDv7GeneratorUnique(t *testing.T) {
	gen := UUIDv7Generator{}
	a, b := gen.Generate(), gen.Generate()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
