package engine

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalLines runs a single rule over the given lines and returns the payload
// recorded for each matching record, keyed by line index.
func evalLines(t *testing.T, cond Condition, lines ...string) map[int]any {
	t.Helper()
	matched := make(map[int]any)
	e := New()
	e.AddRule(cond, func(c *Context) error {
		matched[int(c.NR())-1] = c.Result().Payload()
		return nil
	})
	err := e.Run(context.Background(), &bytes.Buffer{},
		src("in", strings.Join(lines, "\n")+"\n"))
	require.NoError(t, err)
	return matched
}

func TestAlways(t *testing.T) {
	matched := evalLines(t, Always(), "a", "", "b")
	assert.Len(t, matched, 3, "always matches every record, including blanks")
}

func TestFindOffsets(t *testing.T) {
	matched := evalLines(t, Find("ab"), "xxab", "abxx", "xx", "aab")

	assert.Equal(t, map[int]any{0: 2, 1: 0, 3: 1}, matched)
}

func TestFindOffsetZeroIsAMatch(t *testing.T) {
	// A hit at position 0 must not be coerced to no-match.
	matched := evalLines(t, Find("a"), "abc")

	payload, ok := matched[0]
	require.True(t, ok)
	assert.Equal(t, 0, payload)
}

func TestFindAny(t *testing.T) {
	matched := evalLines(t, FindAny("warn", "error"), "an error here", "all fine", "warn: x")

	require.Len(t, matched, 2)
	assert.Equal(t, AnyMatch{Pattern: "error", Span: Span{Start: 3, End: 8}}, matched[0])
	assert.Equal(t, AnyMatch{Pattern: "warn", Span: Span{Start: 0, End: 4}}, matched[2])
}

func TestSearch(t *testing.T) {
	matched := evalLines(t, Search(regexp.MustCompile(`[0-9]+`)), "abc", "a42b", "7")

	assert.Equal(t, map[int]any{1: Span{Start: 1, End: 3}, 2: Span{Start: 0, End: 1}}, matched)
}

func TestMatchStartAnchorsAtOffsetZero(t *testing.T) {
	matched := evalLines(t, MatchStart(regexp.MustCompile(`[0-9]+`)), "42abc", "abc42", "9")

	assert.Equal(t, map[int]any{0: Span{Start: 0, End: 2}, 2: Span{Start: 0, End: 1}}, matched)
}

func TestBetweenInclusiveRange(t *testing.T) {
	matched := evalLines(t, Between(Find("on"), Find("off")),
		"a",    // outside
		"on",   // opens range
		"b",    // inside
		"off",  // closes range, still matched
		"c",    // outside again
		"on x", // re-armed: opens a second range
		"d",
	)

	assert.Equal(t, map[int]any{
		1: 0,    // opening payload: Find offset
		2: true, // inside
		3: 0,    // closing payload
		5: 0,
		6: true,
	}, matched)
}

func TestBetweenStateResetsPerJob(t *testing.T) {
	// A range left open at the end of one job must not leak into the next.
	e := New()
	var hits int
	e.AddRule(Between(Find("on"), Find("off")), func(c *Context) error {
		hits++
		return nil
	})

	run := func(text string) {
		t.Helper()
		err := e.Run(context.Background(), &bytes.Buffer{},
			src("in", text))
		require.NoError(t, err)
	}

	run("on\nx\n") // range never closed
	require.Equal(t, 2, hits)

	hits = 0
	run("a\nb\n") // no "on": nothing may match
	assert.Equal(t, 0, hits)
}
