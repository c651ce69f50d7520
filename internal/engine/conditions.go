package engine

import (
	"regexp"
	"strings"

	ac "github.com/petar-dambovaliev/aho-corasick"
)

// Always returns a condition that matches every record.
func Always() Condition {
	return func(*Context) (Result, error) {
		return Matched(true), nil
	}
}

// Span is the half-open byte range a pattern condition matched.
type Span struct {
	Start int
	End   int
}

// Find returns a condition that matches when the record contains substr.
// The payload is the byte offset of the first occurrence. An offset of 0
// is a match; absence is the NoMatch variant, never a zero.
func Find(substr string) Condition {
	return func(c *Context) (Result, error) {
		idx := strings.Index(c.rec.Raw, substr)
		if idx < 0 {
			return NoMatch(), nil
		}
		return Matched(idx), nil
	}
}

// AnyMatch is FindAny's payload: which pattern hit, and where.
type AnyMatch struct {
	Pattern string
	Span    Span
}

// FindAny returns a condition that matches when the record contains any of
// the given literal substrings. The automaton is built once at registration;
// the payload reports the leftmost-longest hit.
func FindAny(substrs ...string) Condition {
	builder := ac.NewAhoCorasickBuilder(ac.Opts{
		MatchKind: ac.LeftMostLongestMatch,
	})
	automaton := builder.Build(substrs)

	return func(c *Context) (Result, error) {
		matches := automaton.FindAll(c.rec.Raw)
		if len(matches) == 0 {
			return NoMatch(), nil
		}
		m := matches[0]
		return Matched(AnyMatch{
			Pattern: substrs[m.Pattern()],
			Span:    Span{Start: m.Start(), End: m.End()},
		}), nil
	}
}

// Search returns a condition that matches when re matches anywhere in the
// record. The payload is the Span of the leftmost match.
func Search(re *regexp.Regexp) Condition {
	return func(c *Context) (Result, error) {
		loc := re.FindStringIndex(c.rec.Raw)
		if loc == nil {
			return NoMatch(), nil
		}
		return Matched(Span{Start: loc[0], End: loc[1]}), nil
	}
}

// MatchStart returns a condition that matches only when re matches at the
// very start of the record (offset 0). The payload is the matched Span.
func MatchStart(re *regexp.Regexp) Condition {
	return func(c *Context) (Result, error) {
		// The leftmost match starts at 0 iff any match starts at 0.
		loc := re.FindStringIndex(c.rec.Raw)
		if loc == nil || loc[0] != 0 {
			return NoMatch(), nil
		}
		return Matched(Span{Start: loc[0], End: loc[1]}), nil
	}
}

// Between returns an inclusive range condition: it starts matching at the
// record where on matches and stops after the record where off matches,
// both endpoints included. The toggle re-arms once off has fired, so a
// later on match opens a new range.
//
// Payloads: the opening record carries on's payload, the closing record
// carries off's payload, records strictly inside carry true.
//
// Range state is per job, keyed by rule identity, so re-running the same
// engine over the same input fires the identical sequence.
func Between(on, off Condition) Condition {
	key := &rangeState{}
	return func(c *Context) (Result, error) {
		if !c.job.ranges[key] {
			res, err := on(c)
			if err != nil || !res.Matched() {
				return NoMatch(), err
			}
			c.job.ranges[key] = true
			return res, nil
		}
		res, err := off(c)
		if err != nil {
			return NoMatch(), err
		}
		if res.Matched() {
			c.job.ranges[key] = false
			return res, nil
		}
		return Matched(true), nil
	}
}
