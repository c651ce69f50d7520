// Package field turns a raw record into its ordered field strings.
//
// A splitter is a pure function: the same input always produces the same
// fields, and splitting never fails. The engine calls the splitter lazily,
// on first field access, so records whose rules never touch fields are
// never split at all.
package field

import (
	"fmt"
	"regexp"
	"strings"
)

// Func maps one raw record to its ordered fields.
//
// Implementations must be pure and re-entrant: no retained state between
// calls, no errors. Malformed input degrades to a best-effort split.
type Func func(raw string) []string

// Whitespace returns the default splitter: fields are separated by runs of
// one or more spaces, matching awk's habit of collapsing repeated blanks.
func Whitespace() Func {
	return Pattern(regexp.MustCompile(" +"))
}

// Literal returns a splitter that splits on every non-overlapping occurrence
// of sep. An empty sep splits the record into individual runes.
func Literal(sep string) Func {
	if sep == "" {
		return runes
	}
	return func(raw string) []string {
		return strings.Split(raw, sep)
	}
}

// Pattern returns a splitter that splits on each match of re. A pattern that
// matches the empty string splits the record into individual runes.
func Pattern(re *regexp.Regexp) Func {
	if re.MatchString("") {
		return runes
	}
	return func(raw string) []string {
		return re.Split(raw, -1)
	}
}

func runes(raw string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, string(r))
	}
	return out
}

// Spec is a parsed separator specification from configuration. The zero
// value is invalid; use ParseSpec.
type Spec struct {
	split Func
	name  string
}

// ParseSpec parses a textual separator specification:
//
//	"whitespace"      runs of spaces (the default)
//	"csv"             RFC 4180 single-line fields
//	"literal:<sep>"   split on every occurrence of <sep>
//	"pattern:<re>"    split on each match of <re>
//
// An unknown form or an invalid pattern is a configuration error.
func ParseSpec(s string) (Spec, error) {
	switch {
	case s == "" || s == "whitespace":
		return Spec{split: Whitespace(), name: "whitespace"}, nil
	case s == "csv":
		return Spec{split: CSV(), name: "csv"}, nil
	case strings.HasPrefix(s, "literal:"):
		sep := strings.TrimPrefix(s, "literal:")
		return Spec{split: Literal(sep), name: s}, nil
	case strings.HasPrefix(s, "pattern:"):
		expr := strings.TrimPrefix(s, "pattern:")
		re, err := regexp.Compile(expr)
		if err != nil {
			return Spec{}, fmt.Errorf("invalid separator pattern %q: %w", expr, err)
		}
		return Spec{split: Pattern(re), name: s}, nil
	default:
		return Spec{}, fmt.Errorf("unknown separator spec %q (want whitespace, csv, literal:<sep> or pattern:<re>)", s)
	}
}

// Func returns the splitter for this spec.
func (s Spec) Func() Func { return s.split }

// String returns the textual form the spec was parsed from.
func (s Spec) String() string { return s.name }
