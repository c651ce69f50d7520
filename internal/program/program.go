// Package program loads declarative rule programs from YAML and compiles
// them onto an engine.
//
// A program names a field separator, output separators, lifecycle steps and
// an ordered list of rules. Rules are compiled in file order, which is the
// engine's evaluation order.
//
// Example:
//
//	name: count-errors
//	fs: whitespace
//	begin:
//	  - set: {errors: 0}
//	rules:
//	  - name: has-error
//	    when: {search: "ERROR|FATAL"}
//	    do:
//	      - count: errors
//	      - emit: true
//	end:
//	  - report: [errors]
package program

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Program is the parsed form of one rule-program file.
type Program struct {
	Name string `yaml:"name"`

	// FS is the field separator spec: whitespace (default), csv,
	// literal:<sep> or pattern:<re>.
	FS  string  `yaml:"fs"`
	OFS *string `yaml:"ofs"`
	ORS *string `yaml:"ors"`

	// NormalizeEOL rewrites input terminators to "\n"; NFC normalizes
	// record text to Unicode NFC form.
	NormalizeEOL bool `yaml:"normalize_eol"`
	NFC          bool `yaml:"nfc"`

	Begin     []Step `yaml:"begin"`
	BeginFile []Step `yaml:"begin_file"`
	EndFile   []Step `yaml:"end_file"`
	End       []Step `yaml:"end"`

	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is one condition/action pair in file order.
type RuleSpec struct {
	// Name labels the rule in stats and errors; defaults to "rule-N".
	Name string `yaml:"name"`

	// When selects records; exactly one selector must be set.
	When *When `yaml:"when"`

	// Do lists the steps run on match. Empty means the default action:
	// emit the record verbatim.
	Do []Step `yaml:"do"`
}

// When is a condition selector. Exactly one field may be set.
type When struct {
	// Always matches every record.
	Always bool `yaml:"always"`

	// Find matches when the record contains the substring.
	Find string `yaml:"find"`

	// FindAny matches when the record contains any of the substrings.
	FindAny []string `yaml:"find_any"`

	// Search matches when the pattern matches anywhere in the record.
	Search string `yaml:"search"`

	// Match matches only when the pattern matches at the record start.
	Match string `yaml:"match"`

	// Every matches each record whose in-file number is a multiple of N.
	Every int64 `yaml:"every"`

	// Between matches the inclusive range from one selector to another.
	Between *BetweenClause `yaml:"between"`
}

// BetweenClause is When's inclusive range form.
type BetweenClause struct {
	From *When `yaml:"from"`
	To   *When `yaml:"to"`
}

// Step is one effect of an action or lifecycle hook. A step may combine
// several effects; they run in a fixed order: set, emit, print, count,
// sum, report.
type Step struct {
	// Set assigns variables.
	Set map[string]any `yaml:"set"`

	// Emit writes the record verbatim (raw text plus its terminator).
	Emit bool `yaml:"emit"`

	// Print writes the listed values joined by OFS and terminated by ORS.
	// In rule steps, "$0" is the raw record, "$1".."$n" are fields (absent
	// fields print empty) and "$NF" is the field count; other strings are
	// literals.
	Print []string `yaml:"print"`

	// Count increments the named variable by one.
	Count string `yaml:"count"`

	// Sum adds the numeric value of a field to a variable. Non-numeric
	// fields count as zero, as awk would have it.
	Sum *SumClause `yaml:"sum"`

	// Report prints "name=value" for each named variable.
	Report []string `yaml:"report"`
}

// SumClause names Sum's accumulator variable and 1-based source field.
type SumClause struct {
	Var   string `yaml:"var"`
	Field int    `yaml:"field"`
}

// Load reads and parses a program file.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load program: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = path
	}
	return p, nil
}

// Parse parses program YAML. Unknown fields are rejected so a typo in a
// selector name fails loudly instead of compiling to a dead rule.
func Parse(data []byte) (*Program, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var p Program
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	return &p, nil
}

// selectors returns the names of the set selector fields.
func (w *When) selectors() []string {
	var set []string
	if w.Always {
		set = append(set, "always")
	}
	if w.Find != "" {
		set = append(set, "find")
	}
	if len(w.FindAny) > 0 {
		set = append(set, "find_any")
	}
	if w.Search != "" {
		set = append(set, "search")
	}
	if w.Match != "" {
		set = append(set, "match")
	}
	if w.Every != 0 {
		set = append(set, "every")
	}
	if w.Between != nil {
		set = append(set, "between")
	}
	return set
}
