// Package record models one logical unit of input: a single line, its exact
// terminator, its position counters, and its lazily computed fields.
package record

import (
	"github.com/roach88/awkward/internal/field"
)

// Record is one input line presented to rule evaluation.
//
// Exactly one Record is current at any point during dispatch. A Record is
// immutable after construction except for the memoized field slice, which is
// computed at most once on first access and lives as long as the record.
type Record struct {
	// Raw is the line content with the terminator stripped.
	// INVARIANT: Raw never contains the terminator.
	Raw string

	// Terminator holds the exact terminator bytes observed for this line:
	// "\n", "\r\n", or "" for an unterminated final line. Used when an
	// action re-emits the line verbatim.
	Terminator string

	// FNR is the 1-based count of records seen in the current source.
	// It resets at the start of each new source.
	FNR int64

	// NR is the 1-based count of records seen across the entire job.
	// It never resets.
	NR int64

	// Filename names the source this record was read from.
	Filename string

	split  field.Func
	fields []string
	have   bool
}

// New constructs a Record whose fields are computed by split on first access.
func New(raw, terminator string, fnr, nr int64, filename string, split field.Func) *Record {
	return &Record{
		Raw:        raw,
		Terminator: terminator,
		FNR:        fnr,
		NR:         nr,
		Filename:   filename,
		split:      split,
	}
}

// Len returns len(Raw).
func (r *Record) Len() int { return len(r.Raw) }

// Fields returns the record's fields, splitting Raw on first call and
// memoizing the result. Callers must not mutate the returned slice.
func (r *Record) Fields() []string {
	if !r.have {
		r.fields = r.split(r.Raw)
		r.have = true
	}
	return r.fields
}

// NF returns the number of fields.
func (r *Record) NF() int { return len(r.Fields()) }

// Field returns the 1-based i'th field. Out-of-range indexes (including
// i < 1) report ok=false rather than failing; the field value is then "".
func (r *Record) Field(i int) (string, bool) {
	fields := r.Fields()
	if i < 1 || i > len(fields) {
		return "", false
	}
	return fields[i-1], true
}
