package engine

// Result is the outcome of evaluating a condition against a record.
//
// It is a two-variant value: NoMatch, or Matched with an arbitrary payload.
// The payload carries whatever the condition computed while matching (a
// substring offset, a regexp span, or nothing of interest). An offset of 0
// is a perfectly good match; matching is decided by the variant, never by
// the payload's truthiness.
type Result struct {
	ok      bool
	payload any
}

// NoMatch reports that the condition did not match.
func NoMatch() Result { return Result{} }

// Matched reports a match carrying payload.
func Matched(payload any) Result { return Result{ok: true, payload: payload} }

// Matched reports whether this is the matched variant.
func (r Result) Matched() bool { return r.ok }

// Payload returns the value the condition attached to the match.
// It is nil for the NoMatch variant.
func (r Result) Payload() any { return r.payload }

// Condition decides whether a rule fires for the current record.
// Conditions run in registration order and must not retain state between
// jobs; per-job state belongs in the Context.
type Condition func(*Context) (Result, error)

// Action runs when its rule's condition matched. The match result is
// available through Context.Result for the duration of this call only.
type Action func(*Context) error

// Hook runs at a lifecycle boundary: job start/end or source start/end.
// Hooks in one category run in registration order.
type Hook func(*Context) error

// Rule is a registered (condition, action, metadata) triple. Rules are
// created through Engine registration and immutable afterwards except for
// their hit counter.
type Rule struct {
	label  string
	cond   Condition
	action Action
	hits   int64
}

// Named sets the rule's label, used in stats and error reporting.
// Returns the rule for call-site chaining at registration.
func (r *Rule) Named(label string) *Rule {
	r.label = label
	return r
}

// Label returns the rule's label ("rule-N" unless Named).
func (r *Rule) Label() string { return r.label }
