package engine

// SourceStats counts the records pulled from one source.
type SourceStats struct {
	Name    string
	Records int64
}

// RuleStats counts how often one rule's action fired.
type RuleStats struct {
	Label string
	Hits  int64
}

// Stats is a snapshot of the most recent Run: total records, per-source
// record counts in processing order, and per-rule hit counts in
// registration order. It feeds the trace journal and the history command.
type Stats struct {
	Records int64
	Sources []SourceStats
	Rules   []RuleStats
}

// Stats returns the snapshot for the most recent Run. Before any Run it is
// the zero snapshot (rules listed, all counters zero).
func (e *Engine) Stats() Stats {
	st := Stats{Rules: make([]RuleStats, len(e.rules))}
	for i, r := range e.rules {
		st.Rules[i] = RuleStats{Label: r.label, Hits: r.hits}
	}
	if e.job != nil {
		st.Records = e.job.nr
		st.Sources = append(st.Sources, e.job.sources...)
	}
	return st
}
