package engine

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/awkward/internal/record"
)

// job holds the mutable state of one Run invocation. The engine is
// single-threaded: exactly one job exists per Run and all mutation happens
// on the calling goroutine.
type job struct {
	sink     *sinkWriter
	vars     map[string]any
	filename string
	nr       int64
	fnr      int64
	ranges   map[*rangeState]bool
	sources  []SourceStats
}

type rangeState struct{}

// sinkWriter latches the first write error so a broken sink aborts the job
// instead of silently dropping output.
type sinkWriter struct {
	w   io.Writer
	err error
}

func (s *sinkWriter) Write(p []byte) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.w.Write(p)
	if err != nil {
		s.err = err
	}
	return n, err
}

// Context is what conditions, actions and hooks see: the current record,
// the job-scoped variable store, and the engine's output primitives.
//
// Vars is deliberately the one piece of shared mutable state in the model.
// A mutation made by one rule is visible to every later rule evaluation and
// every later record in the same job.
type Context struct {
	eng    *Engine
	job    *job
	rec    *record.Record
	result Result
}

// Record returns the current record, or nil inside job-level hooks.
func (c *Context) Record() *record.Record { return c.rec }

// Vars returns the job-scoped variable store. The same map is handed to
// every condition, action and hook for the life of one job.
func (c *Context) Vars() map[string]any { return c.job.vars }

// Result returns the match result of the rule whose action is currently
// running. It is scoped to that one action call; hooks and conditions see
// the NoMatch zero value.
func (c *Context) Result() Result { return c.result }

// NR returns the 1-based record count across the whole job so far.
func (c *Context) NR() int64 { return c.job.nr }

// FNR returns the 1-based record count within the current source so far.
func (c *Context) FNR() int64 { return c.job.fnr }

// Filename returns the name of the source being processed. It is empty in
// job-level hooks.
func (c *Context) Filename() string { return c.job.filename }

// Print writes the string forms of values joined by the output field
// separator, followed by the output record separator, to the active sink.
func (c *Context) Print(values ...any) error {
	return c.PrintWith(c.eng.ofs, c.eng.ors, values...)
}

// PrintWith is Print with an explicit separator and terminator for this
// call only.
func (c *Context) PrintWith(sep, end string, values ...any) error {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	_, err := io.WriteString(c.job.sink, strings.Join(parts, sep)+end)
	return err
}

// Emit writes the current record verbatim: raw text followed by the exact
// terminator that was read. This is the default action.
func (c *Context) Emit() error {
	if c.rec == nil {
		return fmt.Errorf("emit outside record loop")
	}
	_, err := io.WriteString(c.job.sink, c.rec.Raw+c.rec.Terminator)
	return err
}
