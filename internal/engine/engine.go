// Package engine is the dispatch core: it owns the ordered rule list and
// the lifecycle hooks, pulls records from input sources, and fires every
// matching rule for every record.
//
// The engine is single-threaded and synchronous. One logical flow of
// control pulls a line, evaluates rules in registration order, and runs
// each matching action to completion before the next line is pulled.
// Nothing executes concurrently, so the shared variable store needs no
// locking and re-running a job over the same frozen input fires the
// identical action sequence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/awkward/internal/field"
	"github.com/roach88/awkward/internal/record"
)

// Source is one openable input stream. The engine opens a source just
// before its record loop and closes it when the source ends, on every exit
// path including early cancellation and error aborts.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// Engine evaluates registered rules against every record of its sources.
//
// Registration (AddRule, BeginJob, ...) is append-only setup; once Run is
// called the rule list is read-only. Rule evaluation order is strictly
// registration order and stable across records. There is no first-match
// short-circuit: every rule whose condition matches fires, in index order.
type Engine struct {
	split        field.Func
	ofs          string
	ors          string
	normalizeEOL bool
	nfc          bool
	skipBadOpen  bool

	rules       []*Rule
	beginJob    []Hook
	endJob      []Hook
	beginSource []Hook
	endSource   []Hook

	job *job // state of the current (or most recent) Run
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSplitter sets the field splitter applied lazily to each record.
func WithSplitter(f field.Func) Option {
	return func(e *Engine) { e.split = f }
}

// WithOFS sets the output field separator used by Context.Print.
func WithOFS(sep string) Option {
	return func(e *Engine) { e.ofs = sep }
}

// WithORS sets the output record separator appended by Context.Print.
func WithORS(end string) Option {
	return func(e *Engine) { e.ors = end }
}

// WithNormalizedTerminators rewrites every input terminator to "\n" instead
// of preserving the exact bytes read.
func WithNormalizedTerminators() Option {
	return func(e *Engine) { e.normalizeEOL = true }
}

// WithNFC normalizes each record's text to Unicode NFC form.
func WithNFC() Option {
	return func(e *Engine) { e.nfc = true }
}

// WithSkipUnopenableSources makes the job log and skip a source that fails
// to open instead of aborting the remaining run (the default).
func WithSkipUnopenableSources() Option {
	return func(e *Engine) { e.skipBadOpen = true }
}

// New constructs an Engine. Defaults: whitespace field splitting, single
// space OFS, "\n" ORS, terminators preserved.
func New(opts ...Option) *Engine {
	e := &Engine{
		split: field.Whitespace(),
		ofs:   " ",
		ors:   "\n",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddRule appends a rule with an explicit action. Returns the rule so the
// call site can attach a label via Named.
func (e *Engine) AddRule(cond Condition, action Action) *Rule {
	r := &Rule{
		label:  fmt.Sprintf("rule-%d", len(e.rules)+1),
		cond:   cond,
		action: action,
	}
	e.rules = append(e.rules, r)
	return r
}

// AddDefaultRule appends a rule whose action is the default: emit the
// record's raw text followed by its terminator.
func (e *Engine) AddDefaultRule(cond Condition) *Rule {
	return e.AddRule(cond, func(c *Context) error { return c.Emit() })
}

// EveryRecord appends the always-match rule with the default action.
func (e *Engine) EveryRecord() *Rule {
	return e.AddDefaultRule(Always())
}

// BeginJob appends a hook run once before any source is opened.
func (e *Engine) BeginJob(h Hook) { e.beginJob = append(e.beginJob, h) }

// EndJob appends a hook run once after all sources are exhausted.
func (e *Engine) EndJob(h Hook) { e.endJob = append(e.endJob, h) }

// BeginSource appends a hook run before each source's record loop.
func (e *Engine) BeginSource(h Hook) { e.beginSource = append(e.beginSource, h) }

// EndSource appends a hook run after each source's record loop.
func (e *Engine) EndSource(h Hook) { e.endSource = append(e.endSource, h) }

// Run drives one job: job-start hooks, then each source in order (source
// start, record loop, source end), then job-end hooks.
//
// Failure reporting follows the phase model: a condition or action error
// aborts the current record loop but still runs that source's end hooks and
// the job's end hooks best-effort, so accumulated state meant to be
// reported at the end is not silently lost. A sink write failure aborts
// immediately with no further hooks. The first failure is what Run returns,
// wrapped in a *PhaseError naming the phase and source.
//
// Run is not safe for concurrent use; one engine drives one job at a time.
func (e *Engine) Run(ctx context.Context, sink io.Writer, sources ...Source) error {
	j := &job{
		sink:   &sinkWriter{w: sink},
		vars:   make(map[string]any),
		ranges: make(map[*rangeState]bool),
	}
	e.job = j
	for _, r := range e.rules {
		r.hits = 0
	}

	jc := &Context{eng: e, job: j}
	slog.Debug("job starting", "sources", len(sources), "rules", len(e.rules))

	stop, err := e.fireHooks(jc, e.beginJob, PhaseJobStart, "")
	if err != nil {
		return err
	}

	var firstErr error
	if !stop {
		for _, src := range sources {
			stopJob, err := e.runSource(ctx, j, src)
			if err != nil {
				if IsSinkError(err) {
					return err
				}
				firstErr = err
				break
			}
			if stopJob {
				break
			}
		}
	}

	// JobEnding: best-effort even after a record-loop failure.
	if _, err := e.fireHooks(jc, e.endJob, PhaseJobEnd, ""); err != nil {
		if IsSinkError(err) {
			return err
		}
		if firstErr == nil {
			firstErr = err
		} else {
			slog.Error("job-end hooks failed after earlier error", "error", err)
		}
	}

	slog.Debug("job finished", "records", j.nr, "err", firstErr)
	return firstErr
}

// runSource runs one source through SourceStarting, RecordLoop and
// SourceEnding. It reports stopJob=true when an action asked for the whole
// job to stop.
func (e *Engine) runSource(ctx context.Context, j *job, src Source) (stopJob bool, err error) {
	name := src.Name()
	r, err := src.Open()
	if err != nil {
		if e.skipBadOpen {
			slog.Warn("skipping unopenable source", "source", name, "error", err)
			return false, nil
		}
		return false, phaseErr(PhaseSource, name, fmt.Errorf("open: %w", err))
	}
	defer func() {
		if cerr := r.Close(); cerr != nil {
			slog.Error("closing source", "source", name, "error", cerr)
		}
	}()

	j.filename = name
	j.fnr = 0
	sc := &Context{eng: e, job: j}
	slog.Debug("source starting", "source", name)

	stop, err := e.fireHooks(sc, e.beginSource, PhaseSourceStart, name)
	if err != nil {
		// Best-effort source-end hooks, then report the original failure.
		e.fireHooksBestEffort(sc, e.endSource, PhaseSourceEnd, name)
		return false, err
	}

	var loopErr error
	if !stop {
		stopJob, loopErr = e.recordLoop(ctx, j, name, r)
		if loopErr != nil && IsSinkError(loopErr) {
			return false, loopErr
		}
	}

	if _, err := e.fireHooks(sc, e.endSource, PhaseSourceEnd, name); err != nil {
		if IsSinkError(err) {
			return false, err
		}
		if loopErr == nil {
			loopErr = err
		} else {
			slog.Error("source-end hooks failed after earlier error", "source", name, "error", err)
		}
	}

	j.sources = append(j.sources, SourceStats{Name: name, Records: j.fnr})
	slog.Debug("source finished", "source", name, "records", j.fnr)
	return stopJob, loopErr
}

// recordLoop pulls records from r and evaluates every rule against each.
func (e *Engine) recordLoop(ctx context.Context, j *job, name string, r io.Reader) (stopJob bool, err error) {
	var scanOpts []record.ScanOption
	if e.normalizeEOL {
		scanOpts = append(scanOpts, record.NormalizeTerminators())
	}
	if e.nfc {
		scanOpts = append(scanOpts, record.NFC())
	}
	sc := record.NewScanner(r, scanOpts...)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return false, phaseErr(PhaseRecordLoop, name, err)
		}
		j.fnr++
		j.nr++
		rec := record.New(sc.Line(), sc.Terminator(), j.fnr, j.nr, name, e.split)
		rc := &Context{eng: e, job: j, rec: rec}

		for _, r := range e.rules {
			res, err := r.cond(rc)
			if err != nil {
				return false, phaseErr(PhaseRecordLoop, name, fmt.Errorf("%s condition: %w", r.label, err))
			}
			if !res.Matched() {
				continue
			}
			r.hits++
			rc.result = res
			err = r.action(rc)
			rc.result = Result{}
			if serr := j.sink.err; serr != nil {
				return false, phaseErr(PhaseSink, name, serr)
			}
			switch {
			case err == nil:
			case errors.Is(err, ErrSkipSource):
				return false, nil
			case errors.Is(err, ErrStopJob):
				return true, nil
			default:
				return false, phaseErr(PhaseRecordLoop, name, fmt.Errorf("%s action: %w", r.label, err))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return false, phaseErr(PhaseSource, name, fmt.Errorf("read: %w", err))
	}
	return false, nil
}

// fireHooks runs hooks in registration order. A hook returning ErrStopJob
// (or ErrSkipSource in a source phase) stops the remaining hooks of that
// category and reports stop=true; any other error aborts with a PhaseError.
func (e *Engine) fireHooks(c *Context, hooks []Hook, phase Phase, source string) (stop bool, err error) {
	for _, h := range hooks {
		err := h(c)
		if serr := c.job.sink.err; serr != nil {
			return false, phaseErr(PhaseSink, source, serr)
		}
		switch {
		case err == nil:
		case errors.Is(err, ErrStopJob), errors.Is(err, ErrSkipSource):
			return true, nil
		default:
			return false, phaseErr(phase, source, err)
		}
	}
	return false, nil
}

// fireHooksBestEffort runs hooks and only logs failures. Used when an
// earlier error is already being propagated.
func (e *Engine) fireHooksBestEffort(c *Context, hooks []Hook, phase Phase, source string) {
	if _, err := e.fireHooks(c, hooks, phase, source); err != nil {
		slog.Error("hooks failed during error unwind", "phase", phase, "source", source, "error", err)
	}
}
