package engine

import (
	"errors"
	"fmt"
)

// Cooperative cancellation sentinels, in the manner of fs.SkipDir.
var (
	// ErrSkipSource signals "stop processing this source". The engine
	// transitions immediately to the source-end hooks and continues with
	// the next source. Not reported as a failure.
	ErrSkipSource = errors.New("skip remaining records in source")

	// ErrStopJob signals "stop the entire job". The engine runs the
	// current source's end hooks and the job's end hooks, then returns
	// nil. Not reported as a failure.
	ErrStopJob = errors.New("stop job")
)

// Phase identifies where in the job state machine a failure happened.
type Phase string

const (
	PhaseJobStart    Phase = "job-start"
	PhaseSourceStart Phase = "source-start"
	PhaseSource      Phase = "source"
	PhaseRecordLoop  Phase = "record-loop"
	PhaseSourceEnd   Phase = "source-end"
	PhaseJobEnd      Phase = "job-end"
	PhaseSink        Phase = "sink"
)

// PhaseError reports which phase failed, for which source, and why.
// The underlying cause is propagated unwrapped via errors.Is/As.
type PhaseError struct {
	Phase  Phase
	Source string // source name, empty for job-level phases
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s (source %s): %v", e.Phase, e.Source, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

func phaseErr(phase Phase, source string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Source: source, Err: err}
}

// IsSinkError reports whether err was caused by a failed write to the
// output sink. Sink failures abort immediately, without best-effort hooks.
func IsSinkError(err error) bool {
	var pe *PhaseError
	return errors.As(err, &pe) && pe.Phase == PhaseSink
}
