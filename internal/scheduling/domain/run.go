package domain

import (
	"time"

	sharedDomain "github.com/shiftforge/scheduler/internal/shared/domain"
	"github.com/google/uuid"
)

// RunStatus is the lifecycle state of a solve, tracked by the persistence
// and worker layers so a caller can poll status without holding a
// connection open across a long solve.
type RunStatus string

const (
	RunPending     RunStatus = "pending"
	RunRunning     RunStatus = "running"
	RunFeasible    RunStatus = "feasible"
	RunInfeasible  RunStatus = "infeasible"
	RunTimedOut    RunStatus = "timeout"
	RunFailed      RunStatus = "failed"
)

// IsTerminal reports whether status is one a worker will never transition
// out of.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunFeasible, RunInfeasible, RunTimedOut, RunFailed:
		return true
	default:
		return false
	}
}

// Run is one Meta-Optimizer invocation over a single input bundle,
// identified by a UUID, whose lifecycle the persistence and worker layers
// track. Mode/Year/Month are carried alongside the lifecycle state purely
// so a repository can list or filter runs without loading the result
// payload; they play no part in the solve itself. Bundle is the exact
// input submitted, kept so a worker picking the run off a pending queue
// can execute it without the submitter staying alive or resending it.
type Run struct {
	sharedDomain.BaseAggregateRoot
	mode          Mode
	year          int
	month         time.Month
	bundle        *InputBundle // nil for a run rehydrated without its bundle (e.g. a terminal run loaded just for its result)
	status        RunStatus
	result        *Result // nil until the run reaches a terminal status
	failureReason string
}

// NewRun creates a new, pending run over bundle. It is not yet started:
// callers that execute in-process call Start immediately after; a
// submitter that only enqueues the run for a worker leaves it pending.
func NewRun(bundle *InputBundle) *Run {
	return &Run{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		mode:              bundle.Mode,
		year:              bundle.Year,
		month:             bundle.Month,
		bundle:            bundle,
		status:            RunPending,
	}
}

// RehydrateRun recreates a Run from persisted state. bundle may be nil
// when the caller only needs the lifecycle/result (e.g. GetSolveStatusQuery).
func RehydrateRun(id uuid.UUID, mode Mode, year int, month time.Month, bundle *InputBundle, status RunStatus, result *Result, failureReason string, createdAt, updatedAt time.Time) *Run {
	baseEntity := sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return &Run{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(baseEntity, 0),
		mode:              mode,
		year:              year,
		month:             month,
		bundle:            bundle,
		status:            status,
		result:            result,
		failureReason:     failureReason,
	}
}

func (r *Run) Mode() Mode            { return r.mode }
func (r *Run) Year() int             { return r.year }
func (r *Run) Month() time.Month     { return r.month }
func (r *Run) Bundle() *InputBundle  { return r.bundle }
func (r *Run) Status() RunStatus     { return r.status }
func (r *Run) Result() *Result       { return r.result }
func (r *Run) FailureReason() string { return r.failureReason }

// Start transitions a pending run to running. Emitted when a worker picks
// the run off the pending queue (or, for an in-process solve, immediately
// after submission).
func (r *Run) Start() {
	r.status = RunRunning
	r.Touch()
	r.AddDomainEvent(NewRunStarted(r.ID()))
}

// Complete transitions a running run to its terminal status, derived from
// the result's hard-violation count and whether it was cancelled.
func (r *Run) Complete(result *Result) {
	r.result = result
	switch {
	case result.Cancelled:
		r.status = RunTimedOut
	case result.Statistics.HardViolations > 0:
		r.status = RunInfeasible
	default:
		r.status = RunFeasible
	}
	r.Touch()
	r.AddDomainEvent(NewRunSolved(r.ID(), r.status, result))
}

// Fail transitions a run to failed, e.g. on InvalidInput or
// InternalInvariantBroken.
func (r *Run) Fail(reason string) {
	r.status = RunFailed
	r.failureReason = reason
	r.Touch()
	r.AddDomainEvent(NewRunFailed(r.ID(), reason))
}
