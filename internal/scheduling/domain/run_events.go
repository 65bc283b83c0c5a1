package domain

import (
	sharedDomain "github.com/shiftforge/scheduler/internal/shared/domain"
	"github.com/google/uuid"
)

const (
	RunAggregateType = "Run"

	RoutingKeyRunStarted = "scheduling.run.started"
	RoutingKeyRunSolved  = "scheduling.run.solved"
	RoutingKeyRunFailed  = "scheduling.run.failed"
)

// RunStarted is emitted when a worker picks up a pending run.
type RunStarted struct {
	sharedDomain.BaseEvent
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID uuid.UUID) RunStarted {
	return RunStarted{
		BaseEvent: sharedDomain.NewBaseEvent(runID, RunAggregateType, RoutingKeyRunStarted),
	}
}

// RunSolved is emitted when a run reaches a terminal, non-failed status
// (feasible, infeasible, or timeout). It is published through the outbox
// under the routing key scheduling.run.solved.
type RunSolved struct {
	sharedDomain.BaseEvent
	Status         string `json:"status"`
	HardViolations int    `json:"hard_violations"`
	ObjectiveValue float64 `json:"objective_value"`
}

// NewRunSolved creates a RunSolved event.
func NewRunSolved(runID uuid.UUID, status RunStatus, result *Result) RunSolved {
	return RunSolved{
		BaseEvent:      sharedDomain.NewBaseEvent(runID, RunAggregateType, RoutingKeyRunSolved),
		Status:         string(status),
		HardViolations: result.Statistics.HardViolations,
		ObjectiveValue: result.Statistics.ObjectiveValue,
	}
}

// RunFailed is emitted when a run fails outright (InvalidInput,
// InternalInvariantBroken).
type RunFailed struct {
	sharedDomain.BaseEvent
	Reason string `json:"reason"`
}

// NewRunFailed creates a RunFailed event.
func NewRunFailed(runID uuid.UUID, reason string) RunFailed {
	return RunFailed{
		BaseEvent: sharedDomain.NewBaseEvent(runID, RunAggregateType, RoutingKeyRunFailed),
		Reason:    reason,
	}
}
