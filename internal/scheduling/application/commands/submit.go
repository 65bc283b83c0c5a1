package commands

import (
	"context"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	sharedApplication "github.com/shiftforge/scheduler/internal/shared/application"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/outbox"
)

// SubmitCommand enqueues an already-validated InputBundle for a worker to
// pick up later; it never runs the solve itself.
type SubmitCommand struct {
	Bundle *domain.InputBundle
}

// SubmitResult is the run ID a caller polls with GetSolveStatusQuery.
type SubmitResult struct {
	RunID uuid.UUID
}

// SubmitHandler persists a new pending run carrying cmd.Bundle, for the
// worker's FindPending poll to later claim. It is the decoupled-execution
// counterpart to SolveHandler: where SolveHandler runs the solve
// synchronously in the caller's process, SubmitHandler only records that a
// solve was requested. A pending run has no domain events of its own —
// RunStarted is only emitted once a worker actually picks it up.
type SubmitHandler struct {
	runRepo    domain.RunRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewSubmitHandler builds a SubmitHandler.
func NewSubmitHandler(runRepo domain.RunRepository, outboxRepo outbox.Repository, uow sharedApplication.UnitOfWork) *SubmitHandler {
	return &SubmitHandler{runRepo: runRepo, outboxRepo: outboxRepo, uow: uow}
}

// Handle persists a new pending run and returns its ID.
func (h *SubmitHandler) Handle(ctx context.Context, cmd SubmitCommand) (*SubmitResult, error) {
	run := domain.NewRun(cmd.Bundle)
	if err := saveAndPublishRun(ctx, h.runRepo, h.outboxRepo, h.uow, run); err != nil {
		return nil, err
	}
	return &SubmitResult{RunID: run.ID()}, nil
}
