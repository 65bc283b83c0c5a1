package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	sharedApplication "github.com/shiftforge/scheduler/internal/shared/application"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/outbox"
)

// ExecuteCommand tells the worker to run a previously-submitted, still
// pending run.
type ExecuteCommand struct {
	RunID  uuid.UUID
	Config solver.Config
}

// ExecuteHandler is the worker-side counterpart to SubmitHandler: it loads
// a pending run by ID, transitions it through running to its terminal
// status, and persists/outboxes both transitions — the same lifecycle
// SolveHandler drives for an in-process solve, just starting from a run
// that already exists rather than creating one.
type ExecuteHandler struct {
	runRepo      domain.RunRepository
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
	solver       *solver.Service
	progressSink ProgressSink
	logger       *slog.Logger
}

// NewExecuteHandler builds an ExecuteHandler. progressSink may be nil.
func NewExecuteHandler(
	runRepo domain.RunRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	solverSvc *solver.Service,
	progressSink ProgressSink,
	logger *slog.Logger,
) *ExecuteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecuteHandler{
		runRepo:      runRepo,
		outboxRepo:   outboxRepo,
		uow:          uow,
		solver:       solverSvc,
		progressSink: progressSink,
		logger:       logger,
	}
}

// Handle runs cmd.RunID's bundle through the Meta-Optimizer and returns its
// terminal status.
func (h *ExecuteHandler) Handle(ctx context.Context, cmd ExecuteCommand) (*SolveResult, error) {
	run, err := h.runRepo.FindByID(ctx, cmd.RunID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", cmd.RunID)
	}
	if run.Bundle() == nil {
		return nil, fmt.Errorf("%w: run %s was persisted without its input bundle", domain.ErrInternalInvariantBroken, cmd.RunID)
	}

	run.Start()
	if err := saveAndPublishRun(ctx, h.runRepo, h.outboxRepo, h.uow, run); err != nil {
		return nil, err
	}

	progress := progressFuncFor(h.progressSink, run.ID(), h.logger)
	result := h.solver.Solve(ctx, run.Bundle(), cmd.Config, progress)
	run.Complete(result)

	if err := saveAndPublishRun(ctx, h.runRepo, h.outboxRepo, h.uow, run); err != nil {
		return nil, err
	}

	return &SolveResult{
		RunID:  run.ID(),
		Status: run.Status(),
		Result: run.Result(),
	}, nil
}
