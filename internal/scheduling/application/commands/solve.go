package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	sharedApplication "github.com/shiftforge/scheduler/internal/shared/application"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/outbox"
)

// ProgressSink publishes one progress tick for a run, e.g. over Redis
// pub/sub. A nil sink means no live progress is streamed.
type ProgressSink interface {
	Publish(ctx context.Context, runID uuid.UUID, tick services.ProgressTick) error
}

// SolveCommand carries an already-validated InputBundle through a single
// solve. Assembling the bundle from wire-level input is the caller's
// concern; the handler only orchestrates the solve and its persistence.
type SolveCommand struct {
	Bundle *domain.InputBundle
	Config solver.Config
}

// SolveResult is what a caller receives once a solve reaches a terminal
// status.
type SolveResult struct {
	RunID         uuid.UUID
	Status        domain.RunStatus
	Result        *domain.Result
	FailureReason string
}

// SolveHandler orchestrates one solve end to end: it persists the run's
// lifecycle transitions, runs the Meta-Optimizer, and publishes the
// resulting domain events through the transactional outbox — mirroring the
// aggregate-mutate-then-outbox-publish idiom every other command handler in
// this codebase follows.
type SolveHandler struct {
	runRepo      domain.RunRepository
	outboxRepo   outbox.Repository
	uow          sharedApplication.UnitOfWork
	solver       *solver.Service
	progressSink ProgressSink
	logger       *slog.Logger
}

// NewSolveHandler builds a SolveHandler. progressSink may be nil, in which
// case no progress ticks are streamed.
func NewSolveHandler(
	runRepo domain.RunRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	solverSvc *solver.Service,
	progressSink ProgressSink,
	logger *slog.Logger,
) *SolveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SolveHandler{
		runRepo:      runRepo,
		outboxRepo:   outboxRepo,
		uow:          uow,
		solver:       solverSvc,
		progressSink: progressSink,
		logger:       logger,
	}
}

// Handle runs cmd.Bundle through the Meta-Optimizer and returns its
// terminal status. The run row is saved (and its domain events outboxed)
// twice: once on transition to running, once on reaching a terminal
// status — so a caller polling GetSolveStatusQuery observes "running"
// for the duration of a long solve rather than nothing at all.
func (h *SolveHandler) Handle(ctx context.Context, cmd SolveCommand) (*SolveResult, error) {
	run := domain.NewRun(cmd.Bundle)
	run.Start()
	if err := saveAndPublishRun(ctx, h.runRepo, h.outboxRepo, h.uow, run); err != nil {
		return nil, err
	}

	progress := progressFuncFor(h.progressSink, run.ID(), h.logger)
	result := h.solver.Solve(ctx, cmd.Bundle, cmd.Config, progress)
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
