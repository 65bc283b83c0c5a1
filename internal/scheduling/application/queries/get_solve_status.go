package queries

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// GetSolveStatusQuery looks up one run by ID.
type GetSolveStatusQuery struct {
	RunID uuid.UUID
}

// SolveStatusDTO is the wire-level view of a run: enough for a poller to
// tell pending/running/terminal apart without touching the domain type.
type SolveStatusDTO struct {
	RunID         uuid.UUID
	Status        domain.RunStatus
	Mode          domain.Mode
	Year          int
	Month         int
	Result        *domain.Result
	FailureReason string
}

// GetSolveStatusHandler handles GetSolveStatusQuery.
type GetSolveStatusHandler struct {
	runRepo domain.RunRepository
}

// NewGetSolveStatusHandler creates a new GetSolveStatusHandler.
func NewGetSolveStatusHandler(runRepo domain.RunRepository) *GetSolveStatusHandler {
	return &GetSolveStatusHandler{runRepo: runRepo}
}

// Handle executes the GetSolveStatusQuery.
func (h *GetSolveStatusHandler) Handle(ctx context.Context, query GetSolveStatusQuery) (*SolveStatusDTO, error) {
	run, err := h.runRepo.FindByID(ctx, query.RunID)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %s not found", query.RunID)
	}

	return &SolveStatusDTO{
		RunID:         run.ID(),
		Status:        run.Status(),
		Mode:          run.Mode(),
		Year:          run.Year(),
		Month:         int(run.Month()),
		Result:        run.Result(),
		FailureReason: run.FailureReason(),
	}, nil
}
