package domain

import (
	"context"

	"github.com/google/uuid"
)

// RunRepository defines persistence for solve runs: the lifecycle row plus
// whatever result it eventually carries. A run is written at least twice
// per solve (pending, then terminal), so Save must be a full upsert rather
// than an insert-only operation.
type RunRepository interface {
	// Save persists a run (create or update), including its result and
	// failure reason if present.
	Save(ctx context.Context, run *Run) error

	// FindByID finds a run by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Run, error)

	// FindPending returns up to limit runs still in RunPending status,
	// oldest first, for a worker to pick up. The worker is responsible for
	// transitioning each to running (Start) and saving it before it can be
	// claimed by another poll.
	FindPending(ctx context.Context, limit int) ([]*Run, error)

	// Delete removes a run and its result.
	Delete(ctx context.Context, id uuid.UUID) error
}
