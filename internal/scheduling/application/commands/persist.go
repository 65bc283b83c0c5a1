package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	sharedApplication "github.com/shiftforge/scheduler/internal/shared/application"
	"github.com/shiftforge/scheduler/internal/shared/infrastructure/outbox"
)

// saveAndPublishRun persists run and its pending domain events atomically,
// following the save-then-outbox-in-one-transaction idiom: a crash between
// the two would otherwise either lose the event or publish one for a state
// that was never durably committed. Shared by every command handler that
// mutates a Run (SolveHandler, SubmitHandler, ExecuteHandler).
func saveAndPublishRun(
	ctx context.Context,
	runRepo domain.RunRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	run *domain.Run,
) error {
	return sharedApplication.WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		if err := runRepo.Save(txCtx, run); err != nil {
			return err
		}

		events := run.DomainEvents()
		msgs := make([]*outbox.Message, 0, len(events))
		for _, event := range events {
			msg, err := outbox.NewMessage(event)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if len(msgs) > 0 {
			if err := outboxRepo.SaveBatch(txCtx, msgs); err != nil {
				return err
			}
		}

		run.ClearDomainEvents()
		return nil
	})
}

// progressFuncFor adapts a ProgressSink into the services.ProgressFunc the
// Meta-Optimizer's workers call concurrently; a nil sink is a no-op.
func progressFuncFor(sink ProgressSink, runID uuid.UUID, logger *slog.Logger) services.ProgressFunc {
	if sink == nil {
		return nil
	}
	return func(tick services.ProgressTick) {
		if err := sink.Publish(context.Background(), runID, tick); err != nil {
			logger.Warn("progress publish failed", "run_id", runID, "error", err)
		}
	}
}
