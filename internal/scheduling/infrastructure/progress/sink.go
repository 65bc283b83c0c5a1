// Package progress streams Driver/MetaOptimizer ProgressTicks to external
// subscribers (CLI watchers, web dashboards) without the solve loop itself
// ever blocking on a slow or unreachable subscriber.
package progress

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
)

// Sink publishes one progress tick for a run. Implementations must not
// block the caller for long: the solve loop calls Publish synchronously
// from inside its iteration loop.
type Sink interface {
	Publish(ctx context.Context, runID uuid.UUID, tick services.ProgressTick) error
	Close() error
}

// BoundedSink decouples a slow or unreliable underlying Sink from the
// solve loop: Publish enqueues onto a fixed-size buffered channel and
// returns immediately, dropping the oldest queued tick rather than ever
// blocking the caller. A background goroutine drains the queue into the
// wrapped Sink.
type BoundedSink struct {
	next   Sink
	logger *slog.Logger
	queue  chan tickEnvelope
	done   chan struct{}
}

type tickEnvelope struct {
	runID uuid.UUID
	tick  services.ProgressTick
}

// NewBoundedSink wraps next with a bounded, non-blocking queue of the
// given capacity and starts the drain goroutine. Close must be called to
// stop it.
func NewBoundedSink(next Sink, capacity int, logger *slog.Logger) *BoundedSink {
	if capacity <= 0 {
		capacity = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &BoundedSink{
		next:   next,
		logger: logger,
		queue:  make(chan tickEnvelope, capacity),
		done:   make(chan struct{}),
	}
	go s.drain()
	return s
}

// Publish enqueues tick without blocking. If the queue is full, the
// oldest queued tick is dropped to make room: a stale tick is worthless
// once a newer one exists, so dropping beats blocking the solve loop.
func (s *BoundedSink) Publish(_ context.Context, runID uuid.UUID, tick services.ProgressTick) error {
	envelope := tickEnvelope{runID: runID, tick: tick}
	select {
	case s.queue <- envelope:
		return nil
	default:
		select {
		case <-s.queue:
		default:
		}
		select {
		case s.queue <- envelope:
		default:
		}
		return nil
	}
}

func (s *BoundedSink) drain() {
	ctx := context.Background()
	for {
		select {
		case envelope, ok := <-s.queue:
			if !ok {
				return
			}
			if err := s.next.Publish(ctx, envelope.runID, envelope.tick); err != nil {
				s.logger.Warn("progress sink publish failed", "run_id", envelope.runID, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// Close stops the drain goroutine and closes the wrapped Sink.
func (s *BoundedSink) Close() error {
	close(s.done)
	return s.next.Close()
}
