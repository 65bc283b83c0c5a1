package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
)

// channelPrefix namespaces progress channels from every other Redis
// pub/sub user on the same instance.
const channelPrefix = "shiftforge:progress:"

// Channel returns the pub/sub channel a run's ticks are published on.
func Channel(runID uuid.UUID) string {
	return channelPrefix + runID.String()
}

// tickMessage is the wire envelope published on the Redis channel.
type tickMessage struct {
	Iteration int     `json:"iteration"`
	BestHard  int     `json:"best_hard"`
	BestSoft  float64 `json:"best_soft"`
	Phase     string  `json:"phase"`
}

// RedisSink publishes progress ticks over Redis pub/sub, so any number of
// watchers (CLI, web dashboard) can subscribe to a run without the solve
// loop knowing how many, or whether any, are listening. A circuit breaker
// shields the solve loop from a degraded Redis instance: once tripped,
// Publish returns immediately instead of piling up on a dead connection.
type RedisSink struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewRedisSink creates a RedisSink with a circuit breaker tuned for a
// pub/sub side channel: progress ticks are best-effort, so it trips fast
// and recovers fast rather than holding the solve loop hostage.
func NewRedisSink(client *redis.Client, logger *slog.Logger) *RedisSink {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        "progress-redis",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("progress sink circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &RedisSink{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
		logger:  logger,
	}
}

func (s *RedisSink) Publish(ctx context.Context, runID uuid.UUID, tick services.ProgressTick) error {
	payload, err := json.Marshal(tickMessage{
		Iteration: tick.Iteration,
		BestHard:  tick.BestHard,
		BestSoft:  tick.BestSoft,
		Phase:     tick.Phase,
	})
	if err != nil {
		return fmt.Errorf("marshal progress tick: %w", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.client.Publish(ctx, Channel(runID), payload).Err()
	})
	if err == gobreaker.ErrOpenState {
		return nil // dropped: a stalled Redis must not stall the solve loop
	}
	return err
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
