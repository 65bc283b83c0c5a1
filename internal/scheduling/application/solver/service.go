// Package solver exposes the single entry point every transport (CLI,
// worker, MCP tool) calls to turn an InputBundle into a solved schedule: it
// wires together the greedy constructor, Cost Evaluator and Meta-Optimizer
// so callers never construct those pieces themselves.
package solver

import (
	"context"
	"time"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// Config bounds one solve: how many weight samples the Meta-Optimizer
// draws, how many Driver workers run concurrently, and the per-sample
// tabu search parameters.
type Config struct {
	Meta              services.MetaOptimizerConfig
	Driver            services.DriverConfig
	Preset            domain.WeightPreset
	Seed              int64
	FairnessTolerance float64 // S5 tolerance band, passed through to every sampled WeightVector
}

// DefaultConfig returns the monthly-mode defaults from §4.2/§6.
func DefaultConfig() Config {
	return Config{
		Meta:              services.DefaultMetaOptimizerConfig(),
		Driver:            services.DefaultDriverConfig(),
		Preset:            domain.PresetBalanced,
		Seed:              1,
		FairnessTolerance: 0.15,
	}
}

// Service runs the full Constructor -> Evaluator -> Meta-Optimizer pipeline
// against a single InputBundle.
type Service struct {
	plugins []services.ConstraintPlugin
}

// NewService builds a Service. plugins, if any, are consulted by the
// Evaluator on every evaluation pass for institution-specific soft-cost
// terms.
func NewService(plugins ...services.ConstraintPlugin) *Service {
	return &Service{plugins: plugins}
}

// Solve runs one full solve over bundle and returns the wire-level Result.
// progress, if non-nil, receives ProgressTicks from every Driver worker;
// callers must make it safe for concurrent use (see services.ProgressFunc).
func (s *Service) Solve(ctx context.Context, bundle *domain.InputBundle, cfg Config, progress services.ProgressFunc) *domain.Result {
	started := time.Now()

	evaluator := services.NewEvaluator(bundle, s.plugins...)
	start := services.Construct(bundle)

	meta := services.NewMetaOptimizer(bundle, evaluator, cfg.Meta, cfg.Driver, cfg.FairnessTolerance)
	outcome := meta.Run(ctx, start, cfg.Preset, cfg.Seed, progress)

	schedule := outcome.Best.Assignment.ToSchedule(bundle.DateString)
	status := "feasible"
	switch {
	case outcome.Best.Cancelled:
		status = "timeout"
	case outcome.Best.Eval.Hard > 0:
		status = "infeasible"
	}

	return &domain.Result{
		Schedule:    schedule,
		PluginTerms: outcome.Best.Eval.PluginTerms,
		Cancelled:   outcome.Best.Cancelled,
		Statistics: domain.Statistics{
			HardViolations:      outcome.Best.Eval.Hard,
			ObjectiveValue:      outcome.Best.Eval.Soft,
			SolutionTimeSeconds: time.Since(started).Seconds(),
			Iterations:          outcome.Best.Iterations,
			Status:              status,
			PerDoctorHours:      outcome.Best.Eval.PerDoctorHours,
			MonthlyVariance:     outcome.Best.Eval.MonthlyVariance,
		},
	}
}
