package services

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// MetaOptimizerConfig bounds the weight-sampling search.
type MetaOptimizerConfig struct {
	Samples int // number of weight vectors to sample, 8-32 per §6
	Workers int // max concurrent Driver runs
}

// DefaultMetaOptimizerConfig returns the mid-range defaults.
func DefaultMetaOptimizerConfig() MetaOptimizerConfig {
	return MetaOptimizerConfig{Samples: 16, Workers: 4}
}

// MetaOptimizerResult is the winning sample across the whole run, plus the
// full set of per-sample results for diagnostics.
type MetaOptimizerResult struct {
	Best    DriverResult
	Weights domain.WeightVector
	Samples []DriverResult
}

// MetaOptimizer runs the Driver once per sampled WeightVector, in parallel,
// and returns the argmin under Better. Every sample shares bundle, starting
// assignment, and wall-clock budget (via ctx); a cancelled or timed-out run
// simply contributes its own best-known-so-far to the pool.
type MetaOptimizer struct {
	bundle              *domain.InputBundle
	evaluator           *Evaluator
	config              MetaOptimizerConfig
	driverCfg           DriverConfig
	fairnessTolerance   float64
}

// NewMetaOptimizer builds a MetaOptimizer bound to a fixed bundle.
// fairnessTolerance is the S5 tolerance band, carried unchanged into every
// sampled WeightVector since the Meta-Optimizer never varies it.
func NewMetaOptimizer(bundle *domain.InputBundle, evaluator *Evaluator, config MetaOptimizerConfig, driverCfg DriverConfig, fairnessTolerance float64) *MetaOptimizer {
	return &MetaOptimizer{bundle: bundle, evaluator: evaluator, config: config, driverCfg: driverCfg, fairnessTolerance: fairnessTolerance}
}

// Run samples config.Samples weight vectors from preset's narrowed ranges,
// runs a Driver per sample (up to config.Workers concurrently), and returns
// the best result by Better. progress, if non-nil, is invoked from every
// worker goroutine — callers must make it safe for concurrent use.
func (m *MetaOptimizer) Run(ctx context.Context, start *domain.Assignment, preset domain.WeightPreset, seed int64, progress ProgressFunc) MetaOptimizerResult {
	weightSamples := m.sampleWeights(preset, seed)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Workers)

	results := make([]DriverResult, len(weightSamples))
	var progressMu sync.Mutex
	safeProgress := progress
	if progress != nil {
		safeProgress = func(tick ProgressTick) {
			progressMu.Lock()
			defer progressMu.Unlock()
			progress(tick)
		}
	}

	for i, w := range weightSamples {
		i, w := i, w
		g.Go(func() error {
			driver := NewDriver(m.bundle, m.evaluator, m.driverCfg)
			// Each sample gets its own derived seed so driver runs are
			// mutually independent yet individually deterministic.
			results[i] = driver.Run(ctx, start, w, seed+int64(i)+1, safeProgress)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error; ctx cancellation is observed via Driver.Run

	bestIdx := 0
	for i := 1; i < len(results); i++ {
		if Better(results[i].Eval, results[bestIdx].Eval) {
			bestIdx = i
		}
	}

	return MetaOptimizerResult{
		Best:    results[bestIdx],
		Weights: weightSamples[bestIdx],
		Samples: results,
	}
}

// sampleWeights draws config.Samples weight vectors uniformly at random
// from preset's narrowed sampling ranges, seeded deterministically.
func (m *MetaOptimizer) sampleWeights(preset domain.WeightPreset, seed int64) []domain.WeightVector {
	rng := rand.New(rand.NewSource(seed))
	balance, weekendHoliday, seniorWorkload, prefJunior, prefSenior, prefFair, seniorHoliday := preset.NarrowedRanges()

	n := m.config.Samples
	if n <= 0 {
		n = DefaultMetaOptimizerConfig().Samples
	}

	out := make([]domain.WeightVector, n)
	for i := 0; i < n; i++ {
		out[i] = domain.WeightVector{
			WBalance:        sampleFrom(balance, rng),
			WWeekendHoliday: sampleFrom(weekendHoliday, rng),
			WSeniorWorkload: sampleFrom(seniorWorkload, rng),
			WPrefJunior:     sampleFrom(prefJunior, rng),
			WPrefSenior:     sampleFrom(prefSenior, rng),
			WPrefFair:       sampleFrom(prefFair, rng),
			WSeniorHoliday:  sampleFrom(seniorHoliday, rng),
			WConsecutive:    50, // fixed, never sampled per §6

			PreferenceFairnessTolerance: m.fairnessTolerance,
		}
	}
	return out
}

// sampleFrom draws a uniformly random value from r's discrete grid.
func sampleFrom(r domain.WeightRange, rng *rand.Rand) float64 {
	if r.Step <= 0 {
		return r.Min
	}
	steps := int((r.Max-r.Min)/r.Step) + 1
	if steps <= 1 {
		return r.Min
	}
	return r.Min + float64(rng.Intn(steps))*r.Step
}
