package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// DriverConfig bounds a single tabu search run. Defaults are per §4.2's
// recommended ranges; yearly and monthly modes favor opposite ends.
type DriverConfig struct {
	MaxIterations       int
	TabuTenure          int
	PhaseInterval       int // iterations between phase rotations
	NoImprovementLimit  int // consecutive non-improving iterations before stopping
	ProgressTickEvery   time.Duration
}

// DefaultDriverConfig returns the monthly-mode defaults from §4.2.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		MaxIterations:      1000,
		TabuTenure:         15,
		PhaseInterval:      50,
		NoImprovementLimit: 75,
		ProgressTickEvery:  500 * time.Millisecond,
	}
}

// ProgressTick is emitted at a capped rate so a caller (worker, CLI) can
// surface liveness without flooding a progress sink.
type ProgressTick struct {
	Iteration int
	BestHard  int
	BestSoft  float64
	Phase     string
}

// ProgressFunc receives ProgressTicks. Never blocks the search loop for
// long: callers are expected to buffer or drop ticks, not process them
// synchronously.
type ProgressFunc func(ProgressTick)

// DriverResult is everything the Driver produced for one weight vector.
type DriverResult struct {
	Assignment *domain.Assignment
	Eval       EvalResult
	Iterations int
	Cancelled  bool
}

// Driver runs tabu search from a starting Assignment toward a local optimum
// of the Evaluator's hierarchical score, for one fixed WeightVector.
//
// Determinism: given the same bundle, starting assignment, weights and
// seed, Run produces a bit-identical result — every random choice (phase
// tie-breaks aside, there are none) flows through the single rng that Run
// builds from its seed argument.
type Driver struct {
	bundle    *domain.InputBundle
	evaluator *Evaluator
	neighbors *NeighborhoodGenerator
	config    DriverConfig
}

// NewDriver builds a Driver bound to a fixed bundle and evaluator.
func NewDriver(bundle *domain.InputBundle, evaluator *Evaluator, config DriverConfig) *Driver {
	return &Driver{
		bundle:    bundle,
		evaluator: evaluator,
		neighbors: NewNeighborhoodGenerator(bundle),
		config:    config,
	}
}

type tabuEntry struct {
	signature string
	expiresAt int
}

// Run executes the tabu search loop. ctx cancellation is checked at the top
// of every iteration (cooperative cancellation, per §5); a cancelled run
// returns its best-known assignment so far with Cancelled set.
func (d *Driver) Run(ctx context.Context, start *domain.Assignment, weights domain.WeightVector, seed int64, progress ProgressFunc) DriverResult {
	rng := rand.New(rand.NewSource(seed))

	current := start.Clone()
	currentEval := d.evaluator.Evaluate(current, weights)

	best := current.Clone()
	bestEval := currentEval

	var tabu []tabuEntry
	noImprovement := 0
	phase := PhaseGeneral
	lastTick := time.Time{}

	iteration := 0
	for ; iteration < d.config.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			return DriverResult{Assignment: best, Eval: bestEval, Iterations: iteration, Cancelled: true}
		default:
		}

		if d.config.PhaseInterval > 0 && iteration > 0 && iteration%d.config.PhaseInterval == 0 {
			phase = d.rotatePhase(phase, currentEval)
		}

		moves := d.neighbors.Generate(current, phase, rng)
		if len(moves) == 0 {
			noImprovement++
			if noImprovement >= 2 {
				break
			}
			continue
		}

		tabuSet := make(map[string]bool, len(tabu))
		for _, e := range tabu {
			if e.expiresAt > iteration {
				tabuSet[e.signature] = true
			}
		}

		bestMove, bestMoveEval, found := d.selectMove(current, moves, weights, tabuSet, bestEval)
		if !found {
			noImprovement++
			if noImprovement >= 2 {
				break
			}
			continue
		}

		inverse := bestMove.Apply(current)
		currentEval = bestMoveEval
		tabu = append(tabu, tabuEntry{signature: inverse.Signature(), expiresAt: iteration + d.config.TabuTenure})

		if Better(currentEval, bestEval) {
			best = current.Clone()
			bestEval = currentEval
			noImprovement = 0
		} else {
			noImprovement++
		}

		if progress != nil && (lastTick.IsZero() || time.Since(lastTick) >= d.config.ProgressTickEvery) {
			progress(ProgressTick{Iteration: iteration, BestHard: bestEval.Hard, BestSoft: bestEval.Soft, Phase: phase.String()})
			lastTick = time.Now()
		}

		if noImprovement >= d.config.NoImprovementLimit {
			break
		}
	}

	return DriverResult{Assignment: best, Eval: bestEval, Iterations: iteration, Cancelled: false}
}

// selectMove picks the argmin-by-Score candidate among non-tabu moves,
// applying the aspiration criterion: a tabu move is allowed anyway if it
// would strictly improve on the best-known result.
func (d *Driver) selectMove(current *domain.Assignment, moves []Move, weights domain.WeightVector, tabuSet map[string]bool, bestEval EvalResult) (Move, EvalResult, bool) {
	var chosen Move
	var chosenEval EvalResult
	var chosenScore float64
	found := false

	for _, m := range moves {
		inverse := m.Apply(current)
		eval := d.evaluator.Evaluate(current, weights)
		inverse.Apply(current) // revert; selection only probes

		tabooed := tabuSet[m.Signature()]
		if tabooed && !Better(eval, bestEval) {
			continue
		}

		if !found || eval.Score < chosenScore {
			chosen = m
			chosenEval = eval
			chosenScore = eval.Score
			found = true
		}
	}

	return chosen, chosenEval, found
}

// rotatePhase applies §4.3's forcing rules (high balance variance forces
// Balance, an unmet contract forces Contract) before falling back to a
// round-robin rotation.
func (d *Driver) rotatePhase(current Phase, eval EvalResult) Phase {
	if eval.MonthlyVariance > highVarianceThreshold {
		return PhaseBalance
	}
	if eval.ContractDeficit {
		return PhaseContract
	}
	switch current {
	case PhaseGeneral:
		return PhaseBalance
	case PhaseBalance:
		return PhaseSenior
	case PhaseSenior:
		return PhasePreference
	case PhasePreference:
		return PhaseContract
	default:
		return PhaseGeneral
	}
}

// highVarianceThreshold is the monthly-hours variance above which the
// Driver forces a Balance phase regardless of the round-robin schedule.
const highVarianceThreshold = 400.0
