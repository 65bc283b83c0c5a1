package domain

import "fmt"

// WHard is the fixed large constant hard-constraint weight. In soft
// accounting hard violations are summed separately into hard, never into
// soft; this constant exists only to express "hard dominates soft" where a
// single scalar is needed (HARD_SENTINEL in score()).
const WHard = 999_999

// HardSentinel dominates any feasible candidate's soft cost, per §4.2.
const HardSentinel = 1_000_000.0

// MaxConsecutiveDays is the S7 consecutive-day cap (monthly mode only).
const MaxConsecutiveDays = 5

// WeightVector holds the seven soft-constraint weights the Meta-Optimizer
// samples, plus the one fixed weight (w_consecutive) it never varies.
type WeightVector struct {
	WBalance         float64
	WWeekendHoliday  float64
	WSeniorWorkload  float64
	WPrefJunior      float64
	WPrefSenior      float64
	WPrefFair        float64
	WSeniorHoliday   float64
	WConsecutive     float64

	// PreferenceFairnessTolerance is the S5 tolerance band; exposed as
	// configuration rather than hardcoded (an Open Question resolution).
	PreferenceFairnessTolerance float64
}

// DefaultWeightVector is a reasonable mid-range starting point, used when
// no Meta-Optimizer sampling is requested (e.g. a single fixed-weight
// solve for testing).
func DefaultWeightVector(fairnessTolerance float64) WeightVector {
	return WeightVector{
		WBalance:                    5000,
		WWeekendHoliday:             50,
		WSeniorWorkload:             5000,
		WPrefJunior:                 2000,
		WPrefSenior:                 5000,
		WPrefFair:                   500,
		WSeniorHoliday:              50000,
		WConsecutive:                50,
		PreferenceFairnessTolerance: fairnessTolerance,
	}
}

// WeightRange is an inclusive [Min, Max] sampling range with a discrete Step.
type WeightRange struct {
	Min, Max, Step float64
}

// samples returns every value Min, Min+Step, ... up to and including Max.
func (r WeightRange) samples() []float64 {
	if r.Step <= 0 {
		return []float64{r.Min}
	}
	n := int((r.Max-r.Min)/r.Step) + 1
	out := make([]float64, 0, n)
	for v := r.Min; v <= r.Max+1e-9; v += r.Step {
		out = append(out, v)
	}
	return out
}

// WeightSamplingRanges are the §6 Meta-Optimizer sampling ranges. w_consecutive
// is fixed at 50 and is never sampled.
var WeightSamplingRanges = struct {
	Balance         WeightRange
	WeekendHoliday  WeightRange
	SeniorWorkload  WeightRange
	PrefJunior      WeightRange
	PrefSenior      WeightRange
	PrefFair        WeightRange
	SeniorHoliday   WeightRange
}{
	Balance:        WeightRange{Min: 1000, Max: 10000, Step: 500},
	WeekendHoliday: WeightRange{Min: 10, Max: 100, Step: 10},
	SeniorWorkload: WeightRange{Min: 500, Max: 10000, Step: 1000},
	PrefJunior:     WeightRange{Min: 50, Max: 10000, Step: 200},
	PrefSenior:     WeightRange{Min: 100, Max: 20000, Step: 400},
	PrefFair:       WeightRange{Min: 10, Max: 1000, Step: 100},
	SeniorHoliday:  WeightRange{Min: 100, Max: 999999, Step: 1000},
}

// WeightPreset is a named convenience layer over WeightSamplingRanges: it
// narrows the sampling ranges rather than replacing the mechanism.
type WeightPreset string

const (
	PresetBalanced        WeightPreset = "balanced"
	PresetPreferenceFirst WeightPreset = "preference_first"
	PresetFairnessFirst   WeightPreset = "fairness_first"
)

// ParseWeightPreset validates a configured preset name.
func ParseWeightPreset(name string) (WeightPreset, error) {
	switch WeightPreset(name) {
	case PresetBalanced, PresetPreferenceFirst, PresetFairnessFirst:
		return WeightPreset(name), nil
	default:
		return "", fmt.Errorf("%w: unknown weight preset %q", ErrInvalidInput, name)
	}
}

// NarrowedRanges returns the sampling ranges a preset narrows
// WeightSamplingRanges to. "balanced" is the unnarrowed full range.
func (p WeightPreset) NarrowedRanges() (balance, weekendHoliday, seniorWorkload, prefJunior, prefSenior, prefFair, seniorHoliday WeightRange) {
	r := WeightSamplingRanges
	switch p {
	case PresetPreferenceFirst:
		// Bias toward the upper half of the preference-related ranges,
		// leave balance/workload/holiday ranges untouched.
		return r.Balance, r.WeekendHoliday, r.SeniorWorkload,
			midpointToMax(r.PrefJunior), midpointToMax(r.PrefSenior), midpointToMax(r.PrefFair),
			r.SeniorHoliday
	case PresetFairnessFirst:
		// Bias toward the upper half of the fairness/balance ranges.
		return midpointToMax(r.Balance), r.WeekendHoliday, r.SeniorWorkload,
			r.PrefJunior, r.PrefSenior, midpointToMax(r.PrefFair),
			r.SeniorHoliday
	default: // PresetBalanced
		return r.Balance, r.WeekendHoliday, r.SeniorWorkload, r.PrefJunior, r.PrefSenior, r.PrefFair, r.SeniorHoliday
	}
}

func midpointToMax(r WeightRange) WeightRange {
	mid := r.Min + (r.Max-r.Min)/2
	// Snap to the nearest step at or below mid so the narrowed range still
	// lines up on the original sampling grid.
	if r.Step > 0 {
		steps := int((mid - r.Min) / r.Step)
		mid = r.Min + float64(steps)*r.Step
	}
	return WeightRange{Min: mid, Max: r.Max, Step: r.Step}
}
