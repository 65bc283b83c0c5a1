package services

import (
	"math/rand"
	"sort"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// Construct produces the starting Assignment via the greedy constructor of
// §4.2.3: days are walked chronologically, shifts within a day hardest-first
// (Evening, Night, Day), and slots are filled from a priority-tiered
// candidate pool. If no feasible candidate remains, the slot is left short
// — callers observe this later as an H9 violation the search will repair.
//
// Deterministic given the same seed: ties within a priority tier are
// broken by a PRNG seeded from the bundle's configured seed, not by map
// iteration order.
func Construct(bundle *domain.InputBundle) *domain.Assignment {
	numDays := bundle.NumDays()
	a := domain.NewAssignment(numDays)
	rng := rand.New(rand.NewSource(bundle.Seed))

	assignedHours := make(map[string]int, len(bundle.Doctors))
	contractRemaining := make(map[string]*domain.Contract, len(bundle.Doctors))
	for _, d := range bundle.Doctors {
		assignedHours[d.Name] = 0
		if d.IsContract() {
			remaining := *d.Contract
			contractRemaining[d.Name] = &remaining
		}
	}

	for day := 0; day < numDays; day++ {
		for _, shift := range domain.ConstructionOrder {
			required := bundle.Template.Required(day, shift)
			for slot := 0; slot < required; slot++ {
				candidate, ok := pickCandidate(bundle, a, day, shift, assignedHours, contractRemaining, rng)
				if !ok {
					continue // leave this slot short; surfaces as H9
				}
				a.Append(day, shift, candidate)
				assignedHours[candidate] += domain.ShiftHours
				if remaining, ok := contractRemaining[candidate]; ok {
					decrementContract(remaining, shift)
				}
			}
		}
	}

	return a
}

func decrementContract(remaining *domain.Contract, shift domain.ShiftType) {
	switch shift {
	case domain.ShiftDay:
		remaining.Day--
	case domain.ShiftEvening:
		remaining.Evening--
	case domain.ShiftNight:
		remaining.Night--
	}
}

// pickCandidate selects a doctor for (day, shift) following the three-tier
// priority: (a) contract doctors still short of this shift type, (b)
// doctors whose preference matches the shift, (c) everyone else. Only
// structurally-feasible doctors are considered at all; within the first
// non-empty tier the one with the lowest currently-assigned hours wins
// (ties broken by the seeded PRNG). It reports false when no doctor is
// structurally feasible.
func pickCandidate(
	bundle *domain.InputBundle,
	a *domain.Assignment,
	day int,
	shift domain.ShiftType,
	assignedHours map[string]int,
	contractRemaining map[string]*domain.Contract,
	rng *rand.Rand,
) (string, bool) {
	var tierA, tierB, tierC []string

	for _, d := range bundle.Doctors {
		if !structurallyFeasible(bundle, a, day, shift, d) {
			continue
		}
		switch {
		case contractRemaining[d.Name] != nil && contractRemaining[d.Name].Target(shift) > 0:
			tierA = append(tierA, d.Name)
		case d.Preference != domain.PreferenceNone:
			if want, has := d.Preference.ShiftType(); has && want == shift {
				tierB = append(tierB, d.Name)
			} else {
				tierC = append(tierC, d.Name)
			}
		default:
			tierC = append(tierC, d.Name)
		}
	}

	for _, tier := range [][]string{tierA, tierB, tierC} {
		if len(tier) == 0 {
			continue
		}
		return lowestHours(tier, assignedHours, rng), true
	}
	return "", false
}

// structurallyFeasible mirrors the Neighborhood Generator's structural
// validity filter: not already assigned that date, available for the
// shift, preference-compatible, no within-slot duplicate.
func structurallyFeasible(bundle *domain.InputBundle, a *domain.Assignment, day int, shift domain.ShiftType, d domain.Doctor) bool {
	if _, already := a.ShiftOf(day, d.Name); already {
		return false
	}
	if !bundle.Availability.IsAvailable(d.Name, day, shift) {
		return false
	}
	if shift == domain.ShiftNight && d.Preference.IncompatibleWithNight() {
		return false
	}
	for _, name := range a.Slot(day, shift) {
		if name == d.Name {
			return false
		}
	}
	return true
}

// lowestHours returns the candidate with the fewest assigned hours so far,
// breaking ties with rng for determinism without bias toward map/slice
// iteration order.
func lowestHours(candidates []string, assignedHours map[string]int, rng *rand.Rand) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted) // stabilize iteration order before the stable-sort below
	sort.SliceStable(sorted, func(i, j int) bool {
		return assignedHours[sorted[i]] < assignedHours[sorted[j]]
	})

	min := assignedHours[sorted[0]]
	tied := sorted[:1]
	for _, name := range sorted[1:] {
		if assignedHours[name] == min {
			tied = append(tied, name)
		} else {
			break
		}
	}
	return tied[rng.Intn(len(tied))]
}
