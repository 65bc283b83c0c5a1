package services

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// Phase biases the Neighborhood Generator's move menu toward the kind of
// improvement the Driver currently wants, per §4.3's phase table.
type Phase int

const (
	PhaseGeneral Phase = iota
	PhaseContract
	PhaseBalance
	PhaseSenior
	PhasePreference
)

func (p Phase) String() string {
	switch p {
	case PhaseContract:
		return "Contract"
	case PhaseBalance:
		return "Balance"
	case PhaseSenior:
		return "Senior"
	case PhasePreference:
		return "Preference"
	default:
		return "General"
	}
}

// MoveKind distinguishes the two move shapes the generator produces.
type MoveKind int

const (
	MoveReplace MoveKind = iota
	MoveSwap
)

// Move is a single candidate perturbation of an Assignment. Replace swaps
// the occupant at (Day1, Shift1, Index1) for New1; Swap exchanges the
// occupants at two distinct slots outright (New1/New2 unused).
type Move struct {
	Kind MoveKind

	Day1, Index1 int
	Shift1       domain.ShiftType
	Old1, New1   string

	Day2, Index2 int
	Shift2       domain.ShiftType
	Old2, New2   string
}

// Signature is the tabu-list key. The Driver records the signature of each
// applied move's inverse, so the move that would undo it is blocked while
// tabu; a swap's signature does not depend on the order of its two slots.
func (m Move) Signature() string {
	switch m.Kind {
	case MoveSwap:
		a := fmt.Sprintf("%d:%s:%s", m.Day1, m.Shift1, m.Old1)
		b := fmt.Sprintf("%d:%s:%s", m.Day2, m.Shift2, m.Old2)
		if a > b {
			a, b = b, a
		}
		return "swap:" + a + "<->" + b
	default:
		return fmt.Sprintf("replace:%d:%s:%s->%s", m.Day1, m.Shift1, m.Old1, m.New1)
	}
}

// Apply mutates a in place and returns the inverse Move that undoes it.
func (m Move) Apply(a *domain.Assignment) Move {
	switch m.Kind {
	case MoveSwap:
		a.ReplaceAt(m.Day1, m.Shift1, m.Index1, m.Old2)
		a.ReplaceAt(m.Day2, m.Shift2, m.Index2, m.Old1)
		return Move{
			Kind: MoveSwap,
			Day1: m.Day1, Shift1: m.Shift1, Index1: m.Index1, Old1: m.Old2,
			Day2: m.Day2, Shift2: m.Shift2, Index2: m.Index2, Old2: m.Old1,
		}
	default:
		a.ReplaceAt(m.Day1, m.Shift1, m.Index1, m.New1)
		return Move{Kind: MoveReplace, Day1: m.Day1, Shift1: m.Shift1, Index1: m.Index1, Old1: m.New1, New1: m.Old1}
	}
}

// NeighborhoodGenerator builds the candidate move set each Driver iteration
// evaluates. It never mutates the Assignment it is given — moves are applied
// and rolled back by the caller.
type NeighborhoodGenerator struct {
	bundle *domain.InputBundle
}

// NewNeighborhoodGenerator builds a generator bound to a fixed InputBundle.
func NewNeighborhoodGenerator(bundle *domain.InputBundle) *NeighborhoodGenerator {
	return &NeighborhoodGenerator{bundle: bundle}
}

// candidateCount returns K, the per-iteration candidate budget: 10*sqrt(n)
// over the doctor pool, clamped to [30, 100].
func (g *NeighborhoodGenerator) candidateCount() int {
	n := len(g.bundle.Doctors)
	k := int(math.Sqrt(float64(n)) * 10)
	if k < 30 {
		return 30
	}
	if k > 100 {
		return 100
	}
	return k
}

// Generate returns up to K structurally-valid candidate moves for the
// current Assignment, biased by phase. Always-available move kinds
// (duplicate-fix, template-fix, and plain random Replace/Swap) are mixed in
// regardless of phase so the search never stalls when a phase's preferred
// moves are unavailable.
func (g *NeighborhoodGenerator) Generate(a *domain.Assignment, phase Phase, rng *rand.Rand) []Move {
	k := g.candidateCount()
	seen := make(map[string]bool, k)
	var moves []Move

	add := func(m Move) bool {
		sig := m.Signature()
		if seen[sig] {
			return false
		}
		seen[sig] = true
		moves = append(moves, m)
		return len(moves) >= k
	}

	numDays := g.bundle.NumDays()
	weightedKinds := g.moveMenu(phase)

	for attempts := 0; len(moves) < k && attempts < k*20; attempts++ {
		kind := weightedKinds[rng.Intn(len(weightedKinds))]
		var m Move
		var ok bool
		switch kind {
		case moveKindReplace:
			m, ok = g.randomReplace(a, numDays, rng)
		case moveKindSwap:
			m, ok = g.randomSwap(a, numDays, rng)
		case moveKindDuplicateFix:
			m, ok = g.duplicateFixMove(a, numDays, rng)
		case moveKindTemplateFix:
			m, ok = g.templateFixMove(a, numDays, rng)
		case moveKindContract:
			m, ok = g.contractMove(a, numDays, rng)
		case moveKindBalance:
			m, ok = g.balanceMove(a, numDays, rng)
		case moveKindSenior:
			m, ok = g.seniorMove(a, numDays, rng)
		case moveKindPreference:
			m, ok = g.preferenceMove(a, numDays, rng)
		}
		if !ok {
			continue
		}
		if add(m) {
			break
		}
	}

	return moves
}

type moveKind int

const (
	moveKindReplace moveKind = iota
	moveKindSwap
	moveKindDuplicateFix
	moveKindTemplateFix
	moveKindContract
	moveKindBalance
	moveKindSenior
	moveKindPreference
)

// moveMenu returns the weighted (by repetition) pool of move kinds for a
// phase: the always-on kinds plus extra weight toward the phase's focus,
// per §4.3.
func (g *NeighborhoodGenerator) moveMenu(phase Phase) []moveKind {
	menu := []moveKind{
		moveKindReplace, moveKindReplace,
		moveKindSwap, moveKindSwap,
		moveKindDuplicateFix,
		moveKindTemplateFix,
	}
	switch phase {
	case PhaseContract:
		menu = append(menu, moveKindContract, moveKindContract, moveKindContract)
	case PhaseBalance:
		menu = append(menu, moveKindBalance, moveKindBalance, moveKindBalance)
	case PhaseSenior:
		menu = append(menu, moveKindSenior, moveKindSenior, moveKindSenior)
	case PhasePreference:
		menu = append(menu, moveKindPreference, moveKindPreference, moveKindPreference)
	}
	return menu
}

// randomReplace picks a random occupied slot and a random structurally
// feasible replacement doctor.
func (g *NeighborhoodGenerator) randomReplace(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	day := rng.Intn(numDays)
	shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
	occupants := a.Slot(day, shift)
	if len(occupants) == 0 {
		return Move{}, false
	}
	idx := rng.Intn(len(occupants))
	old := occupants[idx]

	candidate, ok := g.randomFeasibleDoctor(a, day, shift, old, rng)
	if !ok {
		return Move{}, false
	}
	return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: old, New1: candidate}, true
}

// randomSwap picks two distinct occupied slots on different days and swaps
// their occupants outright, provided each occupant is structurally
// feasible in the other's slot.
func (g *NeighborhoodGenerator) randomSwap(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	day1 := rng.Intn(numDays)
	shift1 := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
	occ1 := a.Slot(day1, shift1)
	if len(occ1) == 0 {
		return Move{}, false
	}
	idx1 := rng.Intn(len(occ1))
	old1 := occ1[idx1]

	day2 := rng.Intn(numDays)
	shift2 := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
	if day1 == day2 && shift1 == shift2 {
		return Move{}, false
	}
	occ2 := a.Slot(day2, shift2)
	if len(occ2) == 0 {
		return Move{}, false
	}
	idx2 := rng.Intn(len(occ2))
	old2 := occ2[idx2]
	if old1 == old2 {
		return Move{}, false
	}

	d1, ok1 := g.bundle.Doctor(old1)
	d2, ok2 := g.bundle.Doctor(old2)
	if !ok1 || !ok2 {
		return Move{}, false
	}
	if !swapFeasible(g.bundle, a, day1, shift1, idx1, *d2) || !swapFeasible(g.bundle, a, day2, shift2, idx2, *d1) {
		return Move{}, false
	}

	return Move{
		Kind: MoveSwap,
		Day1: day1, Shift1: shift1, Index1: idx1, Old1: old1,
		Day2: day2, Shift2: shift2, Index2: idx2, Old2: old2,
	}, true
}

// swapFeasible checks that replacing the occupant of (day, shift, idx) with
// candidate would be structurally valid, ignoring candidate's own current
// slot (the swap vacates it atomically).
func swapFeasible(bundle *domain.InputBundle, a *domain.Assignment, day int, shift domain.ShiftType, idx int, candidate domain.Doctor) bool {
	if existing, already := a.ShiftOf(day, candidate.Name); already {
		// Only acceptable if that's the very slot being vacated by this swap.
		existingOccupants := a.Slot(day, existing)
		if !(existing == shift && len(existingOccupants) > idx && existingOccupants[idx] == candidate.Name) {
			return false
		}
	}
	if !bundle.Availability.IsAvailable(candidate.Name, day, shift) {
		return false
	}
	if shift == domain.ShiftNight && candidate.Preference.IncompatibleWithNight() {
		return false
	}
	for i, name := range a.Slot(day, shift) {
		if i != idx && name == candidate.Name {
			return false
		}
	}
	return true
}

// randomFeasibleDoctor returns a doctor, other than exclude, structurally
// feasible to occupy (day, shift).
func (g *NeighborhoodGenerator) randomFeasibleDoctor(a *domain.Assignment, day int, shift domain.ShiftType, exclude string, rng *rand.Rand) (string, bool) {
	var candidates []string
	for _, d := range g.bundle.Doctors {
		if d.Name == exclude {
			continue
		}
		if structurallyFeasible(g.bundle, a, day, shift, d) {
			candidates = append(candidates, d.Name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rng.Intn(len(candidates))], true
}

// duplicateFixMove looks for a slot where the same doctor appears twice
// (an H8 violation) and replaces one occurrence.
func (g *NeighborhoodGenerator) duplicateFixMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	for attempts := 0; attempts < 20; attempts++ {
		day := rng.Intn(numDays)
		shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
		occupants := a.Slot(day, shift)
		counts := make(map[string]int, len(occupants))
		for _, name := range occupants {
			counts[name]++
		}
		for idx, name := range occupants {
			if counts[name] <= 1 {
				continue
			}
			candidate, ok := g.randomFeasibleDoctor(a, day, shift, name, rng)
			if !ok {
				continue
			}
			return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: name, New1: candidate}, true
		}
	}
	return Move{}, false
}

// templateFixMove replaces an occupant of a slot whose filled count already
// matches the template, searching for a better-fit candidate without
// changing headcount (under/over-filled slots are a constructor concern).
func (g *NeighborhoodGenerator) templateFixMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	for attempts := 0; attempts < 20; attempts++ {
		day := rng.Intn(numDays)
		shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
		required := g.bundle.Template.Required(day, shift)
		occupants := a.Slot(day, shift)
		if len(occupants) != required || len(occupants) == 0 {
			continue
		}
		idx := rng.Intn(len(occupants))
		old := occupants[idx]
		candidate, ok := g.randomFeasibleDoctor(a, day, shift, old, rng)
		if !ok {
			continue
		}
		return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: old, New1: candidate}, true
	}
	return Move{}, false
}

// contractMove implements both shapes of the Contract phase's move (§4.3's
// Contract row): insert a contract doctor into a shift of a type they're
// still short of, or remove a contract doctor from a shift of a type
// they've already filled past their target. Which shape is tried first is
// chosen at random each call so the phase doesn't only ever push deficits
// down while never shedding surpluses.
func (g *NeighborhoodGenerator) contractMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	first, second := g.contractInsertMove, g.contractRemoveMove
	if rng.Intn(2) == 1 {
		first, second = second, first
	}
	if mv, ok := first(a, numDays, rng); ok {
		return mv, true
	}
	return second(a, numDays, rng)
}

// contractInsertMove replaces a non-deficit occupant with a contract doctor
// still short of their target count for that shift type, as contractDelta
// counts it over the whole horizon.
func (g *NeighborhoodGenerator) contractInsertMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	for attempts := 0; attempts < 20; attempts++ {
		day := rng.Intn(numDays)
		shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
		occupants := a.Slot(day, shift)
		if len(occupants) == 0 {
			continue
		}
		idx := rng.Intn(len(occupants))
		old := occupants[idx]

		for _, d := range g.bundle.Doctors {
			if !d.IsContract() || d.Name == old {
				continue
			}
			if contractDelta(a, numDays, d, shift) <= 0 {
				continue // not short of this shift type
			}
			if !structurallyFeasible(g.bundle, a, day, shift, d) {
				continue
			}
			return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: old, New1: d.Name}, true
		}
	}
	return Move{}, false
}

// contractRemoveMove replaces a contract doctor who has already filled more
// than their target count of a shift type with a feasible peer, shedding
// the surplus.
func (g *NeighborhoodGenerator) contractRemoveMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	for attempts := 0; attempts < 20; attempts++ {
		day := rng.Intn(numDays)
		shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
		occupants := a.Slot(day, shift)
		if len(occupants) == 0 {
			continue
		}
		idx := rng.Intn(len(occupants))
		old := occupants[idx]

		oldDoctor, ok := g.bundle.Doctor(old)
		if !ok || !oldDoctor.IsContract() {
			continue
		}
		if contractDelta(a, numDays, *oldDoctor, shift) >= 0 {
			continue // not in surplus for this shift type
		}

		candidate, ok := g.randomFeasibleDoctor(a, day, shift, old, rng)
		if !ok {
			continue
		}
		return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: old, New1: candidate}, true
	}
	return Move{}, false
}

// contractDelta returns d's contract target for shift minus d's assignments
// of that shift type over the whole horizon: positive means d still needs
// more shifts of this type to reach their contract target, negative means
// d has already exceeded it, zero means d has no contract or has exactly
// met the target. The count is not split by month, so for a horizon that
// spans several months it is compared against a single month's target.
func contractDelta(a *domain.Assignment, numDays int, d domain.Doctor, shift domain.ShiftType) int {
	if d.Contract == nil {
		return 0
	}
	assigned := 0
	for day := 0; day < numDays; day++ {
		for _, name := range a.Slot(day, shift) {
			if name == d.Name {
				assigned++
			}
		}
	}
	return d.Contract.Target(shift) - assigned
}

// balanceMove replaces an occupant with their lowest-hours feasible peer,
// pulling toward a flatter monthly distribution.
func (g *NeighborhoodGenerator) balanceMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	day := rng.Intn(numDays)
	shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
	occupants := a.Slot(day, shift)
	if len(occupants) == 0 {
		return Move{}, false
	}
	idx := rng.Intn(len(occupants))
	old := occupants[idx]

	hours := hoursSnapshot(g.bundle, a)
	var best string
	bestHours := math.MaxInt32
	for _, d := range g.bundle.Doctors {
		if d.Name == old || d.ExcludedFromBalance() {
			continue
		}
		if !structurallyFeasible(g.bundle, a, day, shift, d) {
			continue
		}
		if hours[d.Name] < bestHours {
			bestHours = hours[d.Name]
			best = d.Name
		}
	}
	if best == "" {
		return Move{}, false
	}
	return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: old, New1: best}, true
}

// seniorMove swaps a senior/junior pair of occupants on the same day to
// shift weekend/holiday or total-hours load between the two groups.
func (g *NeighborhoodGenerator) seniorMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	day := rng.Intn(numDays)
	shift1 := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
	occ1 := a.Slot(day, shift1)
	if len(occ1) == 0 {
		return Move{}, false
	}
	idx1 := rng.Intn(len(occ1))
	old1 := occ1[idx1]
	d1, ok := g.bundle.Doctor(old1)
	if !ok {
		return Move{}, false
	}

	for _, shift2 := range domain.AllShiftTypes {
		occ2 := a.Slot(day, shift2)
		for idx2, old2 := range occ2 {
			if shift1 == shift2 && idx1 == idx2 {
				continue
			}
			d2, ok := g.bundle.Doctor(old2)
			if !ok || d2.Seniority == d1.Seniority {
				continue
			}
			if !swapFeasible(g.bundle, a, day, shift1, idx1, *d2) || !swapFeasible(g.bundle, a, day, shift2, idx2, *d1) {
				continue
			}
			return Move{
				Kind: MoveSwap,
				Day1: day, Shift1: shift1, Index1: idx1, Old1: old1,
				Day2: day, Shift2: shift2, Index2: idx2, Old2: old2,
			}, true
		}
	}
	return Move{}, false
}

// preferenceMove replaces an occupant of a shift with a feasible doctor
// whose standing preference matches that shift, directly targeting S4/S5.
func (g *NeighborhoodGenerator) preferenceMove(a *domain.Assignment, numDays int, rng *rand.Rand) (Move, bool) {
	day := rng.Intn(numDays)
	shift := domain.AllShiftTypes[rng.Intn(len(domain.AllShiftTypes))]
	occupants := a.Slot(day, shift)
	if len(occupants) == 0 {
		return Move{}, false
	}
	idx := rng.Intn(len(occupants))
	old := occupants[idx]

	for _, d := range g.bundle.Doctors {
		if d.Name == old {
			continue
		}
		want, has := d.Preference.ShiftType()
		if !has || want != shift {
			continue
		}
		if !structurallyFeasible(g.bundle, a, day, shift, d) {
			continue
		}
		return Move{Kind: MoveReplace, Day1: day, Shift1: shift, Index1: idx, Old1: old, New1: d.Name}, true
	}
	return Move{}, false
}

// hoursSnapshot computes each doctor's current total assigned hours.
func hoursSnapshot(bundle *domain.InputBundle, a *domain.Assignment) map[string]int {
	hours := make(map[string]int, len(bundle.Doctors))
	for day := 0; day < a.NumDays(); day++ {
		for _, shift := range domain.AllShiftTypes {
			for _, name := range a.Slot(day, shift) {
				hours[name] += domain.ShiftHours
			}
		}
	}
	return hours
}
