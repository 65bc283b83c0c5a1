// Package services holds the scheduling engine's core algorithms: the Cost
// Evaluator, greedy constructor, Neighborhood Generator, Tabu Search Driver
// and Meta-Optimizer. Each depends only on the scheduling/calendar domain
// packages and, for constraint plugins, the plugin SDK — never on
// persistence, transport, or any other infrastructure concern.
package services

import (
	"math"

	caldomain "github.com/shiftforge/scheduler/internal/calendar/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// Evaluator computes, for any Assignment and weight vector, a hard
// violation count and a weighted soft cost. It is stateless and
// deterministic in the assignment and weight vector: all its methods are
// pure functions of (bundle, assignment, weights).
type Evaluator struct {
	bundle  *domain.InputBundle
	plugins []ConstraintPlugin
}

// ConstraintPlugin is the Evaluator's extension point for institution-
// specific soft-cost terms beyond S1-S7. A plugin whose Evaluate returns an
// error contributes zero (its term is still listed, with cost 0) and never
// aborts a solve; the error is not logged or returned, and the Evaluator
// applies no timeout of its own to a plugin call.
type ConstraintPlugin interface {
	Name() string
	Evaluate(snapshot PluginSnapshot) (cost float64, err error)
}

// PluginSnapshot is the read-only view of a solve a constraint plugin may
// inspect: the doctor roster and the current schedule, keyed the same way
// as the wire-level result payload so plugin authors never need to know
// about internal day-index representations.
type PluginSnapshot struct {
	Schedule map[string]map[domain.ShiftType][]string
	Doctors  []domain.Doctor
}

// NewEvaluator builds an Evaluator bound to an immutable input bundle.
func NewEvaluator(bundle *domain.InputBundle, plugins ...ConstraintPlugin) *Evaluator {
	return &Evaluator{bundle: bundle, plugins: plugins}
}

// EvalResult bundles every output the Driver and Meta-Optimizer need from a
// single evaluation pass: the hierarchical score for cheap per-iteration
// candidate ranking, plus the tiebreaker tuple used by the strict
// "is-better" ordering for best-known updates.
type EvalResult struct {
	Hard  int
	Soft  float64
	Score float64

	// HourRangeWithinLimit is tiebreaker (i): true iff every month's
	// worked-hours range (over the balance pool) is within the S1 10-hour
	// allowance.
	HourRangeWithinLimit bool
	// PreferenceViolations is tiebreaker (ii): the unweighted S4 count.
	PreferenceViolations int

	PluginTerms     []domain.PluginTerm
	PerDoctorHours  map[string]int
	MonthlyVariance float64

	// ContractDeficit is true iff some contract doctor is still short of
	// their target count for some shift type in some month of the horizon.
	// The Driver's rotatePhase forces PhaseContract while this holds.
	ContractDeficit bool
}

// Evaluate runs the full evaluator pass: hard-violation count, soft cost,
// hierarchical score, and the tiebreaker/statistics fields the Driver and
// Meta-Optimizer consume.
func (e *Evaluator) Evaluate(a *domain.Assignment, w domain.WeightVector) EvalResult {
	hard := e.Hard(a)
	soft, hourRangeOK, prefViolations, pluginTerms := e.softWithDetail(a, w)

	var score float64
	if hard > 0 {
		score = float64(1+hard)*domain.HardSentinel + soft
	} else {
		score = soft
	}

	return EvalResult{
		Hard:                 hard,
		Soft:                 soft,
		Score:                score,
		HourRangeWithinLimit: hourRangeOK,
		PreferenceViolations: prefViolations,
		PluginTerms:          pluginTerms,
		PerDoctorHours:       e.perDoctorHours(a),
		MonthlyVariance:      e.monthlyVariance(a),
		ContractDeficit:      e.contractDeficit(a),
	}
}

// contractDeficit reports whether any contract doctor is still short of
// their target count for some shift type, in some month present in the
// horizon. Surplus (already over target) does not count as a deficit; the
// Contract phase's remove-surplus move is driven separately by §4.3's
// neighborhood generator, not by this forcing signal.
func (e *Evaluator) contractDeficit(a *domain.Assignment) bool {
	b := e.bundle
	numDays := b.NumDays()

	for _, doctor := range b.Doctors {
		if !doctor.IsContract() {
			continue
		}
		type monthCounts struct{ day, evening, night int }
		byMonth := make(map[int]*monthCounts)
		for day := 0; day < numDays; day++ {
			mk := b.Calendar.MonthKey(day)
			mc, ok := byMonth[mk]
			if !ok {
				mc = &monthCounts{}
				byMonth[mk] = mc
			}
			for _, shift := range domain.AllShiftTypes {
				for _, name := range a.Slot(day, shift) {
					if name != doctor.Name {
						continue
					}
					switch shift {
					case domain.ShiftDay:
						mc.day++
					case domain.ShiftEvening:
						mc.evening++
					case domain.ShiftNight:
						mc.night++
					}
				}
			}
		}
		for _, mc := range byMonth {
			if mc.day < doctor.Contract.Day || mc.evening < doctor.Contract.Evening || mc.night < doctor.Contract.Night {
				return true
			}
		}
	}
	return false
}

// Score computes only the hierarchical score, the cheap scalar the Driver
// uses for per-iteration argmin candidate selection and tabu aspiration.
func (e *Evaluator) Score(a *domain.Assignment, w domain.WeightVector) float64 {
	hard := e.Hard(a)
	soft := e.Soft(a, w)
	if hard > 0 {
		return float64(1+hard)*domain.HardSentinel + soft
	}
	return soft
}

// Better reports whether x is strictly better than y under the spec's
// lexicographic "is strictly better" ordering: hard, then hour-range flag,
// then preference-violation count, then soft. Used by the Driver's
// best-known update and the Meta-Optimizer's final argmin — never for
// per-iteration candidate ranking, which uses the scalar Score.
func Better(x, y EvalResult) bool {
	if x.Hard != y.Hard {
		return x.Hard < y.Hard
	}
	if x.HourRangeWithinLimit != y.HourRangeWithinLimit {
		return x.HourRangeWithinLimit // true (within limit) beats false
	}
	if x.PreferenceViolations != y.PreferenceViolations {
		return x.PreferenceViolations < y.PreferenceViolations
	}
	return x.Soft < y.Soft
}

// Hard returns the total hard-violation count across H1-H11. Each
// constraint contributes the number of offending occurrences, not 1 per
// constraint kind, so the search has a gradient to follow.
func (e *Evaluator) Hard(a *domain.Assignment) int {
	b := e.bundle
	numDays := b.NumDays()
	hard := 0

	// doctorDayShift[doctor] is indexed by day, holding the doctor's
	// assigned shift that day ("" if none). Built once and reused by every
	// rest-pattern and weekly/monthly check below.
	doctorDayShift := make(map[string][]domain.ShiftType, len(b.Doctors))
	for _, d := range b.Doctors {
		doctorDayShift[d.Name] = make([]domain.ShiftType, numDays)
	}

	for day := 0; day < numDays; day++ {
		occurrencesToday := make(map[string]int)
		for _, shift := range domain.AllShiftTypes {
			occupants := a.Slot(day, shift)

			// H9: template adherence.
			required := b.Template.Required(day, shift)
			diff := len(occupants) - required
			if diff < 0 {
				diff = -diff
			}
			hard += diff

			// H8: duplicate within the same slot.
			seen := make(map[string]int, len(occupants))
			for _, name := range occupants {
				seen[name]++
			}
			for _, count := range seen {
				if count > 1 {
					hard += count - 1
				}
			}

			for _, name := range occupants {
				// H1: availability.
				if !b.Availability.IsAvailable(name, day, shift) {
					hard++
				}
				if doctorDayShift[name] != nil && doctorDayShift[name][day] == "" {
					doctorDayShift[name][day] = shift
				}
			}
			for name := range seen {
				occurrencesToday[name]++
			}
		}
		// H2: one shift per day.
		for _, count := range occurrencesToday {
			if count > 1 {
				hard += count - 1
			}
		}
	}

	for _, doctor := range b.Doctors {
		shifts := doctorDayShift[doctor.Name]

		for day := 0; day < numDays; day++ {
			s := shifts[day]

			// H7: preference-incompatible Night.
			if s == domain.ShiftNight && doctor.Preference.IncompatibleWithNight() {
				hard++
			}

			if day+1 < numDays {
				next := shifts[day+1]
				// H3: rest after Night.
				if s == domain.ShiftNight && (next == domain.ShiftDay || next == domain.ShiftEvening) {
					hard++
				}
				// H4: no consecutive Nights.
				if s == domain.ShiftNight && next == domain.ShiftNight {
					hard++
				}
				// H6: Evening -> Day.
				if s == domain.ShiftEvening && next == domain.ShiftDay {
					hard++
				}
			}
			// H5: Night -> gap -> Day.
			if day+2 < numDays && s == domain.ShiftNight && shifts[day+1] == "" && shifts[day+2] == domain.ShiftDay {
				hard++
			}
		}

		// H10: max shifts per week.
		weekCounts := make(map[int]int)
		for day := 0; day < numDays; day++ {
			if shifts[day] != "" {
				weekCounts[b.Calendar.WeekKey(day)]++
			}
		}
		for _, count := range weekCounts {
			if count > doctor.MaxShiftsPerWeek {
				hard += count - doctor.MaxShiftsPerWeek
			}
		}

		// H11: contract exact counts, evaluated per calendar month present
		// in the horizon (the doctor's contract targets a given month).
		if doctor.IsContract() {
			type monthCounts struct{ day, evening, night int }
			byMonth := make(map[int]*monthCounts)
			for day := 0; day < numDays; day++ {
				mk := b.Calendar.MonthKey(day)
				mc, ok := byMonth[mk]
				if !ok {
					mc = &monthCounts{}
					byMonth[mk] = mc
				}
				switch shifts[day] {
				case domain.ShiftDay:
					mc.day++
				case domain.ShiftEvening:
					mc.evening++
				case domain.ShiftNight:
					mc.night++
				}
			}
			for _, mc := range byMonth {
				hard += absInt(mc.day - doctor.Contract.Day)
				hard += absInt(mc.evening - doctor.Contract.Evening)
				hard += absInt(mc.night - doctor.Contract.Night)
			}
		}
	}

	return hard
}

// Soft returns only the weighted soft-cost scalar; Evaluate is preferred
// when the tiebreaker fields are also needed.
func (e *Evaluator) Soft(a *domain.Assignment, w domain.WeightVector) float64 {
	soft, _, _, _ := e.softWithDetail(a, w)
	return soft
}

func (e *Evaluator) softWithDetail(a *domain.Assignment, w domain.WeightVector) (soft float64, hourRangeOK bool, prefViolations int, pluginTerms []domain.PluginTerm) {
	b := e.bundle
	numDays := b.NumDays()

	monthlyHours := make(map[int]map[string]int) // monthKey -> doctor -> hours
	weekendHolidayHours := make(map[string]int)
	doctorShiftCounts := make(map[string]map[domain.ShiftType]int)
	doctorTotalShifts := make(map[string]int)
	consecByDoctor := make(map[string][]int) // running streak length ending at each day

	for _, doctor := range b.Doctors {
		doctorShiftCounts[doctor.Name] = make(map[domain.ShiftType]int)
		consecByDoctor[doctor.Name] = make([]int, numDays)
	}

	for day := 0; day < numDays; day++ {
		info := b.Calendar.DayInfo(day)
		mk := info.MonthKey
		if _, ok := monthlyHours[mk]; !ok {
			monthlyHours[mk] = make(map[string]int)
		}

		workedToday := make(map[string]bool)
		for _, shift := range domain.AllShiftTypes {
			for _, name := range a.Slot(day, shift) {
				monthlyHours[mk][name] += domain.ShiftHours
				doctorShiftCounts[name][shift]++
				doctorTotalShifts[name]++
				workedToday[name] = true

				if info.IsWeekend || info.IsHoliday {
					weekendHolidayHours[name] += domain.ShiftHours
				}

				if doctor, ok := b.Doctor(name); ok {
					// S4: preference adherence.
					if doctor.Preference != domain.PreferenceNone {
						if want, has := doctor.Preference.ShiftType(); has && want != shift {
							prefViolations++
							if doctor.Seniority == domain.SeniorityJunior {
								soft += w.WPrefJunior
							} else {
								soft += w.WPrefSenior
							}
						}
					}
					// S6: senior on long holiday.
					if doctor.Seniority == domain.SenioritySenior && info.HolidayKind == caldomain.HolidayLong {
						soft += w.WSeniorHoliday
					}
				}
			}
		}

		for _, doctor := range b.Doctors {
			if day == 0 {
				consecByDoctor[doctor.Name][0] = boolToInt(workedToday[doctor.Name])
				continue
			}
			if workedToday[doctor.Name] {
				consecByDoctor[doctor.Name][day] = consecByDoctor[doctor.Name][day-1] + 1
			} else {
				consecByDoctor[doctor.Name][day] = 0
			}
		}
	}

	// S1: monthly balance, over the balance pool I'.
	hourRangeOK = true
	for _, hoursByDoctor := range monthlyHours {
		maxH, minH := minMaxOverBalancePool(b.Doctors, hoursByDoctor)
		if maxH < 0 {
			continue // no eligible doctors this month
		}
		rangeH := maxH - minH
		if rangeH > 10 {
			hourRangeOK = false
		}
		excess := math.Max(0, float64(rangeH-10))
		soft += w.WBalance * excess * excess
	}

	// S2: senior-less-than-junior workload, over total horizon hours.
	totalHours := make(map[string]int)
	for _, hoursByDoctor := range monthlyHours {
		for name, h := range hoursByDoctor {
			totalHours[name] += h
		}
	}
	avgSenior, avgJunior := avgByGroup(b.Doctors, totalHours)
	soft += w.WSeniorWorkload * math.Max(0, avgSenior-avgJunior)

	// S3: weekend/holiday distribution.
	varJunior, varSenior := varianceByGroup(b.Doctors, weekendHolidayHours)
	avgWHSenior, avgWHJunior := avgByGroup(b.Doctors, weekendHolidayHours)
	soft += w.WWeekendHoliday * (varJunior + varSenior + math.Max(0, avgWHSenior-avgWHJunior))

	// S5: preference fairness, per preference class.
	for _, pref := range []domain.Preference{domain.PreferenceDayOnly, domain.PreferenceEveningOnly, domain.PreferenceNightOnly} {
		var min, max float64
		first := true
		for _, doctor := range b.Doctors {
			if doctor.Preference != pref {
				continue
			}
			wantShift, _ := pref.ShiftType()
			total := doctorTotalShifts[doctor.Name]
			var ps float64
			if total > 0 {
				ps = float64(doctorShiftCounts[doctor.Name][wantShift]) / float64(total)
			}
			if first {
				min, max = ps, ps
				first = false
				continue
			}
			if ps < min {
				min = ps
			}
			if ps > max {
				max = ps
			}
		}
		if !first {
			excess := math.Max(0, max-min-w.PreferenceFairnessTolerance)
			soft += w.WPrefFair * excess * excess
		}
	}

	// S7: consecutive-day cap, monthly mode only.
	if b.Mode == domain.ModeMonthly {
		for _, doctor := range b.Doctors {
			for day := 0; day < numDays; day++ {
				consec := consecByDoctor[doctor.Name][day]
				excess := math.Max(0, float64(consec-domain.MaxConsecutiveDays))
				soft += w.WConsecutive * excess * excess
			}
		}
	}

	if len(e.plugins) > 0 {
		snapshot := PluginSnapshot{
			Schedule: a.ToSchedule(b.DateString),
			Doctors:  b.Doctors,
		}
		pluginTerms = e.evaluatePlugins(snapshot)
		for _, term := range pluginTerms {
			soft += term.Cost
		}
	}

	return soft, hourRangeOK, prefViolations, pluginTerms
}

func (e *Evaluator) perDoctorHours(a *domain.Assignment) map[string]int {
	out := make(map[string]int, len(e.bundle.Doctors))
	for _, doctor := range e.bundle.Doctors {
		out[doctor.Name] = 0
	}
	for day := 0; day < a.NumDays(); day++ {
		for _, shift := range domain.AllShiftTypes {
			for _, name := range a.Slot(day, shift) {
				out[name] += domain.ShiftHours
			}
		}
	}
	return out
}

func (e *Evaluator) monthlyVariance(a *domain.Assignment) float64 {
	totalsByMonth := make(map[int]int)
	for day := 0; day < a.NumDays(); day++ {
		mk := e.bundle.Calendar.MonthKey(day)
		for _, shift := range domain.AllShiftTypes {
			totalsByMonth[mk] += len(a.Slot(day, shift)) * domain.ShiftHours
		}
	}
	if len(totalsByMonth) == 0 {
		return 0
	}
	var sum float64
	for _, v := range totalsByMonth {
		sum += float64(v)
	}
	mean := sum / float64(len(totalsByMonth))
	var variance float64
	for _, v := range totalsByMonth {
		d := float64(v) - mean
		variance += d * d
	}
	return variance / float64(len(totalsByMonth))
}

func minMaxOverBalancePool(doctors []domain.Doctor, hours map[string]int) (max, min int) {
	first := true
	for _, doctor := range doctors {
		if doctor.ExcludedFromBalance() {
			continue
		}
		h := hours[doctor.Name]
		if first {
			max, min = h, h
			first = false
			continue
		}
		if h > max {
			max = h
		}
		if h < min {
			min = h
		}
	}
	if first {
		return -1, -1
	}
	return max, min
}

func avgByGroup(doctors []domain.Doctor, hours map[string]int) (seniorAvg, juniorAvg float64) {
	var seniorSum, juniorSum float64
	var seniorN, juniorN int
	for _, doctor := range doctors {
		if doctor.ExcludedFromBalance() {
			continue
		}
		h := float64(hours[doctor.Name])
		if doctor.Seniority == domain.SenioritySenior {
			seniorSum += h
			seniorN++
		} else {
			juniorSum += h
			juniorN++
		}
	}
	if seniorN > 0 {
		seniorAvg = seniorSum / float64(seniorN)
	}
	if juniorN > 0 {
		juniorAvg = juniorSum / float64(juniorN)
	}
	return seniorAvg, juniorAvg
}

func varianceByGroup(doctors []domain.Doctor, hours map[string]int) (juniorVar, seniorVar float64) {
	seniorAvg, juniorAvg := avgByGroup(doctors, hours)
	var seniorSS, juniorSS float64
	var seniorN, juniorN int
	for _, doctor := range doctors {
		if doctor.ExcludedFromBalance() {
			continue
		}
		h := float64(hours[doctor.Name])
		if doctor.Seniority == domain.SenioritySenior {
			d := h - seniorAvg
			seniorSS += d * d
			seniorN++
		} else {
			d := h - juniorAvg
			juniorSS += d * d
			juniorN++
		}
	}
	if seniorN > 0 {
		seniorVar = seniorSS / float64(seniorN)
	}
	if juniorN > 0 {
		juniorVar = juniorSS / float64(juniorN)
	}
	return juniorVar, seniorVar
}

func (e *Evaluator) evaluatePlugins(snapshot PluginSnapshot) []domain.PluginTerm {
	terms := make([]domain.PluginTerm, 0, len(e.plugins))
	for _, plugin := range e.plugins {
		cost, err := plugin.Evaluate(snapshot)
		if err != nil {
			terms = append(terms, domain.PluginTerm{Name: plugin.Name(), Cost: 0})
			continue
		}
		terms = append(terms, domain.PluginTerm{Name: plugin.Name(), Cost: cost})
	}
	return terms
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
