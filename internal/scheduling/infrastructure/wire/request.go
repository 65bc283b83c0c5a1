// Package wire translates between the JSON solve-request shape documented
// in §6 and the domain's InputBundle. It is the only place in the module
// that knows about the wire format: every transport (CLI, worker queue,
// MCP tool) decodes through it, and persistence re-encodes through it to
// store the bundle exactly as submitted.
package wire

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	caldomain "github.com/shiftforge/scheduler/internal/calendar/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// ContractRequest is the wire shape of a doctor's exact monthly quota.
type ContractRequest struct {
	Day     int `json:"Day"`
	Evening int `json:"Evening"`
	Night   int `json:"Night"`
}

// DoctorRequest is one entry of the wire-level "doctors" array.
type DoctorRequest struct {
	Name             string           `json:"name"`
	Seniority        string           `json:"seniority"`
	Preference       string           `json:"preference,omitempty"`
	MaxShiftsPerWeek int              `json:"max_shifts_per_week"`
	Contract         *ContractRequest `json:"contract,omitempty"`
}

// RecurringHolidayRequest is the wire shape of a recurrence-rule holiday.
type RecurringHolidayRequest struct {
	RRule string `json:"rrule"`
	Kind  string `json:"kind"`
}

// SolveRequest is the full wire-level input bundle, exactly as §6
// documents it plus the SPEC_FULL extensions (recurring_holidays,
// weight_preset, week_convention, preference_fairness_tolerance).
type SolveRequest struct {
	Mode  string `json:"mode"`
	Year  int    `json:"year"`
	Month int    `json:"month,omitempty"`

	Doctors []DoctorRequest `json:"doctors"`

	Holidays          map[string]string            `json:"holidays,omitempty"`
	RecurringHolidays []RecurringHolidayRequest     `json:"recurring_holidays,omitempty"`
	Availability      map[string]map[string]ShiftAvailability `json:"availability,omitempty"`
	Template          map[string]map[string]int    `json:"template"`

	Seed         int64 `json:"seed,omitempty"`
	TimeBudgetMS int64 `json:"time_budget_ms,omitempty"`

	WeightPreset                string  `json:"weight_preset,omitempty"`
	WeekConvention               string  `json:"week_convention,omitempty"`
	PreferenceFairnessTolerance float64 `json:"preference_fairness_tolerance,omitempty"`
}

// ShiftAvailability is one date's per-shift availability override for a
// single doctor. A field omitted (nil) or true means Available; false
// means Unavailable. Pointers distinguish "not mentioned" from "false".
type ShiftAvailability struct {
	Day     *bool `json:"Day,omitempty"`
	Evening *bool `json:"Evening,omitempty"`
	Night   *bool `json:"Night,omitempty"`
}

const dateLayout = "2006-01-02"

// Decode reads and parses a SolveRequest from r. It does not validate
// domain semantics (that happens in ToInputBundle, via NewInputBundle);
// it only validates that the JSON itself is well-formed.
func Decode(r io.Reader) (*SolveRequest, error) {
	var req SolveRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: decode solve request: %v", domain.ErrInvalidInput, err)
	}
	return &req, nil
}

// ToInputBundle assembles a validated domain.InputBundle from req.
func (req *SolveRequest) ToInputBundle() (*domain.InputBundle, error) {
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}

	var month time.Month
	if mode == domain.ModeMonthly {
		if req.Month < 1 || req.Month > 12 {
			return nil, fmt.Errorf("%w: monthly mode requires a month in 1..12, got %d", domain.ErrInvalidInput, req.Month)
		}
		month = time.Month(req.Month)
	}

	horizonStart := time.Date(req.Year, 1, 1, 0, 0, 0, 0, time.UTC)
	if mode == domain.ModeMonthly {
		horizonStart = time.Date(req.Year, month, 1, 0, 0, 0, 0, time.UTC)
	}
	numDays := caldomain.HorizonDays(req.Year, month)

	flatHolidays, err := parseFlatHolidays(req.Holidays)
	if err != nil {
		return nil, err
	}
	recurring, err := parseRecurringHolidays(req.RecurringHolidays)
	if err != nil {
		return nil, err
	}
	holidayMap, err := caldomain.BuildHolidayMap(flatHolidays, recurring, horizonStart, numDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	weekConvention := caldomain.WeekConventionISO
	if req.WeekConvention != "" {
		weekConvention = caldomain.WeekConvention(req.WeekConvention)
	}

	cal, err := caldomain.New(horizonStart, numDays, holidayMap, weekConvention)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	template, err := parseTemplate(req.Template, cal)
	if err != nil {
		return nil, err
	}

	doctors, err := parseDoctors(req.Doctors)
	if err != nil {
		return nil, err
	}

	availability, err := parseAvailability(req.Availability, cal)
	if err != nil {
		return nil, err
	}

	timeBudget := time.Duration(req.TimeBudgetMS) * time.Millisecond

	return domain.NewInputBundle(mode, req.Year, month, doctors, cal, template, availability, req.Seed, timeBudget)
}

func parseFlatHolidays(raw map[string]string) (map[time.Time]domain.HolidayKind, error) {
	out := make(map[time.Time]domain.HolidayKind, len(raw))
	for dateStr, kindStr := range raw {
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid holiday date %q: %v", domain.ErrInvalidInput, dateStr, err)
		}
		kind := domain.HolidayKind(kindStr)
		if kind != domain.HolidayShort && kind != domain.HolidayLong {
			return nil, fmt.Errorf("%w: unknown holiday kind %q", domain.ErrInvalidInput, kindStr)
		}
		out[date] = kind
	}
	return out, nil
}

func parseRecurringHolidays(raw []RecurringHolidayRequest) ([]caldomain.RecurringHoliday, error) {
	out := make([]caldomain.RecurringHoliday, 0, len(raw))
	for _, rh := range raw {
		kind := domain.HolidayKind(rh.Kind)
		if kind != domain.HolidayShort && kind != domain.HolidayLong {
			return nil, fmt.Errorf("%w: unknown recurring holiday kind %q", domain.ErrInvalidInput, rh.Kind)
		}
		out = append(out, caldomain.RecurringHoliday{RRule: rh.RRule, Kind: kind})
	}
	return out, nil
}

func parseTemplate(raw map[string]map[string]int, cal *caldomain.Calendar) (*domain.Template, error) {
	tpl := domain.NewTemplate()
	for dateStr, shifts := range raw {
		date, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid template date %q: %v", domain.ErrInvalidInput, dateStr, err)
		}
		dayIndex := cal.IndexOf(date)
		if dayIndex < 0 {
			return nil, fmt.Errorf("%w: template date %q falls outside the horizon", domain.ErrInvalidInput, dateStr)
		}
		for shiftToken, count := range shifts {
			shift, err := domain.ParseShiftType(shiftToken)
			if err != nil {
				return nil, err
			}
			if count < 0 {
				return nil, fmt.Errorf("%w: negative template count for %s %s", domain.ErrInvalidInput, dateStr, shiftToken)
			}
			tpl.Set(dayIndex, shift, count)
		}
	}
	return tpl, nil
}

func parseDoctors(raw []DoctorRequest) ([]domain.Doctor, error) {
	doctors := make([]domain.Doctor, 0, len(raw))
	for _, d := range raw {
		seniority, err := domain.ParseSeniority(d.Seniority)
		if err != nil {
			return nil, err
		}
		preference := domain.PreferenceNone
		if d.Preference != "" {
			preference, err = domain.ParsePreference(d.Preference)
			if err != nil {
				return nil, err
			}
		}
		var contract *domain.Contract
		if d.Contract != nil {
			contract = &domain.Contract{Day: d.Contract.Day, Evening: d.Contract.Evening, Night: d.Contract.Night}
		}
		doctors = append(doctors, domain.Doctor{
			Name:             d.Name,
			Seniority:        seniority,
			Preference:       preference,
			MaxShiftsPerWeek: d.MaxShiftsPerWeek,
			Contract:         contract,
		})
	}
	return doctors, nil
}

func parseAvailability(raw map[string]map[string]ShiftAvailability, cal *caldomain.Calendar) (*domain.AvailabilityMap, error) {
	avail := domain.NewAvailabilityMap(cal.NumDays())
	for doctorName, byDate := range raw {
		for dateStr, shifts := range byDate {
			date, err := time.Parse(dateLayout, dateStr)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid availability date %q: %v", domain.ErrInvalidInput, dateStr, err)
			}
			dayIndex := cal.IndexOf(date)
			if dayIndex < 0 {
				return nil, fmt.Errorf("%w: availability date %q falls outside the horizon", domain.ErrInvalidInput, dateStr)
			}
			if shifts.Day != nil && !*shifts.Day {
				avail.MarkUnavailable(doctorName, dayIndex, domain.ShiftDay)
			}
			if shifts.Evening != nil && !*shifts.Evening {
				avail.MarkUnavailable(doctorName, dayIndex, domain.ShiftEvening)
			}
			if shifts.Night != nil && !*shifts.Night {
				avail.MarkUnavailable(doctorName, dayIndex, domain.ShiftNight)
			}
		}
	}
	return avail, nil
}

// FromInputBundle re-serializes bundle back into its wire shape, used to
// persist a pending run's exact submitted input so a worker can later
// rebuild the InputBundle unchanged. It is the inverse of ToInputBundle up
// to the calendar's own derived fields (weekday, week key, …), which are
// always recomputed rather than round-tripped.
func FromInputBundle(bundle *domain.InputBundle) *SolveRequest {
	req := &SolveRequest{
		Mode:         string(bundle.Mode),
		Year:         bundle.Year,
		Seed:         bundle.Seed,
		TimeBudgetMS: bundle.TimeBudget.Milliseconds(),
	}
	if bundle.Mode == domain.ModeMonthly {
		req.Month = int(bundle.Month)
	}

	req.Doctors = make([]DoctorRequest, 0, len(bundle.Doctors))
	for _, d := range bundle.Doctors {
		dr := DoctorRequest{
			Name:             d.Name,
			Seniority:        d.Seniority.String(),
			MaxShiftsPerWeek: d.MaxShiftsPerWeek,
		}
		if d.Preference != domain.PreferenceNone {
			dr.Preference = d.Preference.String()
		}
		if d.Contract != nil {
			dr.Contract = &ContractRequest{Day: d.Contract.Day, Evening: d.Contract.Evening, Night: d.Contract.Night}
		}
		req.Doctors = append(req.Doctors, dr)
	}

	req.Holidays = make(map[string]string)
	req.Template = make(map[string]map[string]int)
	for dayIndex, slots := range bundle.Template.Entries() {
		info := bundle.Calendar.DayInfo(dayIndex)
		dateStr := info.Date.Format(dateLayout)
		if info.IsHoliday {
			req.Holidays[dateStr] = string(info.HolidayKind)
		}
		shiftCounts := make(map[string]int, 3)
		for _, shift := range domain.AllShiftTypes {
			shiftCounts[string(shift)] = slots[shiftPosition(shift)]
		}
		req.Template[dateStr] = shiftCounts
	}

	req.Availability = make(map[string]map[string]ShiftAvailability)
	for doctorName, bits := range bundle.Availability.Entries() {
		byDate := make(map[string]ShiftAvailability)
		for i, unavailable := range bits {
			if !unavailable {
				continue
			}
			dayIndex := i / 3
			shift := domain.AllShiftTypes[i%3]
			dateStr := bundle.Calendar.DayInfo(dayIndex).Date.Format(dateLayout)
			entry := byDate[dateStr]
			falseVal := false
			switch shift {
			case domain.ShiftDay:
				entry.Day = &falseVal
			case domain.ShiftEvening:
				entry.Evening = &falseVal
			case domain.ShiftNight:
				entry.Night = &falseVal
			}
			byDate[dateStr] = entry
		}
		if len(byDate) > 0 {
			req.Availability[doctorName] = byDate
		}
	}

	return req
}

// shiftPosition mirrors the private indexing domain.Template uses
// internally; AllShiftTypes is declared in the same fixed order.
func shiftPosition(shift domain.ShiftType) int {
	for i, s := range domain.AllShiftTypes {
		if s == shift {
			return i
		}
	}
	return -1
}
