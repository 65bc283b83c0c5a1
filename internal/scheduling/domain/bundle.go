package domain

import (
	"fmt"
	"time"

	caldomain "github.com/shiftforge/scheduler/internal/calendar/domain"
)

// Mode selects whether a solve covers a single month or a full year.
type Mode string

const (
	ModeYearly  Mode = "yearly"
	ModeMonthly Mode = "monthly"
)

// ParseMode validates a wire-level mode token.
func ParseMode(token string) (Mode, error) {
	switch Mode(token) {
	case ModeYearly, ModeMonthly:
		return Mode(token), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, token)
	}
}

// InputBundle is the immutable input loaded once per solve: doctors,
// calendar/index, shift template and availability. It is shared read-only
// by every component downstream of construction (§5's shared-resource
// policy).
type InputBundle struct {
	Mode     Mode
	Year     int
	Month    time.Month // zero in yearly mode

	Doctors      []Doctor
	doctorByName map[string]*Doctor

	Calendar     *caldomain.Calendar
	Template     *Template
	Availability *AvailabilityMap

	Seed          int64
	TimeBudget    time.Duration
}

// NewInputBundle validates and assembles an InputBundle. It returns
// ErrInvalidInput wrapped with details on any structural problem; no
// partial bundle is ever returned alongside an error.
func NewInputBundle(
	mode Mode,
	year int,
	month time.Month,
	doctors []Doctor,
	cal *caldomain.Calendar,
	template *Template,
	availability *AvailabilityMap,
	seed int64,
	timeBudget time.Duration,
) (*InputBundle, error) {
	if len(doctors) == 0 {
		return nil, fmt.Errorf("%w: no doctors in input", ErrInvalidInput)
	}
	seen := make(map[string]*Doctor, len(doctors))
	for i := range doctors {
		d := &doctors[i]
		if d.Name == "" {
			return nil, fmt.Errorf("%w: doctor with empty name", ErrInvalidInput)
		}
		if _, dup := seen[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate doctor name %q", ErrInvalidInput, d.Name)
		}
		if d.MaxShiftsPerWeek <= 0 {
			return nil, fmt.Errorf("%w: doctor %q has non-positive max_shifts_per_week", ErrInvalidInput, d.Name)
		}
		if d.Contract != nil {
			if d.Contract.Day < 0 || d.Contract.Evening < 0 || d.Contract.Night < 0 {
				return nil, fmt.Errorf("%w: doctor %q has a negative contract count", ErrInvalidInput, d.Name)
			}
			if d.Contract.Total() > cal.NumDays()*3 {
				return nil, fmt.Errorf("%w: doctor %q contract total %d exceeds horizon capacity", ErrInvalidInput, d.Name, d.Contract.Total())
			}
		}
		seen[d.Name] = d
	}

	for i := range doctors {
		frac := availability.UnavailableFraction(doctors[i].Name)
		doctors[i].LimitedAvailability = frac > LimitedAvailabilityThreshold
	}

	return &InputBundle{
		Mode:         mode,
		Year:         year,
		Month:        month,
		Doctors:      doctors,
		doctorByName: seen,
		Calendar:     cal,
		Template:     template,
		Availability: availability,
		Seed:         seed,
		TimeBudget:   timeBudget,
	}, nil
}

// Doctor looks up a doctor by name.
func (b *InputBundle) Doctor(name string) (*Doctor, bool) {
	d, ok := b.doctorByName[name]
	return d, ok
}

// NumDays returns the horizon length.
func (b *InputBundle) NumDays() int {
	return b.Calendar.NumDays()
}

// DateString formats a day index as an ISO-8601 calendar date.
func (b *InputBundle) DateString(dayIndex int) string {
	return b.Calendar.DayInfo(dayIndex).Date.Format("2006-01-02")
}
