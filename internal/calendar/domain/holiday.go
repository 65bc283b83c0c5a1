package domain

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// RecurringHoliday is a holiday declared as an RFC 5545 recurrence rule
// rather than an enumerated date, e.g. "last Monday of May" for a
// region's Memorial Day. Hospital holiday calendars are usually declared
// this way so they don't need republishing every year.
type RecurringHoliday struct {
	RRule string
	Kind  HolidayKind
}

// BuildHolidayMap merges a flat date->kind map with zero or more recurring
// holiday rules, expanding each rule to the concrete dates it produces
// within [horizonStart, horizonStart+numDays). An explicit flat entry takes
// precedence over a recurrence-rule expansion landing on the same date.
func BuildHolidayMap(flat map[time.Time]HolidayKind, recurring []RecurringHoliday, horizonStart time.Time, numDays int) (map[time.Time]HolidayKind, error) {
	merged := make(map[time.Time]HolidayKind, len(flat)+numDays/30)

	horizonStart = truncateToDay(horizonStart)
	horizonEnd := horizonStart.AddDate(0, 0, numDays)

	for _, rh := range recurring {
		option, err := rrule.StrToROption(rh.RRule)
		if err != nil {
			return nil, fmt.Errorf("calendar: invalid recurring holiday rule %q: %w", rh.RRule, err)
		}
		if option.Dtstart.IsZero() {
			option.Dtstart = horizonStart
		}
		rule, err := rrule.NewRRule(*option)
		if err != nil {
			return nil, fmt.Errorf("calendar: building recurring holiday rule %q: %w", rh.RRule, err)
		}
		for _, occurrence := range rule.Between(horizonStart, horizonEnd, true) {
			if !occurrence.Before(horizonEnd) {
				continue
			}
			merged[truncateToDay(occurrence)] = rh.Kind
		}
	}

	for date, kind := range flat {
		merged[truncateToDay(date)] = kind
	}

	return merged, nil
}
