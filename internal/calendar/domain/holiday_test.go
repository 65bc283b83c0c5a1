package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHolidayMap_FlatOnly(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	flat := map[time.Time]HolidayKind{
		start: HolidayShort,
	}
	merged, err := BuildHolidayMap(flat, nil, start, 10)
	require.NoError(t, err)
	assert.Equal(t, HolidayShort, merged[start])
	assert.Len(t, merged, 1)
}

func TestBuildHolidayMap_RecurringExpandsWithinHorizon(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// Last Monday of May, a common "recurring public holiday" shape.
	recurring := []RecurringHoliday{
		{RRule: "FREQ=MONTHLY;BYDAY=-1MO;BYMONTH=5", Kind: HolidayLong},
	}
	merged, err := BuildHolidayMap(nil, recurring, start, 365)
	require.NoError(t, err)

	lastMondayOfMay2025 := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, HolidayLong, merged[lastMondayOfMay2025])
}

func TestBuildHolidayMap_ExplicitDateTakesPrecedence(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recurring := []RecurringHoliday{
		{RRule: "FREQ=MONTHLY;BYDAY=-1MO;BYMONTH=5", Kind: HolidayLong},
	}
	lastMondayOfMay2025 := time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC)
	flat := map[time.Time]HolidayKind{
		lastMondayOfMay2025: HolidayShort,
	}
	merged, err := BuildHolidayMap(flat, recurring, start, 365)
	require.NoError(t, err)
	assert.Equal(t, HolidayShort, merged[lastMondayOfMay2025])
}

func TestBuildHolidayMap_InvalidRuleIsInvalidInput(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recurring := []RecurringHoliday{
		{RRule: "not-a-valid-rrule", Kind: HolidayLong},
	}
	_, err := BuildHolidayMap(nil, recurring, start, 30)
	require.Error(t, err)
}
