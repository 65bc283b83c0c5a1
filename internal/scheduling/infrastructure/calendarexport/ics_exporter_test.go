package calendarexport

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

func TestFlattenSchedule_OrdersByDateThenDoctor(t *testing.T) {
	schedule := map[string]map[domain.ShiftType][]string{
		"2025-03-02": {domain.ShiftDay: {"Bob"}},
		"2025-03-01": {domain.ShiftEvening: {"Carol"}, domain.ShiftDay: {"Alice"}},
	}

	entries, err := FlattenSchedule(schedule, "2006-01-02", time.UTC)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "Alice", entries[0].Doctor)
	assert.Equal(t, domain.ShiftDay, entries[0].Shift)
	assert.Equal(t, "Carol", entries[1].Doctor)
	assert.Equal(t, "Bob", entries[2].Doctor)
}

func TestFlattenSchedule_RejectsUnparseableDate(t *testing.T) {
	schedule := map[string]map[domain.ShiftType][]string{
		"not-a-date": {domain.ShiftDay: {"Alice"}},
	}
	_, err := FlattenSchedule(schedule, "2006-01-02", time.UTC)
	assert.Error(t, err)
}

func TestExportDoctorCalendar_OnlyIncludesMatchingDoctor(t *testing.T) {
	runID := uuid.New()
	date := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	entries := []ScheduleEntry{
		{Doctor: "Alice", Date: date, Shift: domain.ShiftDay},
		{Doctor: "Bob", Date: date, Shift: domain.ShiftNight},
	}

	cal := ExportDoctorCalendar(runID, "Alice", entries)
	require.Len(t, cal.Children, 1)

	vevent := cal.Children[0]
	assert.Equal(t, ical.CompEvent, vevent.Name)
	summary := vevent.Props.Get(ical.PropSummary)
	require.NotNil(t, summary)
	assert.Contains(t, summary.Value, "Alice")
	assert.Contains(t, summary.Value, string(domain.ShiftDay))

	runProp := vevent.Props[PropShiftForgeRun]
	require.Len(t, runProp, 1)
	assert.Equal(t, runID.String(), runProp[0].Value)
}

func TestShiftEvent_NightShiftSpansMidnight(t *testing.T) {
	runID := uuid.New()
	date := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	event := shiftEvent(runID, ScheduleEntry{Doctor: "Alice", Date: date, Shift: domain.ShiftNight})

	start, err := event.DateTimeStart(time.UTC)
	require.NoError(t, err)
	end, err := event.DateTimeEnd(time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 23, start.Hour())
	assert.True(t, end.After(start))
	assert.Equal(t, 8*time.Hour, end.Sub(start))
}

func TestEncodeICS_ProducesValidCalendar(t *testing.T) {
	runID := uuid.New()
	date := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	cal := ExportDoctorCalendar(runID, "Alice", []ScheduleEntry{
		{Doctor: "Alice", Date: date, Shift: domain.ShiftDay},
	})

	data, err := EncodeICS(cal)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "BEGIN:VCALENDAR"))
	assert.True(t, strings.Contains(string(data), "BEGIN:VEVENT"))
}
