// Package calendarexport turns a solved schedule into calendar artifacts: a
// downloadable per-doctor .ics file, or a live push to a CalDAV server. Both
// paths share the same VEVENT construction, grounded on the teacher's
// TimeBlock-to-iCalendar conversion.
package calendarexport

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-ical"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

// ProductID identifies ShiftForge as the originator of exported calendars,
// per the iCalendar PRODID convention.
const ProductID = "-//ShiftForge//Schedule Export//EN"

// PropShiftForgeRun is a custom property carrying the run ID an event was
// produced by, mirroring the teacher's X-ORBITA provenance marker.
const PropShiftForgeRun = "X-SHIFTFORGE-RUN"

// shiftWindow returns the local clock-time window a shift occupies. Night
// shifts cross midnight, so End is on the following day.
func shiftWindow(date time.Time, shift domain.ShiftType) (start, end time.Time) {
	switch shift {
	case domain.ShiftDay:
		start = time.Date(date.Year(), date.Month(), date.Day(), 7, 0, 0, 0, date.Location())
	case domain.ShiftEvening:
		start = time.Date(date.Year(), date.Month(), date.Day(), 15, 0, 0, 0, date.Location())
	case domain.ShiftNight:
		start = time.Date(date.Year(), date.Month(), date.Day(), 23, 0, 0, 0, date.Location())
	}
	return start, start.Add(domain.ShiftHours * time.Hour)
}

// ScheduleEntry is one assigned shift, flattened out of
// Result.Schedule for calendar construction.
type ScheduleEntry struct {
	Doctor string
	Date   time.Time
	Shift  domain.ShiftType
}

// FlattenSchedule walks a solved schedule's date/shift/doctor map into a
// flat, sorted list of entries. dateLayout is the key format Result.Schedule
// uses for its date strings ("2006-01-02").
func FlattenSchedule(schedule map[string]map[domain.ShiftType][]string, dateLayout string, loc *time.Location) ([]ScheduleEntry, error) {
	if loc == nil {
		loc = time.UTC
	}
	var entries []ScheduleEntry
	for dateKey, shifts := range schedule {
		date, err := time.ParseInLocation(dateLayout, dateKey, loc)
		if err != nil {
			return nil, fmt.Errorf("parse schedule date %q: %w", dateKey, err)
		}
		for _, shift := range domain.AllShiftTypes {
			for _, doctor := range shifts[shift] {
				entries = append(entries, ScheduleEntry{Doctor: doctor, Date: date, Shift: shift})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Doctor < entries[j].Doctor
	})
	return entries, nil
}

// ExportDoctorCalendar builds an ical.Calendar containing one VEVENT per
// shift entry belonging to doctor.
func ExportDoctorCalendar(runID fmt.Stringer, doctor string, entries []ScheduleEntry) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, entry := range entries {
		if entry.Doctor != doctor {
			continue
		}
		cal.Children = append(cal.Children, shiftEvent(runID, entry).Component)
	}
	return cal
}

// shiftEvent builds the VEVENT for one assigned shift. The UID is derived
// deterministically from the run, date, shift, and doctor so a repeat export
// of the same run updates rather than duplicates the event.
func shiftEvent(runID fmt.Stringer, entry ScheduleEntry) *ical.Event {
	start, end := shiftWindow(entry.Date, entry.Shift)

	event := ical.NewEvent()
	uid := fmt.Sprintf("%s-%s-%s-%s@shiftforge", runID.String(), entry.Date.Format("2006-01-02"), entry.Shift, entry.Doctor)
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, end)
	event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s shift — %s", entry.Shift, entry.Doctor))
	event.Props.SetText(ical.PropDescription, fmt.Sprintf("Assigned by ShiftForge\nRun: %s", runID.String()))

	runProp := ical.NewProp(PropShiftForgeRun)
	runProp.Value = runID.String()
	event.Props[PropShiftForgeRun] = []ical.Prop{*runProp}

	return event
}

// EncodeICS serializes cal into the RFC 5545 wire format.
func EncodeICS(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
