package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignment_AppendAndSlot(t *testing.T) {
	a := NewAssignment(5)
	a.Append(0, ShiftDay, "Alice")
	a.Append(0, ShiftDay, "Bob")

	assert.Equal(t, []string{"Alice", "Bob"}, a.Slot(0, ShiftDay))
	assert.Empty(t, a.Slot(0, ShiftNight))
}

func TestAssignment_ReplaceAt(t *testing.T) {
	a := NewAssignment(5)
	a.Append(1, ShiftEvening, "Alice")

	displaced := a.ReplaceAt(1, ShiftEvening, 0, "Carol")
	assert.Equal(t, "Alice", displaced)
	assert.Equal(t, []string{"Carol"}, a.Slot(1, ShiftEvening))
}

func TestAssignment_ShiftOf(t *testing.T) {
	a := NewAssignment(3)
	a.Append(2, ShiftNight, "Alice")

	shift, ok := a.ShiftOf(2, "Alice")
	assert.True(t, ok)
	assert.Equal(t, ShiftNight, shift)

	_, ok = a.ShiftOf(2, "Bob")
	assert.False(t, ok)

	_, ok = a.ShiftOf(99, "Alice")
	assert.False(t, ok)
}

func TestAssignment_Clone_IsIndependent(t *testing.T) {
	a := NewAssignment(2)
	a.Append(0, ShiftDay, "Alice")

	clone := a.Clone()
	clone.Append(0, ShiftDay, "Bob")

	assert.Equal(t, []string{"Alice"}, a.Slot(0, ShiftDay))
	assert.Equal(t, []string{"Alice", "Bob"}, clone.Slot(0, ShiftDay))
}

func TestAssignment_ToSchedule(t *testing.T) {
	a := NewAssignment(2)
	a.Append(0, ShiftDay, "Alice")
	a.Append(1, ShiftNight, "Bob")

	dateOf := func(d int) string {
		if d == 0 {
			return "2025-01-01"
		}
		return "2025-01-02"
	}
	schedule := a.ToSchedule(dateOf)

	assert.Equal(t, []string{"Alice"}, schedule["2025-01-01"][ShiftDay])
	assert.Empty(t, schedule["2025-01-01"][ShiftNight])
	assert.Equal(t, []string{"Bob"}, schedule["2025-01-02"][ShiftNight])
}
