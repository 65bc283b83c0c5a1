package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAvailabilityMap_DefaultsToAvailable(t *testing.T) {
	m := NewAvailabilityMap(10)
	assert.True(t, m.IsAvailable("Alice", 0, ShiftDay))
}

func TestAvailabilityMap_MarkUnavailable(t *testing.T) {
	m := NewAvailabilityMap(10)
	m.MarkUnavailable("Alice", 3, ShiftNight)

	assert.False(t, m.IsAvailable("Alice", 3, ShiftNight))
	assert.True(t, m.IsAvailable("Alice", 3, ShiftDay))
	assert.True(t, m.IsAvailable("Bob", 3, ShiftNight))
}

func TestAvailabilityMap_OutOfHorizonIsUnavailable(t *testing.T) {
	m := NewAvailabilityMap(10)
	m.MarkUnavailable("Alice", 0, ShiftDay)
	assert.False(t, m.IsAvailable("Alice", 99, ShiftDay))
}

func TestAvailabilityMap_UnavailableFraction(t *testing.T) {
	m := NewAvailabilityMap(10) // 30 total (day, shift) slots
	for d := 0; d < 7; d++ {
		m.MarkUnavailable("Alice", d, ShiftDay)
	}
	frac := m.UnavailableFraction("Alice")
	assert.InDelta(t, 7.0/30.0, frac, 1e-9)
	assert.Greater(t, frac, LimitedAvailabilityThreshold)

	assert.Equal(t, 0.0, m.UnavailableFraction("Bob"))
}
