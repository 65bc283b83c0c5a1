package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftType_IsValid(t *testing.T) {
	assert.True(t, ShiftDay.IsValid())
	assert.True(t, ShiftEvening.IsValid())
	assert.True(t, ShiftNight.IsValid())
	assert.False(t, ShiftType("Swing").IsValid())
}

func TestParseShiftType(t *testing.T) {
	s, err := ParseShiftType("Night")
	require.NoError(t, err)
	assert.Equal(t, ShiftNight, s)

	_, err = ParseShiftType("Swing")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestConstructionOrder_HardestFirst(t *testing.T) {
	assert.Equal(t, [3]ShiftType{ShiftEvening, ShiftNight, ShiftDay}, ConstructionOrder)
}
