package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplate_SetAndRequired(t *testing.T) {
	tpl := NewTemplate()
	tpl.Set(0, ShiftDay, 2)
	tpl.Set(0, ShiftNight, 1)

	assert.Equal(t, 2, tpl.Required(0, ShiftDay))
	assert.Equal(t, 1, tpl.Required(0, ShiftNight))
	assert.Equal(t, 0, tpl.Required(0, ShiftEvening))
	assert.True(t, tpl.HasDay(0))
	assert.False(t, tpl.HasDay(1))
}

func TestTemplate_AbsentDayIsZero(t *testing.T) {
	tpl := NewTemplate()
	assert.Equal(t, 0, tpl.Required(5, ShiftDay))
	assert.False(t, tpl.HasDay(5))
}
