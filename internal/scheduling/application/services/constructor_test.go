package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

func TestConstruct_FillsSimpleTemplate(t *testing.T) {
	bundle := buildBundle(t, twoDoctors(), nil, 2, func(tpl *domain.Template) {
		tpl.Set(0, domain.ShiftDay, 1)
		tpl.Set(1, domain.ShiftDay, 1)
	})

	a := Construct(bundle)
	eval := NewEvaluator(bundle)
	assert.Equal(t, 0, eval.Hard(a))
}

func TestConstruct_PrioritizesContractDoctors(t *testing.T) {
	doctors := []domain.Doctor{
		{Name: "Alice", MaxShiftsPerWeek: 5, Contract: &domain.Contract{Day: 1}},
		{Name: "Bob", MaxShiftsPerWeek: 5},
	}
	bundle := buildBundle(t, doctors, nil, 1, func(tpl *domain.Template) {
		tpl.Set(0, domain.ShiftDay, 1)
	})

	a := Construct(bundle)
	assert.Equal(t, []string{"Alice"}, a.Slot(0, domain.ShiftDay))
}

func TestConstruct_LeavesSlotShortWhenInfeasible(t *testing.T) {
	doctors := []domain.Doctor{
		{Name: "Alice", Preference: domain.PreferenceDayOnly, MaxShiftsPerWeek: 5},
	}
	bundle := buildBundle(t, doctors, nil, 1, func(tpl *domain.Template) {
		tpl.Set(0, domain.ShiftNight, 1) // Alice can never take Night
	})

	a := Construct(bundle)
	assert.Empty(t, a.Slot(0, domain.ShiftNight))
}

func TestConstruct_DeterministicGivenSameSeed(t *testing.T) {
	doctors := []domain.Doctor{
		{Name: "Alice", MaxShiftsPerWeek: 5},
		{Name: "Bob", MaxShiftsPerWeek: 5},
		{Name: "Carol", MaxShiftsPerWeek: 5},
	}
	bundle := buildBundle(t, doctors, nil, 5, func(tpl *domain.Template) {
		for d := 0; d < 5; d++ {
			tpl.Set(d, domain.ShiftDay, 1)
		}
	})

	a1 := Construct(bundle)
	a2 := Construct(bundle)
	for d := 0; d < 5; d++ {
		assert.Equal(t, a1.Slot(d, domain.ShiftDay), a2.Slot(d, domain.ShiftDay))
	}
}
