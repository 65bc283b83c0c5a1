package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caldomain "github.com/shiftforge/scheduler/internal/calendar/domain"
)

func testBundle(t *testing.T) *InputBundle {
	t.Helper()
	cal, err := caldomain.New(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 3, nil, caldomain.WeekConventionISO)
	require.NoError(t, err)
	tpl := NewTemplate()
	tpl.Set(0, ShiftDay, 1)
	doctors := []Doctor{{Name: "Alice", Seniority: SeniorityJunior, MaxShiftsPerWeek: 5}}
	bundle, err := NewInputBundle(ModeMonthly, 2025, time.January, doctors, cal, tpl, NewAvailabilityMap(3), 1, 0)
	require.NoError(t, err)
	return bundle
}

func TestRunStatus_IsTerminal(t *testing.T) {
	assert.True(t, RunFeasible.IsTerminal())
	assert.True(t, RunInfeasible.IsTerminal())
	assert.True(t, RunTimedOut.IsTerminal())
	assert.True(t, RunFailed.IsTerminal())
	assert.False(t, RunPending.IsTerminal())
	assert.False(t, RunRunning.IsTerminal())
}

func TestNewRun_StartsPending(t *testing.T) {
	r := NewRun(testBundle(t))
	assert.Equal(t, RunPending, r.Status())
	assert.NotEqual(t, uuid.Nil, r.ID())
	assert.Empty(t, r.DomainEvents())
}

func TestRun_Start(t *testing.T) {
	r := NewRun(testBundle(t))
	r.Start()
	assert.Equal(t, RunRunning, r.Status())
	require.Len(t, r.DomainEvents(), 1)
	assert.IsType(t, RunStarted{}, r.DomainEvents()[0])
}

func TestRun_Complete_FeasibleWhenNoHardViolations(t *testing.T) {
	r := NewRun(testBundle(t))
	r.Start()
	r.ClearDomainEvents()

	result := &Result{Statistics: Statistics{HardViolations: 0}}
	r.Complete(result)

	assert.Equal(t, RunFeasible, r.Status())
	assert.Same(t, result, r.Result())
	require.Len(t, r.DomainEvents(), 1)
}

func TestRun_Complete_InfeasibleWhenHardViolationsRemain(t *testing.T) {
	r := NewRun(testBundle(t))
	r.Complete(&Result{Statistics: Statistics{HardViolations: 3}})
	assert.Equal(t, RunInfeasible, r.Status())
}

func TestRun_Complete_TimedOutWhenCancelled(t *testing.T) {
	r := NewRun(testBundle(t))
	r.Complete(&Result{Cancelled: true, Statistics: Statistics{HardViolations: 2}})
	assert.Equal(t, RunTimedOut, r.Status())
}

func TestRun_Fail(t *testing.T) {
	r := NewRun(testBundle(t))
	r.Fail("invalid input")
	assert.Equal(t, RunFailed, r.Status())
	assert.Equal(t, "invalid input", r.FailureReason())
}

func TestRehydrateRun(t *testing.T) {
	id := uuid.New()
	now := time.Now().UTC()
	r := RehydrateRun(id, ModeMonthly, 2025, time.January, nil, RunFeasible, &Result{}, "", now, now)
	assert.Equal(t, id, r.ID())
	assert.Equal(t, RunFeasible, r.Status())
	assert.Nil(t, r.Bundle())
}
