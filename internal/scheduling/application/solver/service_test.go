package solver_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	caldomain "github.com/shiftforge/scheduler/internal/calendar/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

func fiveDayBundle(t *testing.T) *domain.InputBundle {
	t.Helper()
	cal, err := caldomain.New(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), 5, nil, caldomain.WeekConventionISO)
	require.NoError(t, err)

	tpl := domain.NewTemplate()
	for d := 0; d < 5; d++ {
		tpl.Set(d, domain.ShiftDay, 1)
		tpl.Set(d, domain.ShiftEvening, 1)
		tpl.Set(d, domain.ShiftNight, 1)
	}

	doctors := []domain.Doctor{
		{Name: "Alice", Seniority: domain.SenioritySenior, MaxShiftsPerWeek: 5},
		{Name: "Bob", Seniority: domain.SeniorityJunior, MaxShiftsPerWeek: 5},
		{Name: "Carol", Seniority: domain.SeniorityJunior, MaxShiftsPerWeek: 5},
	}

	bundle, err := domain.NewInputBundle(domain.ModeMonthly, 2025, time.January, doctors, cal, tpl, domain.NewAvailabilityMap(5), 42, 0)
	require.NoError(t, err)
	return bundle
}

func TestService_Solve_ReturnsScheduleCoveringEveryDay(t *testing.T) {
	bundle := fiveDayBundle(t)
	svc := solver.NewService()

	cfg := solver.DefaultConfig()
	cfg.Meta = services.MetaOptimizerConfig{Samples: 2, Workers: 2}
	cfg.Driver.MaxIterations = 15

	result := svc.Solve(context.Background(), bundle, cfg, nil)

	require.NotNil(t, result)
	assert.Len(t, result.Schedule, 5)
	assert.GreaterOrEqual(t, result.Statistics.Iterations, 0)
	assert.NotEmpty(t, result.Statistics.Status)
}

func TestService_Solve_ReportsProgress(t *testing.T) {
	bundle := fiveDayBundle(t)
	svc := solver.NewService()

	cfg := solver.DefaultConfig()
	cfg.Meta = services.MetaOptimizerConfig{Samples: 1, Workers: 1}
	cfg.Driver.MaxIterations = 15
	cfg.Driver.ProgressTickEvery = 0

	var ticks int
	svc.Solve(context.Background(), bundle, cfg, func(services.ProgressTick) { ticks++ })

	assert.Greater(t, ticks, 0)
}
