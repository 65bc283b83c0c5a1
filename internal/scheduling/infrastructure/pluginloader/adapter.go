package pluginloader

import (
	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	schedplugin "github.com/shiftforge/scheduler/internal/scheduling/plugin"
)

// pluginAdapter bridges a wire-level ConstraintEvaluator (net/rpc client
// stub or in-process test double) to the Evaluator's domain-level
// ConstraintPlugin interface.
type pluginAdapter struct {
	evaluator schedplugin.ConstraintEvaluator
}

func (a *pluginAdapter) Name() string {
	return a.evaluator.Name()
}

func (a *pluginAdapter) Evaluate(snapshot services.PluginSnapshot) (float64, error) {
	return a.evaluator.Evaluate(toWireSnapshot(snapshot))
}

func toWireSnapshot(s services.PluginSnapshot) schedplugin.Snapshot {
	schedule := make(map[string]map[string][]string, len(s.Schedule))
	for date, byShift := range s.Schedule {
		converted := make(map[string][]string, len(byShift))
		for shift, names := range byShift {
			converted[string(shift)] = names
		}
		schedule[date] = converted
	}

	doctors := make([]schedplugin.DoctorView, len(s.Doctors))
	for i, d := range s.Doctors {
		doctors[i] = schedplugin.DoctorView{
			Name:       d.Name,
			Seniority:  d.Seniority.String(),
			Preference: d.Preference.String(),
		}
	}

	return schedplugin.Snapshot{Schedule: schedule, Doctors: doctors}
}

var _ services.ConstraintPlugin = (*pluginAdapter)(nil)
