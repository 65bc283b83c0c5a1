package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_CarriesScheduleAndStatistics(t *testing.T) {
	r := Result{
		Schedule: map[string]map[ShiftType][]string{
			"2025-01-01": {ShiftDay: {"Alice"}},
		},
		Statistics:  Statistics{HardViolations: 0, Status: "feasible"},
		PluginTerms: []PluginTerm{{Name: "custom", Cost: 12.5}},
	}

	assert.Equal(t, []string{"Alice"}, r.Schedule["2025-01-01"][ShiftDay])
	assert.Equal(t, "feasible", r.Statistics.Status)
	assert.Len(t, r.PluginTerms, 1)
	assert.False(t, r.Cancelled)
}
