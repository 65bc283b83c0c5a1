package pluginloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
)

func TestValidateBinaryPath_RejectsEmpty(t *testing.T) {
	_, err := validateBinaryPath("")
	require.Error(t, err)
}

func TestValidateBinaryPath_RejectsRelative(t *testing.T) {
	_, err := validateBinaryPath("relative/path")
	require.Error(t, err)
}

func TestValidateBinaryPath_RejectsShellMetacharacters(t *testing.T) {
	_, err := validateBinaryPath("/usr/local/bin/plugin; rm -rf /")
	require.Error(t, err)
}

func TestValidateBinaryPath_AcceptsCleanAbsolutePath(t *testing.T) {
	clean, err := validateBinaryPath("/usr/local/bin/my-plugin")
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/my-plugin", clean)
}

func TestToWireSnapshot_ConvertsShiftKeysAndDoctors(t *testing.T) {
	snapshot := services.PluginSnapshot{
		Schedule: map[string]map[domain.ShiftType][]string{
			"2025-01-01": {domain.ShiftNight: {"Alice"}},
		},
		Doctors: []domain.Doctor{
			{Name: "Alice", Seniority: domain.SenioritySenior, Preference: domain.PreferenceNightOnly},
		},
	}

	wire := toWireSnapshot(snapshot)
	assert.Equal(t, []string{"Alice"}, wire.Schedule["2025-01-01"]["Night"])
	require.Len(t, wire.Doctors, 1)
	assert.Equal(t, "Senior", wire.Doctors[0].Seniority)
	assert.Equal(t, "NightOnly", wire.Doctors[0].Preference)
}
