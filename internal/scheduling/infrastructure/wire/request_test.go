package wire_test

// R1/R2: the wire format's round-trip properties, checked on the input
// bundle. R1 is parse -> serialize -> re-parse yielding an equivalent
// bundle; R2 is that constructing and evaluating a schedule from the
// re-parsed bundle reproduces the same soft and hard values. The solved
// schedule itself is not serialized here.

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/wire"
)

const sampleRequestJSON = `{
  "mode": "monthly",
  "year": 2025,
  "month": 1,
  "doctors": [
    {"name": "Alice", "seniority": "senior", "max_shifts_per_week": 5},
    {"name": "Bob", "seniority": "junior", "preference": "DayOnly", "max_shifts_per_week": 5},
    {"name": "Carol", "seniority": "junior", "max_shifts_per_week": 5,
      "contract": {"Day": 2, "Evening": 0, "Night": 0}}
  ],
  "holidays": {"2025-01-15": "Short"},
  "availability": {
    "Bob": {"2025-01-03": {"Night": false}}
  },
  "template": {
    "2025-01-01": {"Day": 1, "Evening": 1, "Night": 1},
    "2025-01-02": {"Day": 1, "Evening": 1, "Night": 1},
    "2025-01-03": {"Day": 1, "Evening": 1, "Night": 1}
  },
  "seed": 7
}`

func decodeSample(t *testing.T) *wire.SolveRequest {
	t.Helper()
	req, err := wire.Decode(strings.NewReader(sampleRequestJSON))
	require.NoError(t, err)
	return req
}

// R1: parse -> serialize -> re-parse yields an equivalent InputBundle, and
// therefore an equivalent schedule when evaluated against the same
// assignment.
func TestWireRoundTrip_EquivalentBundle(t *testing.T) {
	req := decodeSample(t)
	bundle, err := req.ToInputBundle()
	require.NoError(t, err)

	serialized := wire.FromInputBundle(bundle)

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(serialized))
	reparsed, err := wire.Decode(&buf)
	require.NoError(t, err)

	bundle2, err := reparsed.ToInputBundle()
	require.NoError(t, err)

	assert.Equal(t, bundle.Mode, bundle2.Mode)
	assert.Equal(t, bundle.Year, bundle2.Year)
	assert.Equal(t, bundle.Month, bundle2.Month)
	assert.Equal(t, bundle.Seed, bundle2.Seed)
	require.Equal(t, len(bundle.Doctors), len(bundle2.Doctors))

	for _, d := range bundle.Doctors {
		d2, ok := bundle2.Doctor(d.Name)
		require.True(t, ok, "doctor %s should survive the round trip", d.Name)
		assert.Equal(t, d.Seniority, d2.Seniority)
		assert.Equal(t, d.Preference, d2.Preference)
		assert.Equal(t, d.MaxShiftsPerWeek, d2.MaxShiftsPerWeek)
		assert.Equal(t, d.Contract, d2.Contract)
	}

	require.Equal(t, bundle.NumDays(), bundle2.NumDays())
	for day := 0; day < bundle.NumDays(); day++ {
		for _, shift := range domain.AllShiftTypes {
			assert.Equal(t, bundle.Template.Required(day, shift), bundle2.Template.Required(day, shift),
				"day %d shift %s template should round-trip", day, shift)
		}
	}

	assert.False(t, bundle2.Availability.IsAvailable("Bob", 2, domain.ShiftNight),
		"Bob's Night unavailability on 2025-01-03 should survive the round trip")
}

// R2: constructing and evaluating a schedule from the serialized-then-
// reparsed bundle reproduces the same soft and hard values as the
// original bundle's constructed assignment.
func TestWireRoundTrip_ReproducesEvaluatorSoftValue(t *testing.T) {
	req := decodeSample(t)
	bundle, err := req.ToInputBundle()
	require.NoError(t, err)

	assignment := services.Construct(bundle)
	evaluator := services.NewEvaluator(bundle)
	weights := domain.DefaultWeightVector(0.15)
	original := evaluator.Evaluate(assignment, weights)

	serialized := wire.FromInputBundle(bundle)
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(serialized))
	reparsed, err := wire.Decode(&buf)
	require.NoError(t, err)

	bundle2, err := reparsed.ToInputBundle()
	require.NoError(t, err)

	assignment2 := services.Construct(bundle2)
	evaluator2 := services.NewEvaluator(bundle2)
	reproduced := evaluator2.Evaluate(assignment2, weights)

	assert.Equal(t, original.Soft, reproduced.Soft)
	assert.Equal(t, original.Hard, reproduced.Hard)
}
