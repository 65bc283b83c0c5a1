package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	appcontainer "github.com/shiftforge/scheduler/internal/app"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/pkg/config"
)

func appWithConfig(cfg *config.Config) *App {
	return NewApp(&appcontainer.Container{Config: cfg})
}

func TestSolveConfig_DefaultsFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DefaultMaxIterations:        500,
		DefaultTabuTenure:           8,
		DefaultPhaseInterval:        20,
		DefaultMetaOptimizerSamples: 4,
		DefaultMetaOptimizerWorkers: 2,
		PreferenceFairnessTolerance: 0.2,
		DefaultWeightPreset:         "fairness_first",
	}
	app := appWithConfig(cfg)

	got, err := solveConfig(app)
	if err != nil {
		t.Fatalf("solveConfig: %v", err)
	}
	if got.Driver.MaxIterations != 500 {
		t.Errorf("MaxIterations = %d, want 500", got.Driver.MaxIterations)
	}
	if got.Preset != domain.PresetFairnessFirst {
		t.Errorf("Preset = %q, want fairness_first", got.Preset)
	}
	if got.FairnessTolerance != 0.2 {
		t.Errorf("FairnessTolerance = %v, want 0.2", got.FairnessTolerance)
	}
}

func TestSolveConfig_FlagOverridesAppDefault(t *testing.T) {
	app := appWithConfig(&config.Config{DefaultWeightPreset: "balanced"})

	solvePreset = "preference_first"
	solveSeed = 42
	defer func() { solvePreset = ""; solveSeed = 1 }()

	got, err := solveConfig(app)
	if err != nil {
		t.Fatalf("solveConfig: %v", err)
	}
	if got.Preset != domain.PresetPreferenceFirst {
		t.Errorf("Preset = %q, want preference_first (flag should win)", got.Preset)
	}
	if got.Seed != 42 {
		t.Errorf("Seed = %d, want 42", got.Seed)
	}
}

func TestSolveConfig_RejectsUnknownPreset(t *testing.T) {
	app := appWithConfig(&config.Config{})

	solvePreset = "nonsense"
	defer func() { solvePreset = "" }()

	if _, err := solveConfig(app); err == nil {
		t.Fatal("expected an error for an unknown weight preset")
	}
}

func TestWriteJSON_ToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := writeJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var decoded map[string]int
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["a"] != 1 {
		t.Errorf("decoded[a] = %d, want 1", decoded["a"])
	}
}

func TestLoadBundle_DecodesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "request.json")
	requestJSON := `{
		"mode": "monthly",
		"year": 2026,
		"month": 3,
		"doctors": [{"name": "Dr. A", "seniority": "senior", "max_shifts_per_week": 5}],
		"template": {"2026-03-01": {"Day": 1, "Evening": 1, "Night": 1}}
	}`
	if err := os.WriteFile(path, []byte(requestJSON), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	bundle, err := loadBundle(path)
	if err != nil {
		t.Fatalf("loadBundle: %v", err)
	}
	if bundle == nil {
		t.Fatal("expected a non-nil bundle")
	}
}

func TestLoadBundle_MissingFile(t *testing.T) {
	if _, err := loadBundle(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	} else if !strings.Contains(err.Error(), "open input") {
		t.Errorf("error = %q, want it to mention opening the input", err)
	}
}
