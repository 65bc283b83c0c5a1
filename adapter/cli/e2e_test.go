package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	appcontainer "github.com/shiftforge/scheduler/internal/app"
	"github.com/shiftforge/scheduler/pkg/config"
)

const sampleSolveRequest = `{
	"mode": "monthly",
	"year": 2025,
	"month": 1,
	"doctors": [
		{"name": "Dr. Alice", "seniority": "senior", "max_shifts_per_week": 5},
		{"name": "Dr. Bob", "seniority": "junior", "max_shifts_per_week": 5}
	],
	"template": {"2025-01-06": {"Day": 1}}
}`

func setupLocalCLITest(t *testing.T) *appcontainer.Container {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		AppEnv:     "test",
		LocalMode:  true,
		SQLitePath: filepath.Join(dir, "test.db"),
	}

	container, err := appcontainer.NewLocalContainer(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return container
}

func writeSampleRequest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "request.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleSolveRequest), 0600))
	return path
}

// TestSubmitThenStatusEndToEnd drives "submit" and "status" as cobra
// commands against a real SQLite-backed container.
func TestSubmitThenStatusEndToEnd(t *testing.T) {
	container := setupLocalCLITest(t)
	SetApp(NewApp(container))
	defer SetApp(nil)

	reqPath := writeSampleRequest(t)
	submitInput = reqPath
	defer func() { submitInput = "" }()

	ctx := context.Background()
	submitCmd.SetContext(ctx)
	require.NoError(t, submitCmd.RunE(submitCmd, nil))

	pending, err := container.RunRepo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	runID := pending[0].ID()
	statusCmd.SetContext(ctx)
	require.NoError(t, statusCmd.RunE(statusCmd, []string{runID.String()}))
}

func TestStatusEndToEnd_UnknownRun(t *testing.T) {
	container := setupLocalCLITest(t)
	SetApp(NewApp(container))
	defer SetApp(nil)

	statusCmd.SetContext(context.Background())
	err := statusCmd.RunE(statusCmd, []string{uuid.New().String()})
	require.Error(t, err)
}
