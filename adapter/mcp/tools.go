// Package mcp exposes ShiftForge's solve/submit/status handlers as MCP
// tools, resources, and prompts, mirroring the CLI one-for-one so both
// surfaces drive identical application handlers.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/google/uuid"

	"github.com/shiftforge/scheduler/adapter/cli"
	"github.com/shiftforge/scheduler/internal/scheduling/application/commands"
	"github.com/shiftforge/scheduler/internal/scheduling/application/queries"
	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/wire"
)

// ToolDependencies provides the handlers MCP tools call.
type ToolDependencies struct {
	App *cli.App
}

// RegisterTools registers every ShiftForge MCP tool.
func RegisterTools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}

	if err := registerSolveTools(srv, deps); err != nil {
		return err
	}
	return nil
}

type solveRequestInput struct {
	RequestJSON  string `json:"request_json" jsonschema:"required"`
	Seed         int64  `json:"seed,omitempty"`
	WeightPreset string `json:"weight_preset,omitempty"`
}

type runIDInput struct {
	RunID string `json:"run_id" jsonschema:"required"`
}

func registerSolveTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("solve_schedule").
		Description("Run the Meta-Optimizer synchronously over a solve request (JSON) and return the schedule").
		Handler(func(ctx context.Context, input solveRequestInput) (*commands.SolveResult, error) {
			if app == nil || app.SolveHandler == nil {
				return nil, errors.New("solve requires database connection")
			}
			bundle, err := decodeBundle(input.RequestJSON)
			if err != nil {
				return nil, err
			}
			cfg, err := buildConfig(input.Seed, input.WeightPreset)
			if err != nil {
				return nil, err
			}
			return app.SolveHandler.Handle(ctx, commands.SolveCommand{Bundle: bundle, Config: cfg})
		})

	srv.Tool("submit_schedule").
		Description("Queue a solve request for a worker to run asynchronously, returning a run ID").
		Handler(func(ctx context.Context, input solveRequestInput) (*commands.SubmitResult, error) {
			if app == nil || app.SubmitHandler == nil {
				return nil, errors.New("submit requires database connection")
			}
			bundle, err := decodeBundle(input.RequestJSON)
			if err != nil {
				return nil, err
			}
			return app.SubmitHandler.Handle(ctx, commands.SubmitCommand{Bundle: bundle})
		})

	srv.Tool("get_solve_status").
		Description("Look up a run's status and, once finished, its schedule").
		Handler(func(ctx context.Context, input runIDInput) (*queries.SolveStatusDTO, error) {
			if app == nil || app.GetSolveStatusHandler == nil {
				return nil, errors.New("status requires database connection")
			}
			runID, err := parseUUID(input.RunID)
			if err != nil {
				return nil, err
			}
			return app.GetSolveStatusHandler.Handle(ctx, queries.GetSolveStatusQuery{RunID: runID})
		})

	return nil
}

func decodeBundle(requestJSON string) (*domain.InputBundle, error) {
	req, err := wire.Decode(strings.NewReader(requestJSON))
	if err != nil {
		return nil, fmt.Errorf("decode solve request: %w", err)
	}
	return req.ToInputBundle()
}

func buildConfig(seed int64, preset string) (solver.Config, error) {
	cfg := solver.DefaultConfig()
	if seed != 0 {
		cfg.Seed = seed
	}
	if preset != "" {
		parsed, err := domain.ParseWeightPreset(preset)
		if err != nil {
			return solver.Config{}, err
		}
		cfg.Preset = parsed
	}
	return cfg, nil
}

func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.UUID{}, errors.New("run_id is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid run_id: %w", err)
	}
	return id, nil
}
