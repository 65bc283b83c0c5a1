package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers MCP resources that expose run data without
// requiring a tool call.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	app := deps.App

	srv.Resource("shiftforge://runs/pending").
		Name("Pending runs").
		Description("Runs still waiting for a worker to pick them up, oldest first").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if app == nil || app.RunRepo == nil {
				return nil, fmt.Errorf("pending runs require database connection")
			}

			runs, err := app.RunRepo.FindPending(ctx, 20)
			if err != nil {
				return nil, fmt.Errorf("list pending runs: %w", err)
			}

			ids := make([]string, 0, len(runs))
			for _, run := range runs {
				ids = append(ids, run.ID().String())
			}

			data, err := json.Marshal(ids)
			if err != nil {
				return nil, fmt.Errorf("marshal pending runs: %w", err)
			}

			return &mcp.ResourceContent{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})

	return nil
}
