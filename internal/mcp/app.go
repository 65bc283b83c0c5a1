package mcp

import (
	"github.com/shiftforge/scheduler/adapter/cli"
	"github.com/shiftforge/scheduler/internal/app"
)

// NewCLIApp wraps container for the MCP server's tool handlers, reusing the
// exact same handlers the CLI calls so both surfaces drive identical
// solve/submit/status behavior.
func NewCLIApp(container *app.Container) *cli.App {
	return cli.NewApp(container)
}
