package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers MCP prompts for common ShiftForge workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("build_monthly_schedule").
		Description("Guide for solving and reviewing a hospital's monthly on-call schedule.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Monthly Schedule Build",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me produce this month's on-call schedule. Please:

1. Call solve_schedule with the month's solve request JSON (doctors, contracts,
   holidays, availability, shift templates).
2. Check the returned result's hard-constraint violations; if any remain,
   report which doctors/days/shifts are affected before proposing fixes.
3. Summarize the soft-constraint score breakdown (fairness, preference match)
   so I can decide whether to accept this schedule or re-solve with a
   different weight preset.
4. If I approve, tell me to run "shiftforge export" for each doctor's
   calendar file, or "shiftforge sync" to push the schedule to the
   configured CalDAV calendar.`,
						},
					},
				},
			}, nil
		})

	return nil
}
