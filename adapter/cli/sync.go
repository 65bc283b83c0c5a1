package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shiftforge/scheduler/internal/scheduling/application/queries"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/calendarexport"
)

var syncCalendarPath string

var syncCmd = &cobra.Command{
	Use:   "sync <run-id>",
	Short: "Publish a finished run's schedule to the configured CalDAV calendar",
	Long: `sync pushes every shift in a finished run's schedule to the CalDAV
server configured by CALDAV_BASE_URL/CALDAV_USERNAME/CALDAV_PASSWORD, one
VEVENT per doctor/date/shift. Re-running sync for the same run updates its
events in place rather than duplicating them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.GetSolveStatusHandler == nil {
			return fmt.Errorf("sync requires a database connection")
		}
		if a.CalDAVPublisher == nil {
			return fmt.Errorf("calendar sync not configured (set CALDAV_BASE_URL)")
		}

		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}

		status, err := a.GetSolveStatusHandler.Handle(cmd.Context(), queries.GetSolveStatusQuery{RunID: runID})
		if err != nil {
			return err
		}
		if status.Status != domain.RunFeasible || status.Result == nil {
			return fmt.Errorf("run %s has no schedule to sync (status: %s)", runID, status.Status)
		}

		entries, err := calendarexport.FlattenSchedule(status.Result.Schedule, scheduleDateLayout, nil)
		if err != nil {
			return fmt.Errorf("flatten schedule: %w", err)
		}

		publisher := a.CalDAVPublisher
		if syncCalendarPath != "" {
			publisher = publisher.WithCalendarPath(syncCalendarPath)
		}

		result, err := publisher.PublishSchedule(cmd.Context(), runID, entries)
		if err != nil {
			return fmt.Errorf("publish schedule: %w", err)
		}

		fmt.Printf("synced shifts: created=%d updated=%d failed=%d\n", result.Created, result.Updated, result.Failed)
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncCalendarPath, "calendar-path", "", "CalDAV calendar path (default: server's first discovered calendar)")
	rootCmd.AddCommand(syncCmd)
}
