package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shiftforge/scheduler/internal/scheduling/application/queries"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/calendarexport"
)

const scheduleDateLayout = "2006-01-02"

var (
	exportOutput string
	exportDoctor string
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a finished run's schedule as an ICS calendar",
	Long: `export fetches a finished run's schedule and writes one doctor's
shifts as an iCalendar (.ics) file, for import into any calendar app.

Examples:
  shiftforge export RUN_ID --doctor "Dr. Alvarez"            # to stdout
  shiftforge export RUN_ID --doctor "Dr. Alvarez" -o cal.ics # to file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.GetSolveStatusHandler == nil {
			return fmt.Errorf("export requires a database connection")
		}
		if exportDoctor == "" {
			return fmt.Errorf("--doctor is required")
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
			return fmt.Errorf("run %s has no schedule to export (status: %s)", runID, status.Status)
		}

		entries, err := calendarexport.FlattenSchedule(status.Result.Schedule, scheduleDateLayout, nil)
		if err != nil {
			return fmt.Errorf("flatten schedule: %w", err)
		}

		cal := calendarexport.ExportDoctorCalendar(runID, exportDoctor, entries)
		encoded, err := calendarexport.EncodeICS(cal)
		if err != nil {
			return fmt.Errorf("encode ics: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, encoded, 0600); err != nil {
				return fmt.Errorf("write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "exported %s's shifts to %s\n", exportDoctor, exportOutput)
			return nil
		}
		fmt.Print(string(encoded))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportDoctor, "doctor", "", "doctor whose shifts to export (required)")
	rootCmd.AddCommand(exportCmd)
}
