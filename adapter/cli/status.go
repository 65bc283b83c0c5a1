package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shiftforge/scheduler/internal/scheduling/application/queries"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Print a run's current status and, once finished, its schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.GetSolveStatusHandler == nil {
			return fmt.Errorf("status requires a database connection")
		}

		runID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}

		status, err := a.GetSolveStatusHandler.Handle(cmd.Context(), queries.GetSolveStatusQuery{RunID: runID})
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal status: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(encoded))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
