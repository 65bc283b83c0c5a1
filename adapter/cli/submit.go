package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiftforge/scheduler/internal/scheduling/application/commands"
)

var submitInput string

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Queue a solve request for a worker to pick up",
	Long: `submit reads a solve request from --input or stdin, persists it as
a pending run, and prints the run ID. Poll "status <run-id>" for progress,
or run shiftforge-worker to drain the queue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.SubmitHandler == nil {
			return fmt.Errorf("submit requires a database connection")
		}

		bundle, err := loadBundle(submitInput)
		if err != nil {
			return err
		}

		result, err := a.SubmitHandler.Handle(cmd.Context(), commands.SubmitCommand{Bundle: bundle})
		if err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}

		fmt.Println(result.RunID)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVarP(&submitInput, "input", "i", "", "solve request JSON file (default: stdin)")
	rootCmd.AddCommand(submitCmd)
}
