package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check CLI wiring health",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.RunRepo == nil {
			return fmt.Errorf("app not initialized")
		}
		fmt.Printf("ok: driver=%s\n", a.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
