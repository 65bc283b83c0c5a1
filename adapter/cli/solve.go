package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shiftforge/scheduler/internal/scheduling/application/commands"
	"github.com/shiftforge/scheduler/internal/scheduling/application/solver"
	"github.com/shiftforge/scheduler/internal/scheduling/domain"
	"github.com/shiftforge/scheduler/internal/scheduling/infrastructure/wire"
)

var (
	solveInput      string
	solveOutput     string
	solveSeed       int64
	solveTimeBudget time.Duration
	solvePreset     string
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Run one solve in-process and print the result",
	Long: `solve reads a solve request (the JSON solve-request shape, the
same one "submit" accepts) from --input or stdin, runs the Meta-Optimizer
synchronously in this process, and writes the solve result to --output
or stdout. Use this for a one-off schedule; use "submit" to hand the
same request to a worker instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp()
		if a == nil || a.SolveHandler == nil {
			return fmt.Errorf("solve requires a database connection")
		}

		bundle, err := loadBundle(solveInput)
		if err != nil {
			return err
		}

		cfg, err := solveConfig(a)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if solveTimeBudget > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, solveTimeBudget)
			defer cancel()
		}

		result, err := a.SolveHandler.Handle(ctx, commands.SolveCommand{Bundle: bundle, Config: cfg})
		if err != nil {
			return fmt.Errorf("solve failed: %w", err)
		}

		return writeJSON(solveOutput, result)
	},
}

// loadBundle reads and decodes a solve request from path, or stdin when
// path is empty.
func loadBundle(path string) (*domain.InputBundle, error) {
	f := os.Stdin
	if path != "" {
		opened, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer opened.Close()
		f = opened
	}

	req, err := wire.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode solve request: %w", err)
	}
	return req.ToInputBundle()
}

// solveConfig builds a solver.Config from the app's configured defaults,
// overridden by any flags the caller passed.
func solveConfig(a *App) (solver.Config, error) {
	cfg := solver.DefaultConfig()
	if a.Config != nil {
		cfg.Driver.MaxIterations = a.Config.DefaultMaxIterations
		cfg.Driver.TabuTenure = a.Config.DefaultTabuTenure
		cfg.Driver.PhaseInterval = a.Config.DefaultPhaseInterval
		cfg.Meta.Samples = a.Config.DefaultMetaOptimizerSamples
		cfg.Meta.Workers = a.Config.DefaultMetaOptimizerWorkers
		cfg.FairnessTolerance = a.Config.PreferenceFairnessTolerance
		if a.Config.DefaultWeightPreset != "" {
			preset, err := domain.ParseWeightPreset(a.Config.DefaultWeightPreset)
			if err != nil {
				return solver.Config{}, err
			}
			cfg.Preset = preset
		}
	}

	if solvePreset != "" {
		preset, err := domain.ParseWeightPreset(solvePreset)
		if err != nil {
			return solver.Config{}, err
		}
		cfg.Preset = preset
	}
	cfg.Seed = solveSeed
	return cfg, nil
}

// writeJSON marshals v as pretty-printed JSON to path, or stdout when path
// is empty.
func writeJSON(path string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if path == "" {
		fmt.Println(string(encoded))
		return nil
	}
	if err := os.WriteFile(path, append(encoded, '\n'), 0600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}

func init() {
	solveCmd.Flags().StringVarP(&solveInput, "input", "i", "", "solve request JSON file (default: stdin)")
	solveCmd.Flags().StringVarP(&solveOutput, "output", "o", "", "result JSON file (default: stdout)")
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 1, "tabu search random seed")
	solveCmd.Flags().DurationVar(&solveTimeBudget, "time-budget", 0, "cap the solve to this duration (0: no cap)")
	solveCmd.Flags().StringVar(&solvePreset, "weight-preset", "", "weight preset (balanced, preference_first, fairness_first)")
	rootCmd.AddCommand(solveCmd)
}
