package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rudirid/ares-master-control-program-sub000/backtest"
	"github.com/rudirid/ares-master-control-program-sub000/report"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a Kelly fraction by stop multiplier grid",
	Long: `Run one independent simulation per grid point, in parallel, and print the
results ordered by total return.

Example:
  ares sweep -c ares.toml --kelly 0.1,0.25,0.5 --atr 1.5,2,3 --workers 8`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

var (
	sweepKelly   []float64
	sweepATR     []float64
	sweepWorkers int
	sweepJSON    string
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().Float64SliceVar(&sweepKelly, "kelly", nil, "Kelly fractions (overrides sweep.kelly_fractions)")
	sweepCmd.Flags().Float64SliceVar(&sweepATR, "atr", nil, "ATR multipliers (overrides sweep.atr_multipliers)")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel runs (overrides sweep.workers)")
	sweepCmd.Flags().StringVar(&sweepJSON, "json", "", "write all results as JSON")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(sweepKelly) > 0 {
		cfg.Sweep.KellyFractions = sweepKelly
	}
	if len(sweepATR) > 0 {
		cfg.Sweep.ATRMultipliers = sweepATR
	}
	if sweepWorkers > 0 {
		cfg.Sweep.Workers = sweepWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	events, prices, err := loadInputs(cfg, log)
	if err != nil {
		return err
	}

	points := backtest.Grid(cfg.Sweep.KellyFractions, cfg.Sweep.ATRMultipliers)
	if len(points) == 0 {
		return fmt.Errorf("empty sweep grid")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Int("points", len(points)).Int("workers", cfg.Sweep.Workers).Msg("sweep started")
	results, err := backtest.Sweep(ctx, cfg.Simulation, cfg.Risk, points, cfg.Sweep.Workers, events, prices, log)
	if err != nil {
		return err
	}

	report.WriteSweep(cmd.OutOrStdout(), backtest.Best(results))
	if sweepJSON != "" {
		return writeJSON(sweepJSON, results)
	}
	return nil
}
