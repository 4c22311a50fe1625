package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rudirid/ares-master-control-program-sub000/backtest"
	"github.com/rudirid/ares-master-control-program-sub000/config"
	"github.com/rudirid/ares-master-control-program-sub000/journal"
	"github.com/rudirid/ares-master-control-program-sub000/report"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay an event file against a price file",
	Long: `Run one simulation. Inputs, journal and report outputs come from the
config file; the flags below override it.

Example:
  ares run -c ares.toml --events data/events.csv --prices data/prices.csv --excel out/run.xlsx`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runEvents  string
	runPrices  string
	runLabel   string
	runExcel   string
	runMetrics string
	runOrg     string
	runJSON    string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runEvents, "events", "", "event CSV (overrides data.events)")
	runCmd.Flags().StringVar(&runPrices, "prices", "", "price CSV (overrides data.prices)")
	runCmd.Flags().StringVar(&runLabel, "label", "", "label stored with the journal run")
	runCmd.Flags().StringVar(&runExcel, "excel", "", "write an xlsx workbook (overrides report.excel_path)")
	runCmd.Flags().StringVar(&runMetrics, "metrics", "", "write a Prometheus textfile (overrides report.metrics_path)")
	runCmd.Flags().StringVar(&runOrg, "org", "", "write an Org-mode summary (overrides report.org_path)")
	runCmd.Flags().StringVar(&runJSON, "json", "", "write the full result as JSON (overrides report.json_path)")
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	override(&cfg.Data.Events, runEvents)
	override(&cfg.Data.Prices, runPrices)
	override(&cfg.Report.ExcelPath, runExcel)
	override(&cfg.Report.MetricsPath, runMetrics)
	override(&cfg.Report.OrgPath, runOrg)
	override(&cfg.Report.JSONPath, runJSON)

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	events, prices, err := loadInputs(cfg, log)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	if j != nil {
		defer j.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &backtest.Runner{
		Sim:     cfg.Simulation,
		Risk:    cfg.Risk,
		Log:     log,
		Journal: j,
		Label:   runLabel,
		Dataset: cfg.Data.Events,
	}
	run, err := runner.Run(ctx, events, prices)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", run.ID)
	if cfg.Report.Console {
		report.WriteSummary(out, run.Result)
		if len(run.Result.Positions) > 0 {
			report.WritePositions(out, run.Result.Positions)
		}
		report.WriteRisk(out, run.Result.Risk)
	}
	return writeReports(cfg, run, runLabel)
}

func writeReports(cfg *config.Config, run backtest.Run, label string) error {
	if p := cfg.Report.ExcelPath; p != "" {
		if err := report.WriteWorkbook(p, run.Result); err != nil {
			return err
		}
	}
	if p := cfg.Report.MetricsPath; p != "" {
		m := report.NewMetrics("ares")
		m.Observe(run.Result)
		if err := m.WriteTextfile(p); err != nil {
			return err
		}
	}
	if p := cfg.Report.OrgPath; p != "" {
		rec := journal.NewRunRecord(run.ID, time.Now(), run.Result)
		rec.Label = label
		rec.Dataset = cfg.Data.Events
		if err := rec.WriteOrgFile(p); err != nil {
			return err
		}
	}
	if p := cfg.Report.JSONPath; p != "" {
		if err := writeJSON(p, run.Result); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
