package cmd

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/rudirid/ares-master-control-program-sub000/journal"
	"github.com/rudirid/ares-master-control-program-sub000/report"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the run journal",
	Long: `Query and display run records from the SQLite journal.

Subcommands:
  runs       - List recorded runs
  run        - Print one run as an Org-mode document
  positions  - List the positions of a run
  risk       - List the risk manager events of a run

Examples:
  ares journal runs
  ares journal run <run-id>
  ares journal positions <run-id>`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Print a run as Org-mode",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalPositionsCmd = &cobra.Command{
	Use:   "positions <run-id>",
	Short: "List the positions of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPositions,
}

var journalRiskCmd = &cobra.Command{
	Use:   "risk <run-id>",
	Short: "List the risk events of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRisk,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalPositionsCmd)
	journalCmd.AddCommand(journalRiskCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./ares.db", "path to SQLite journal DB")
}

func openDB() (*journal.SQLite, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.ListRuns(context.Background())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Created", "Label", "Trades", "Return", "Max DD"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.RunID,
			r.Created.Format("2006-01-02 15:04"),
			r.Label,
			r.Trades,
			fmt.Sprintf("%.2f%%", r.ReturnPct*100),
			fmt.Sprintf("%.2f%%", r.MaxDDPct*100),
		})
	}
	t.Render()
	return nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	org, err := j.ExportRunOrg(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), org)
	return nil
}

func runJournalPositions(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	positions, err := j.ListPositions(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}
	report.WritePositions(cmd.OutOrStdout(), positions)
	return nil
}

func runJournalRisk(cmd *cobra.Command, args []string) error {
	j, err := openDB()
	if err != nil {
		return err
	}
	defer j.Close()

	events, err := j.ListRiskEvents(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("query risk events: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Type", "Severity", "Ticker", "Message"})
	for _, ev := range events {
		t.AppendRow(table.Row{ev.Time.Format("2006-01-02 15:04"), ev.Type, ev.Severity, ev.Ticker, ev.Message})
	}
	t.Render()
	return nil
}
