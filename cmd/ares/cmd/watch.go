package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rudirid/ares-master-control-program-sub000/backtest"
	"github.com/rudirid/ares-master-control-program-sub000/journal"
	"github.com/rudirid/ares-master-control-program-sub000/pkg/id"
	"github.com/rudirid/ares-master-control-program-sub000/report"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a growing event file with a live session",
	Long: `Poll the event file on an interval and feed new rows into one long-lived
simulation. On interrupt the session is closed, summarised and journaled.
Send SIGHUP to clear a drawdown shutdown so entries can resume.

Example:
  ares watch -c ares.toml --interval 30s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchInterval time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchInterval, "interval", time.Minute, "poll interval")
	watchCmd.Flags().StringVar(&runEvents, "events", "", "event CSV (overrides data.events)")
	watchCmd.Flags().StringVar(&runPrices, "prices", "", "price CSV (overrides data.prices)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	override(&cfg.Data.Events, runEvents)
	override(&cfg.Data.Prices, runPrices)

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	prices, err := loadPrices(cfg)
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

	runID := id.New()
	var opts []sim.Option
	if rj, ok := j.(backtest.RiskJournal); ok {
		opts = append(opts, sim.WithRiskSink(rj.RiskSink(runID)))
	}
	s, err := sim.New(cfg.Simulation, cfg.Risk, log.With().Str("run_id", runID).Logger(), opts...)
	if err != nil {
		return err
	}
	session, err := sim.NewSession(s, prices)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go resetOnSignal(ctx, hup, session, log)

	poller := &sim.Poller{
		Source:   backtest.CSVEventSource{Path: cfg.Data.Events, Location: eventLocation(cfg), Log: log},
		Session:  session,
		Interval: watchInterval,
		Log:      log,
	}
	log.Info().Str("events", cfg.Data.Events).Dur("interval", watchInterval).Msg("watching")
	if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	res := session.Close()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", runID)
	report.WriteSummary(out, res)

	if j != nil {
		rec := journal.NewRunRecord(runID, time.Now(), res)
		rec.Label = "watch"
		rec.Dataset = cfg.Data.Events
		if err := journal.RecordResult(j, rec, res); err != nil {
			return fmt.Errorf("journal run %s: %w", runID, err)
		}
	}
	return nil
}

func resetOnSignal(ctx context.Context, sig <-chan os.Signal, session *sim.Session, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := session.ResetRisk(); err != nil {
				log.Error().Err(err).Msg("risk reset failed")
				continue
			}
			log.Warn().Msg("risk reset on SIGHUP")
		}
	}
}
