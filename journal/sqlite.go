package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// SQLite is a Journal backed by a single database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(r RunRecord) error {
	cfg := string(r.Config)
	if cfg == "" {
		cfg = "{}"
	}
	_, err := j.db.Exec(`
		INSERT INTO runs
		(run_id, created, label, dataset, config, initial_capital, final_capital, total_pnl, return_pct,
		 trades, wins, losses, win_rate, profit_factor, sharpe, max_dd_pct, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Label, r.Dataset, cfg, r.InitialCapital, r.FinalCapital, r.TotalPnL, r.ReturnPct,
		r.Trades, r.Wins, r.Losses, r.WinRate, r.ProfitFactor, r.Sharpe, r.MaxDDPct, r.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

func (j *SQLite) RecordPosition(runID string, p sim.Position) error {
	themes, err := json.Marshal(p.Themes)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(`
		INSERT OR REPLACE INTO positions
		(run_id, position_id, ticker, direction, event_time, entry_time, entry_price, shares, position_value,
		 stop_loss, take_profit, risk_amount, confidence, sentiment, themes,
		 exit_time, exit_price, exit_reason, commission, pnl, return_pct, holding_days, is_open)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, p.ID, p.Ticker, p.Direction.String(), p.EventTime.UTC(), p.EntryTime.UTC(), p.EntryPrice, p.Shares, p.PositionValue,
		p.StopLoss, p.TakeProfit, p.RiskAmount, p.Confidence, p.Sentiment, string(themes),
		nullTime(p.ExitTime), p.ExitPrice, p.ExitReason, p.Commission, p.PnL, p.ReturnPct, p.HoldingDays, p.Open,
	)
	if err != nil {
		return fmt.Errorf("insert position %s: %w", p.ID, err)
	}
	return nil
}

func (j *SQLite) RecordEvent(runID string, ev sim.Event) error {
	details, err := encodeDetails(ev.Details)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(`
		INSERT INTO events
		(run_id, seq, time, kind, ticker, description, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, ev.Seq, ev.Time.UTC(), string(ev.Kind), ev.Ticker, ev.Description, details,
	)
	if err != nil {
		return fmt.Errorf("insert event %d: %w", ev.Seq, err)
	}
	return nil
}

// RecordRiskEvent stores a risk manager audit record under runID.
func (j *SQLite) RecordRiskEvent(runID string, ev risk.RiskEvent) error {
	details, err := encodeDetails(ev.Details)
	if err != nil {
		return err
	}
	_, err = j.db.Exec(`
		INSERT INTO risk_events
		(run_id, time, type, severity, ticker, message, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, ev.Time.UTC(), ev.Type, ev.Severity.String(), ev.Ticker, ev.Message, details,
	)
	if err != nil {
		return fmt.Errorf("insert risk event %s: %w", ev.Type, err)
	}
	return nil
}

// RiskSink binds the journal to runID so a risk.Manager can write to it.
func (j *SQLite) RiskSink(runID string) risk.RiskEventSink {
	return riskSink{j: j, runID: runID}
}

type riskSink struct {
	j     *SQLite
	runID string
}

func (s riskSink) RecordRiskEvent(ev risk.RiskEvent) error {
	return s.j.RecordRiskEvent(s.runID, ev)
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func encodeDetails(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode details: %w", err)
	}
	return string(b), nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
