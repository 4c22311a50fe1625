package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rudirid/ares-master-control-program-sub000/risk"
	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

const runColumns = `run_id, created, label, dataset, config, initial_capital, final_capital, total_pnl, return_pct,
	trades, wins, losses, win_rate, profit_factor, sharpe, max_dd_pct, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var r RunRecord
	var cfg string
	err := row.Scan(
		&r.RunID, &r.Created, &r.Label, &r.Dataset, &cfg,
		&r.InitialCapital, &r.FinalCapital, &r.TotalPnL, &r.ReturnPct,
		&r.Trades, &r.Wins, &r.Losses, &r.WinRate, &r.ProfitFactor, &r.Sharpe, &r.MaxDDPct, &r.Error,
	)
	r.Config = []byte(cfg)
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRecord{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return RunRecord{}, err
	}
	return r, nil
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPositions returns the positions of a run in entry order.
func (j *SQLite) ListPositions(ctx context.Context, runID string) ([]sim.Position, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT position_id, ticker, direction, event_time, entry_time, entry_price, shares, position_value,
		       stop_loss, take_profit, risk_amount, confidence, sentiment, themes,
		       exit_time, exit_price, exit_reason, commission, pnl, return_pct, holding_days, is_open
		FROM positions
		WHERE run_id = ?
		ORDER BY entry_time ASC, position_id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.Position
	for rows.Next() {
		var (
			p      sim.Position
			dir    string
			themes string
			exit   sql.NullTime
		)
		if err := rows.Scan(
			&p.ID, &p.Ticker, &dir, &p.EventTime, &p.EntryTime, &p.EntryPrice, &p.Shares, &p.PositionValue,
			&p.StopLoss, &p.TakeProfit, &p.RiskAmount, &p.Confidence, &p.Sentiment, &themes,
			&exit, &p.ExitPrice, &p.ExitReason, &p.Commission, &p.PnL, &p.ReturnPct, &p.HoldingDays, &p.Open,
		); err != nil {
			return nil, err
		}
		p.Direction = parseDirection(dir)
		if exit.Valid {
			p.ExitTime = exit.Time
		}
		if err := json.Unmarshal([]byte(themes), &p.Themes); err != nil {
			return nil, fmt.Errorf("position %s themes: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEvents returns the events of a run in sequence order. An empty kind
// returns every kind.
func (j *SQLite) ListEvents(ctx context.Context, runID string, kind sim.EventKind) ([]sim.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, time, kind, ticker, description, details
		FROM events
		WHERE run_id = ? AND (? = '' OR kind = ?)
		ORDER BY seq ASC`, runID, string(kind), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.Event
	for rows.Next() {
		var (
			ev      sim.Event
			k       string
			details string
		)
		if err := rows.Scan(&ev.Seq, &ev.Time, &k, &ev.Ticker, &ev.Description, &details); err != nil {
			return nil, err
		}
		ev.Kind = sim.EventKind(k)
		if ev.Details, err = decodeDetails(details); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRiskEvents returns the risk audit trail of a run in insertion order.
func (j *SQLite) ListRiskEvents(ctx context.Context, runID string) ([]risk.RiskEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, type, severity, ticker, message, details
		FROM risk_events
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []risk.RiskEvent
	for rows.Next() {
		var (
			ev       risk.RiskEvent
			severity string
			details  string
		)
		if err := rows.Scan(&ev.Time, &ev.Type, &severity, &ev.Ticker, &ev.Message, &details); err != nil {
			return nil, err
		}
		ev.Severity = risk.ParseSeverity(severity)
		if ev.Details, err = decodeDetails(details); err != nil {
			return nil, fmt.Errorf("risk event %s: %w", ev.Type, err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeDetails(s string) (map[string]any, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
