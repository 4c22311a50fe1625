package journal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rudirid/ares-master-control-program-sub000/sim"
)

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the run as an Org-mode block.
func (r *RunRecord) WriteOrg(w io.Writer) error {
	return runOrg.Execute(w, r)
}

// WriteOrgFile renders the run to path.
func (r *RunRecord) WriteOrgFile(path string) error {
	buf := new(bytes.Buffer)
	if err := r.WriteOrg(buf); err != nil {
		return fmt.Errorf("render org: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const RunOrgTemplate = `* SIMULATION: {{if .Label}}{{.Label}}{{else}}(label?){{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_BAL:   {{printf "%.2f" .InitialCapital}}
:END_BAL:     {{printf "%.2f" .FinalCapital}}
:NET_PL:      {{printf "%.2f" .TotalPnL}}
:RETURN_PCT:  {{printf "%.2f" (mul100 .ReturnPct)}}
:MAX_DD_PCT:  {{printf "%.2f" (mul100 .MaxDDPct)}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .WinRate)}}
:PROFIT_FAC:  {{printf "%.2f" .ProfitFactor}}
:SHARPE:      {{printf "%.2f" .Sharpe}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:
{{- if .Error}}

Run error: {{.Error}}
{{- end}}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .TotalPnL}}*
- Return:           *{{printf "%.2f" (mul100 .ReturnPct)}}%*
- Max Drawdown:     *{{printf "%.2f" (mul100 .MaxDDPct)}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Profit Factor:    *{{printf "%.2f" .ProfitFactor}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
{{- if .NextActions }}

** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`

// FormatPositionOrg renders a position as an Org-mode block with the facts in
// a PROPERTIES drawer and empty review sections.
func FormatPositionOrg(p sim.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Position: %s %s (%s)\n", p.Ticker, p.Direction, shortID(p.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", p.ID)
	fmt.Fprintf(&b, ":TICKER: %s\n", p.Ticker)
	fmt.Fprintf(&b, ":DIRECTION: %s\n", p.Direction)
	fmt.Fprintf(&b, ":SHARES: %d\n", p.Shares)
	fmt.Fprintf(&b, ":CONFIDENCE: %.3f\n", p.Confidence)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.4f\n", p.EntryPrice)
	fmt.Fprintf(&b, ":STOP_LOSS: %.4f\n", p.StopLoss)
	fmt.Fprintf(&b, ":TAKE_PROFIT: %.4f\n", p.TakeProfit)
	fmt.Fprintf(&b, ":ENTRY_TIME: %s\n", p.EntryTime.UTC().Format(time.RFC3339))
	if p.Open {
		b.WriteString(":STATUS: open\n")
	} else {
		fmt.Fprintf(&b, ":EXIT_PRICE: %.4f\n", p.ExitPrice)
		fmt.Fprintf(&b, ":EXIT_TIME: %s\n", p.ExitTime.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", p.PnL)
		fmt.Fprintf(&b, ":REASON: %s\n", p.ExitReason)
	}
	if len(p.Themes) > 0 {
		fmt.Fprintf(&b, ":THEMES: %s\n", strings.Join(p.Themes, " "))
	}
	b.WriteString(":END:\n\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatPositionsOrg renders multiple positions separated by blank lines.
func FormatPositionsOrg(positions []sim.Position) string {
	var b strings.Builder
	for i, p := range positions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatPositionOrg(p))
	}
	return b.String()
}

// ExportRunOrg loads a run and its positions and returns the Org document.
func (j *SQLite) ExportRunOrg(ctx context.Context, runID string) (string, error) {
	run, err := j.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	positions, err := j.ListPositions(ctx, runID)
	if err != nil {
		return "", err
	}

	buf := new(bytes.Buffer)
	if err := run.WriteOrg(buf); err != nil {
		return "", fmt.Errorf("render org: %w", err)
	}
	if len(positions) > 0 {
		buf.WriteString("\n")
		buf.WriteString(FormatPositionsOrg(positions))
	}
	return buf.String(), nil
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
