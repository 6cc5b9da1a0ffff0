package backtest

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/erain9/mmsim/pkg/core"
)

// Result holds the two output tables of a run. Both are always non-nil and
// carry the full column contract even at zero rows.
type Result struct {
	Logs   []core.BarLog
	Trades []core.TradeLog
}

// FinalEquity returns the last logged equity, or NaN for an empty run.
func (r *Result) FinalEquity() float64 {
	if len(r.Logs) == 0 {
		return math.NaN()
	}
	return r.Logs[len(r.Logs)-1].Equity
}

// EquityCurve returns the equity column in bar order.
func (r *Result) EquityCurve() []float64 {
	out := make([]float64, len(r.Logs))
	for i, l := range r.Logs {
		out[i] = l.Equity
	}
	return out
}

// WriteLogsCSV writes the per-bar log. The header row is always emitted.
func (r *Result) WriteLogsCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.BarLogColumns); err != nil {
		return err
	}
	for _, l := range r.Logs {
		rec := []string{
			formatTime(l.Time),
			formatFloat(l.PriceRef),
			formatFloat(l.Mid),
			formatFloat(l.Bid),
			formatFloat(l.Ask),
			formatFloat(l.Inventory),
			formatFloat(l.Cash),
			formatFloat(l.Equity),
			l.Reason,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes the per-trade log. The header row is always emitted.
func (r *Result) WriteTradesCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.TradeLogColumns); err != nil {
		return err
	}
	for _, t := range r.Trades {
		rec := []string{
			formatTime(t.Time),
			t.Side.String(),
			formatFloat(t.Price),
			formatFloat(t.Qty),
			formatFloat(t.Fee),
			string(t.Liquidity),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
