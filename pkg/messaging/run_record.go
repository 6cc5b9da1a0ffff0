package messaging

import (
	"context"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// RunSender publishes completed run records to a durable queue so that
// downstream jobs (dashboards, sweeps over history) can pick them up.
type RunSender interface {
	SendRunRecord(ctx context.Context, rec *RunRecord) error
	Close() error
}

// RunRecord summarizes one finished backtest run.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Bars        int       `json:"bars"`
	Trades      int       `json:"trades"`
	FinalEquity string    `json:"final_equity"`
	Sharpe      string    `json:"sharpe"`
	MaxDrawdown string    `json:"max_drawdown"`
}

// FormatMetric renders a metric as a fixed-point decimal string.
// Non-finite values come back empty so the record stays portable.
func FormatMetric(v float64) string {
	if v != v || v > 1e15 || v < -1e15 {
		return ""
	}
	return fpdecimal.FromFloat(v).String()
}
