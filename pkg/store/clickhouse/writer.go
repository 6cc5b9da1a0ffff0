// Package clickhouse persists backtest output to ClickHouse for later
// analysis. Bar logs and trade logs go to separate tables keyed by run.
package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/erain9/mmsim/pkg/core"
)

// Options configures the ClickHouse connection.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string
}

// Writer batches backtest rows into ClickHouse.
type Writer struct {
	conn     driver.Conn
	database string
	logger   zerolog.Logger
}

// NewWriter connects, verifies with a ping, and ensures the schema.
func NewWriter(ctx context.Context, opts Options) (*Writer, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}

	w := &Writer{
		conn:     conn,
		database: opts.Database,
		logger:   log.With().Str("component", "clickhouse").Logger(),
	}
	if err := w.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, w.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.bar_logs (
			run_id    String,
			time      DateTime64(3, 'UTC'),
			price_ref Float64,
			mid       Float64,
			bid       Float64,
			ask       Float64,
			inventory Float64,
			cash      Float64,
			equity    Float64,
			reason    String
		) ENGINE = MergeTree() ORDER BY (run_id, time)`, w.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.trade_logs (
			run_id    String,
			time      DateTime64(3, 'UTC'),
			side      String,
			price     Float64,
			qty       Float64,
			fee       Float64,
			liquidity String
		) ENGINE = MergeTree() ORDER BY (run_id, time)`, w.database),
	}
	for _, stmt := range stmts {
		if err := w.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	return nil
}

// WriteBarLogs inserts the per-bar rows of a run in one batch.
func (w *Writer) WriteBarLogs(ctx context.Context, runID string, logs []core.BarLog) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.bar_logs`, w.database))
	if err != nil {
		return fmt.Errorf("prepare bar batch: %w", err)
	}
	for _, row := range logs {
		if err := batch.Append(
			runID,
			row.Time,
			row.PriceRef,
			row.Mid,
			row.Bid,
			row.Ask,
			row.Inventory,
			row.Cash,
			row.Equity,
			row.Reason,
		); err != nil {
			return fmt.Errorf("append bar row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send bar batch: %w", err)
	}
	w.logger.Debug().Str("run_id", runID).Int("rows", len(logs)).Msg("Wrote bar logs")
	return nil
}

// WriteTradeLogs inserts the fills of a run in one batch.
func (w *Writer) WriteTradeLogs(ctx context.Context, runID string, trades []core.TradeLog) error {
	batch, err := w.conn.PrepareBatch(ctx, fmt.Sprintf(`INSERT INTO %s.trade_logs`, w.database))
	if err != nil {
		return fmt.Errorf("prepare trade batch: %w", err)
	}
	for _, tr := range trades {
		if err := batch.Append(
			runID,
			tr.Time,
			tr.Side.String(),
			tr.Price,
			tr.Qty,
			tr.Fee,
			string(tr.Liquidity),
		); err != nil {
			return fmt.Errorf("append trade row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send trade batch: %w", err)
	}
	w.logger.Debug().Str("run_id", runID).Int("rows", len(trades)).Msg("Wrote trade logs")
	return nil
}

// RecentRuns lists the most recent run IDs with their bar counts.
func (w *Writer) RecentRuns(ctx context.Context, limit int) (map[string]uint64, error) {
	rows, err := w.conn.Query(ctx, fmt.Sprintf(
		`SELECT run_id, count() FROM %s.bar_logs GROUP BY run_id ORDER BY max(time) DESC LIMIT %d`,
		w.database, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]uint64)
	for rows.Next() {
		var runID string
		var n uint64
		if err := rows.Scan(&runID, &n); err != nil {
			return nil, err
		}
		out[runID] = n
	}
	return out, rows.Err()
}

// Close releases the connection.
func (w *Writer) Close() error {
	return w.conn.Close()
}
