package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/analytics"
	"github.com/erain9/mmsim/pkg/backtest"
	"github.com/erain9/mmsim/pkg/core"
	"github.com/erain9/mmsim/pkg/data"
	"github.com/erain9/mmsim/pkg/db/queue"
	"github.com/erain9/mmsim/pkg/logging"
	"github.com/erain9/mmsim/pkg/messaging"
	"github.com/erain9/mmsim/pkg/messaging/kafka"
	"github.com/erain9/mmsim/pkg/otel"
	"github.com/erain9/mmsim/pkg/store/clickhouse"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	dataPath := flag.String("data", "", "Path to OHLCV CSV data (empty: synthetic minute bars)")
	minutes := flag.Int("minutes", 600, "Number of synthetic bars when no data file is given")
	outDir := flag.String("out", "output", "Directory for log and trade CSVs")
	preset := flag.String("preset", "", "Named parameter preset (high-activity)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	switch *preset {
	case "":
	case "high-activity":
		cfg.Sim = config.HighActivityPreset(cfg.Sim)
	default:
		log.Fatalf("Unknown preset: %q", *preset)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Format == "pretty",
	})

	runID := uuid.NewString()
	ctx := logging.WithRunID(context.Background(), runID)
	logger := logging.FromContext(ctx)

	// Telemetry is best-effort: a missing collector must not block a run.
	cleanup, err := otel.Init(otel.Config{
		Endpoint:         cfg.Otel.Endpoint,
		CollectorEnabled: cfg.Otel.Enabled,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize OpenTelemetry")
	} else {
		defer cleanup()
	}

	bars, err := loadBars(*dataPath, *minutes, cfg.Sim.Seed)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load market data")
	}
	logger.Info().Int("bars", len(bars)).Bool("use_lob", cfg.Sim.UseLOB).Msg("Starting backtest")

	started := time.Now()
	bt := backtest.New(cfg.Sim)
	res := bt.Run(bars)
	elapsed := time.Since(started)

	metrics := analytics.ComputeMetrics(res.EquityCurve(), analytics.MinutesPerDay)
	markouts := analytics.ComputeMarkouts(res.Logs, res.Trades, cfg.Sim.MarkoutHorizons)
	attribution := analytics.Attribute(markouts, cfg.Sim.MarkoutHorizons)

	if err := writeOutputs(res, *outDir); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write outputs")
	}

	publish(ctx, cfg, logger, runID, res, metrics, started)
	recordTelemetry(ctx, cfg, res, elapsed)

	printSummary(runID, cfg, res, metrics, attribution, elapsed)
}

func loadBars(path string, minutes int, seed int64) ([]core.Bar, error) {
	if path == "" {
		opts := data.DefaultSyntheticOptions()
		opts.Minutes = minutes
		opts.Seed = seed
		return data.SyntheticMinute(opts), nil
	}
	return data.LoadCSV(path)
}

func writeOutputs(res *backtest.Result, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(outDir, "logs.csv"), res.WriteLogsCSV); err != nil {
		return err
	}
	return writeCSV(filepath.Join(outDir, "trades.csv"), res.WriteTradesCSV)
}

func writeCSV(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// publish ships the run to whichever sinks are enabled. Failures are
// logged and skipped; the local CSVs are already on disk.
func publish(ctx context.Context, cfg *config.Config, logger zerolog.Logger, runID string, res *backtest.Result, metrics analytics.Metrics, started time.Time) {
	if cfg.Kafka.Enabled {
		queue.Configure(cfg.Kafka.BrokerAddr, "")
		sender, err := kafka.NewKafkaTradeSender(cfg.Kafka.BrokerAddr, cfg.Kafka.Topic)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to create Kafka trade sender")
		} else {
			defer sender.Close()
			for _, tr := range res.Trades {
				fill := core.Fill{
					Time:      tr.Time,
					Side:      tr.Side,
					Price:     tr.Price,
					Qty:       tr.Qty,
					Fee:       tr.Fee,
					Liquidity: tr.Liquidity,
				}
				if err := sender.SendTradeMessage(messaging.FromFill(runID, fill)); err != nil {
					logger.Warn().Err(err).Msg("Failed to publish trade")
					break
				}
			}
		}

		rec := &messaging.RunRecord{
			RunID:       runID,
			StartedAt:   started,
			FinishedAt:  time.Now(),
			Bars:        len(res.Logs),
			Trades:      len(res.Trades),
			FinalEquity: messaging.FormatMetric(metrics.FinalEquity),
			Sharpe:      messaging.FormatMetric(metrics.Sharpe),
			MaxDrawdown: messaging.FormatMetric(metrics.MaxDrawdown),
		}
		if err := queue.SendRunRecord(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish run record")
		}
	}

	if cfg.ClickHouse.Enabled {
		writer, err := clickhouse.NewWriter(ctx, clickhouse.Options{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.Username,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to ClickHouse")
			return
		}
		defer writer.Close()
		if err := writer.WriteBarLogs(ctx, runID, res.Logs); err != nil {
			logger.Warn().Err(err).Msg("Failed to write bar logs to ClickHouse")
		}
		if err := writer.WriteTradeLogs(ctx, runID, res.Trades); err != nil {
			logger.Warn().Err(err).Msg("Failed to write trade logs to ClickHouse")
		}
	}
}

func recordTelemetry(ctx context.Context, cfg *config.Config, res *backtest.Result, elapsed time.Duration) {
	if !cfg.Otel.Enabled {
		return
	}
	m, err := otel.GetEngineMetrics()
	if err != nil {
		return
	}
	model := "coarse"
	if cfg.Sim.UseLOB {
		model = "lob"
	}
	m.RecordRun(ctx, model, elapsed, len(res.Logs), len(res.Trades))
}

func printSummary(runID string, cfg *config.Config, res *backtest.Result, metrics analytics.Metrics, attribution analytics.AttributionSummary, elapsed time.Duration) {
	header := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgWhite)
	value := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)

	header.Println("=== Backtest Summary ===")
	label.Printf("Run:          ")
	fmt.Println(runID)
	label.Printf("Model:        ")
	if cfg.Sim.UseLOB {
		fmt.Println("full LOB")
	} else {
		fmt.Println("coarse next-bar")
	}
	label.Printf("Bars:         ")
	fmt.Println(len(res.Logs))
	label.Printf("Trades:       ")
	fmt.Println(len(res.Trades))
	label.Printf("Elapsed:      ")
	fmt.Println(elapsed.Round(time.Millisecond))

	eqPrinter := value
	if metrics.FinalEquity < 0 {
		eqPrinter = bad
	}
	label.Printf("Final equity: ")
	eqPrinter.Printf("%.6f\n", metrics.FinalEquity)
	label.Printf("Sharpe:       ")
	fmt.Printf("%.4f\n", metrics.Sharpe)
	label.Printf("Sortino:      ")
	fmt.Printf("%.4f\n", metrics.Sortino)
	label.Printf("Max drawdown: ")
	fmt.Printf("%.6f\n", metrics.MaxDrawdown)

	header.Println("=== Edge Attribution ===")
	printAttribution := func(name string, a analytics.Attribution) {
		label.Printf("%-8s", name)
		fmt.Printf("trades=%d fees=%.6f spread_edge=%.6f\n", a.Trades, a.FeesSum, a.SpreadEdgeSum)
	}
	printAttribution("total", attribution.Total)
	printAttribution("maker", attribution.Maker)
	printAttribution("taker", attribution.Taker)

	zlog.Info().Str("run_id", runID).Msg("Run complete")
}
