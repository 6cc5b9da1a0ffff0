// runwatch tails completed run records from Kafka and, on request, lists
// the most recent runs stored in ClickHouse. It is the operator's view of
// what the engine has been producing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/db/queue"
	"github.com/erain9/mmsim/pkg/logging"
	"github.com/erain9/mmsim/pkg/messaging/kafka"
	"github.com/erain9/mmsim/pkg/store/clickhouse"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	recent := flag.Int("recent", 0, "List this many recent runs from ClickHouse and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Format == "pretty",
	})
	logger := logging.FromContext(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *recent > 0 {
		if err := listRecent(ctx, cfg, *recent); err != nil {
			logger.Fatal().Err(err).Msg("Failed to list recent runs")
		}
		return
	}

	queue.Configure(cfg.Kafka.BrokerAddr, "")
	consumer, err := kafka.SetupConsumer(ctx, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to start run-record consumer")
	}
	defer consumer.Close()

	logger.Info().Str("broker", cfg.Kafka.BrokerAddr).Msg("Watching run records, Ctrl-C to stop")
	<-ctx.Done()
}

func listRecent(ctx context.Context, cfg *config.Config, limit int) error {
	writer, err := clickhouse.NewWriter(ctx, clickhouse.Options{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	})
	if err != nil {
		return err
	}
	defer writer.Close()

	runs, err := writer.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(runs))
	for id := range runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	header := color.New(color.FgCyan, color.Bold)
	header.Printf("%-36s  %s\n", "run_id", "bars")
	for _, id := range ids {
		fmt.Printf("%-36s  %d\n", id, runs[id])
	}
	return nil
}
