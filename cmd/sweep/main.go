package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/core"
	"github.com/erain9/mmsim/pkg/data"
	"github.com/erain9/mmsim/pkg/logging"
	"github.com/erain9/mmsim/pkg/sweep"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	dataPath := flag.String("data", "", "Path to OHLCV CSV data (empty: synthetic minute bars)")
	minutes := flag.Int("minutes", 600, "Number of synthetic bars when no data file is given")
	mode := flag.String("mode", "grid", "Sweep mode: grid, walkforward, stress-fee, stress-slippage")
	concurrency := flag.Int("concurrency", 0, "Parallel cells (0: GOMAXPROCS)")
	trainLen := flag.Int("train", 300, "Walk-forward train window length")
	testLen := flag.Int("test", 100, "Walk-forward test window length")
	outPath := flag.String("out", "", "Output CSV path (empty: stdout)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Format == "pretty",
	})

	ctx := context.Background()

	var cache sweep.Cache = sweep.NoopCache{}
	if cfg.Redis.Enabled {
		rc, err := sweep.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			log.Printf("Redis unavailable, running uncached: %v", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	bars, err := loadBars(*dataPath, *minutes, cfg.Sim.Seed)
	if err != nil {
		log.Fatalf("Failed to load market data: %v", err)
	}

	runner := sweep.NewRunner(cfg.Sim, cache, *concurrency)

	var header []string
	var rows [][]string
	switch *mode {
	case "grid":
		gridRows, err := runner.Grid(ctx, bars, sweep.DefaultGridSpec())
		if err != nil {
			log.Fatalf("Grid sweep failed: %v", err)
		}
		header = []string{"k_vol", "k_inv", "latency_sec", "final_equity", "sharpe", "max_drawdown", "trades"}
		for _, r := range gridRows {
			rows = append(rows, []string{
				ftoa(r.KVol), ftoa(r.KInv), ftoa(r.LatencySec),
				ftoa(r.FinalEquity), ftoa(r.Sharpe), ftoa(r.MaxDrawdown),
				strconv.Itoa(r.Trades),
			})
		}
	case "walkforward":
		wfRows, err := runner.WalkForward(ctx, bars, sweep.WalkForwardOptions{
			TrainLen: *trainLen,
			TestLen:  *testLen,
			Spec:     sweep.DefaultGridSpec(),
		})
		if err != nil {
			log.Fatalf("Walk-forward failed: %v", err)
		}
		header = []string{"start", "k_vol", "k_inv", "latency_sec", "train_equity", "test_equity", "test_trades"}
		for _, r := range wfRows {
			rows = append(rows, []string{
				strconv.Itoa(r.Start), ftoa(r.KVol), ftoa(r.KInv), ftoa(r.LatencySec),
				ftoa(r.TrainEquity), ftoa(r.TestEquity), strconv.Itoa(r.TestTrades),
			})
		}
	case "stress-fee":
		stressRows, err := runner.StressFeeLatency(ctx, bars,
			[]float64{0, 2, 5, 10}, []float64{0, 30, 60, 120})
		if err != nil {
			log.Fatalf("Stress sweep failed: %v", err)
		}
		header, rows = stressTable(stressRows, "fee_bps", func(r sweep.StressRow) float64 { return r.FeeBps })
	case "stress-slippage":
		stressRows, err := runner.StressSlippageLatency(ctx, bars,
			[]float64{0, 1, 2, 5}, []float64{0, 30, 60, 120})
		if err != nil {
			log.Fatalf("Stress sweep failed: %v", err)
		}
		header, rows = stressTable(stressRows, "slippage_bps", func(r sweep.StressRow) float64 { return r.SlippageBps })
	default:
		log.Fatalf("Unknown mode: %q", *mode)
	}

	if err := writeCSV(*outPath, header, rows); err != nil {
		log.Fatalf("Failed to write results: %v", err)
	}
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

func stressTable(rows []sweep.StressRow, axis string, pick func(sweep.StressRow) float64) ([]string, [][]string) {
	header := []string{axis, "latency_sec", "final_equity", "sharpe", "max_drawdown", "trades"}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			ftoa(pick(r)), ftoa(r.LatencySec),
			ftoa(r.FinalEquity), ftoa(r.Sharpe), ftoa(r.MaxDrawdown),
			strconv.Itoa(r.Trades),
		})
	}
	return header, out
}

func writeCSV(path string, header []string, rows [][]string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(rows), path)
	}
	return nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
