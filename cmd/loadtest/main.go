// Engine load test: hammers the backtester with repeated runs over
// synthetic data and reports run-latency percentiles. Useful for
// spotting throughput regressions before long parameter sweeps.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/time/rate"

	"github.com/erain9/mmsim/config"
	"github.com/erain9/mmsim/pkg/backtest"
	"github.com/erain9/mmsim/pkg/data"
)

func main() {
	runs := flag.Int("runs", 200, "Total backtest runs")
	workers := flag.Int("workers", 8, "Concurrent workers")
	minutes := flag.Int("minutes", 600, "Synthetic bars per run")
	maxRate := flag.Float64("rate", 100, "Maximum runs started per second")
	useLOB := flag.Bool("lob", false, "Use the full LOB execution model")
	flag.Parse()

	cfg := config.DefaultSim()
	cfg.UseLOB = *useLOB

	opts := data.DefaultSyntheticOptions()
	opts.Minutes = *minutes
	opts.Seed = cfg.Seed
	bars := data.SyntheticMinute(opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		log.Println("Received interrupt signal, cleaning up...")
		cancel()
	}()

	limiter := rate.NewLimiter(rate.Limit(*maxRate), 1)

	// Run latencies in microseconds, up to a minute per run.
	hist := hdrhistogram.New(1, 60_000_000, 3)
	var histMu sync.Mutex

	jobs := make(chan int)
	var wg sync.WaitGroup

	start := time.Now()
	log.Printf("Starting %d runs across %d workers (%d bars each, lob=%v)...",
		*runs, *workers, len(bars), *useLOB)

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				runCfg := cfg
				runCfg.Seed = int64(seed)
				bt := backtest.New(runCfg)

				runStart := time.Now()
				res := bt.Run(bars)
				elapsed := time.Since(runStart)

				histMu.Lock()
				if err := hist.RecordValue(elapsed.Microseconds()); err != nil {
					log.Printf("Failed to record latency: %v", err)
				}
				histMu.Unlock()

				if len(res.Logs) == 0 {
					log.Printf("Run with seed %d produced no log rows", seed)
				}
			}
		}()
	}

loop:
	for i := 0; i < *runs; i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break loop
		}
	}
	close(jobs)
	wg.Wait()
	total := time.Since(start)

	log.Printf("Load test completed in %v", total)
	log.Printf("Runs completed: %d", hist.TotalCount())
	if hist.TotalCount() == 0 {
		return
	}

	fmt.Printf("\nRun latency (microseconds):\n")
	fmt.Printf("  min:    %d\n", hist.Min())
	fmt.Printf("  p50:    %d\n", hist.ValueAtQuantile(50))
	fmt.Printf("  p90:    %d\n", hist.ValueAtQuantile(90))
	fmt.Printf("  p99:    %d\n", hist.ValueAtQuantile(99))
	fmt.Printf("  max:    %d\n", hist.Max())
	fmt.Printf("  mean:   %.1f\n", hist.Mean())
	fmt.Printf("\nThroughput: %.1f runs/sec\n", float64(hist.TotalCount())/total.Seconds())
}
