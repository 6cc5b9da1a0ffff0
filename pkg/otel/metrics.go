package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/erain9/mmsim/pkg/otel"
)

var (
	engineMetrics     *EngineMetrics
	engineMetricsOnce sync.Once
)

// EngineMetrics holds the metrics instruments for backtest monitoring
type EngineMetrics struct {
	// Duration of whole runs
	runDuration metric.Float64Histogram

	// Traffic metrics
	runsTotal   metric.Int64Counter
	barsTotal   metric.Int64Counter
	tradesTotal metric.Int64Counter

	// Error metrics
	errorTotal metric.Int64Counter
}

// NewEngineMetrics creates a new EngineMetrics instance
func NewEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	runDuration, err := meter.Float64Histogram(
		"engine.run.duration",
		metric.WithDescription("Wall-clock duration (seconds) of backtest runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runsTotal, err := meter.Int64Counter(
		"engine.runs.total",
		metric.WithDescription("Total number of backtest runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	barsTotal, err := meter.Int64Counter(
		"engine.bars.total",
		metric.WithDescription("Total number of bars simulated"),
		metric.WithUnit("{bar}"),
	)
	if err != nil {
		return nil, err
	}

	tradesTotal, err := meter.Int64Counter(
		"engine.trades.total",
		metric.WithDescription("Total number of fills produced"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return nil, err
	}

	errorTotal, err := meter.Int64Counter(
		"engine.errors.total",
		metric.WithDescription("Total number of engine errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		runDuration: runDuration,
		runsTotal:   runsTotal,
		barsTotal:   barsTotal,
		tradesTotal: tradesTotal,
		errorTotal:  errorTotal,
	}, nil
}

// GetEngineMetrics returns a singleton instance of EngineMetrics
func GetEngineMetrics() (*EngineMetrics, error) {
	var err error
	engineMetricsOnce.Do(func() {
		meter := GetMeterProvider().Meter(instrumentationName)
		engineMetrics, err = NewEngineMetrics(meter)
	})
	if err != nil {
		return nil, err
	}
	return engineMetrics, nil
}

// RecordRun records a completed run with its duration.
func (m *EngineMetrics) RecordRun(ctx context.Context, model string, duration time.Duration, bars, trades int) {
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.runsTotal.Add(ctx, 1, attrs)
	m.barsTotal.Add(ctx, int64(bars), attrs)
	m.tradesTotal.Add(ctx, int64(trades), attrs)
	m.runDuration.Record(ctx, duration.Seconds(), attrs)
}

// IncErrors increments the error counter
func (m *EngineMetrics) IncErrors(ctx context.Context, stage string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
