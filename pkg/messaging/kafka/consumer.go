package kafka

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/erain9/mmsim/pkg/db/queue"
	"github.com/erain9/mmsim/pkg/messaging"
)

// SetupConsumer initializes and starts the Kafka consumer for run records
func SetupConsumer(ctx context.Context, logger zerolog.Logger) (*queue.QueueRunConsumer, error) {
	consumer, err := queue.NewQueueRunConsumer()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to create Kafka consumer - continuing without Kafka support")
		return nil, err
	}

	go func() {
		logger.Info().Msg("Starting Kafka consumer")
		err := consumer.ConsumeRunRecords(func(rec *messaging.RunRecord) error {
			logger.Info().
				Str("run_id", rec.RunID).
				Int("bars", rec.Bars).
				Int("trades", rec.Trades).
				Str("final_equity", rec.FinalEquity).
				Str("sharpe", rec.Sharpe).
				Str("max_drawdown", rec.MaxDrawdown).
				Msg("Received run record")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	return consumer, nil
}
