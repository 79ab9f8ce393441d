package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pricewatch/crypto-alerts-backend/internal/alerts"
	"github.com/pricewatch/crypto-alerts-backend/internal/coins"
	"github.com/pricewatch/crypto-alerts-backend/internal/history"
	"github.com/pricewatch/crypto-alerts-backend/pkg/observability"
)

// PriceUpdate is the wire shape of a price observation message from the
// price feed.
type PriceUpdate struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Evaluator is the alert evaluation entry point the loop hands each
// persisted observation to.
type Evaluator interface {
	OnPriceObservation(ctx context.Context, obs history.PriceObservation) error
}

// Loop is the boundary adapter between the price-observation source and
// the alert evaluator: validate, persist, update current price, then
// evaluate.
type Loop struct {
	history   history.Store
	coins     coins.Store
	evaluator Evaluator
	logger    zerolog.Logger
}

// NewLoop creates an ingestion loop.
func NewLoop(hist history.Store, coinStore coins.Store, evaluator Evaluator, logger zerolog.Logger) *Loop {
	return &Loop{
		history:   hist,
		coins:     coinStore,
		evaluator: evaluator,
		logger:    logger.With().Str("component", "ingestion-loop").Logger(),
	}
}

// Process handles a single observation end to end. Malformed
// observations fail with ErrInvalidObservation before anything is
// persisted; store failures wrap ErrStoreUnavailable so the source can
// redeliver.
func (l *Loop) Process(ctx context.Context, obs history.PriceObservation) error {
	if err := alerts.ValidateObservation(obs); err != nil {
		return err
	}

	if err := l.history.Record(ctx, obs); err != nil {
		return fmt.Errorf("%w: record observation: %v", alerts.ErrStoreUnavailable, err)
	}

	if err := l.coins.UpsertPrice(ctx, obs.Symbol, obs.Price, obs.ObservedAt); err != nil {
		return fmt.Errorf("%w: update current price: %v", alerts.ErrStoreUnavailable, err)
	}

	return l.evaluator.OnPriceObservation(ctx, obs)
}

// ProcessBatch handles each observation as an independent unit of work:
// a failure is reported in the matching slot and never stops the rest of
// the batch.
func (l *Loop) ProcessBatch(ctx context.Context, batch []history.PriceObservation) []error {
	results := make([]error, len(batch))
	for i, obs := range batch {
		if err := l.Process(ctx, obs); err != nil {
			results[i] = err
			l.logger.Error().
				Err(err).
				Str("symbol", obs.Symbol).
				Float64("price", obs.Price).
				Msg("failed to process observation")
		}
	}
	return results
}

// Subscribe attaches the loop to the price stream with a durable
// JetStream consumer. Garbage messages are acknowledged so the broker
// does not redeliver them; transient store failures are Nak'd for
// redelivery.
func (l *Loop) Subscribe(ctx context.Context, js nats.JetStreamContext, subject, durable string) (*nats.Subscription, error) {
	metrics := observability.GetCollector()

	sub, err := js.Subscribe(subject, func(msg *nats.Msg) {
		metrics.Counter(observability.MetricObservationsReceived).Inc()

		var update PriceUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			metrics.Counter(observability.MetricObservationsInvalid).Inc()
			l.logger.Error().Err(err).Msg("failed to unmarshal price update")
			_ = msg.Ack()
			return
		}

		obs := history.PriceObservation{
			Symbol:     update.Symbol,
			Price:      update.Price,
			ObservedAt: update.Timestamp,
		}

		stop := metrics.Timer(observability.MetricEvaluationDuration)
		err := l.Process(ctx, obs)
		stop()

		switch {
		case err == nil:
			_ = msg.Ack()
		case errors.Is(err, alerts.ErrInvalidObservation):
			// Redelivery cannot fix a malformed observation.
			metrics.Counter(observability.MetricObservationsInvalid).Inc()
			l.logger.Warn().
				Err(err).
				Str("symbol", update.Symbol).
				Msg("dropping invalid observation")
			_ = msg.Ack()
		default:
			metrics.Counter(observability.MetricObservationsFailed).Inc()
			l.logger.Error().
				Err(err).
				Str("symbol", update.Symbol).
				Msg("observation processing failed, requesting redelivery")
			_ = msg.Nak()
		}
	}, nats.Durable(durable), nats.ManualAck(), nats.AckExplicit(), nats.DeliverAll())
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}

	l.logger.Info().Str("subject", subject).Str("durable", durable).Msg("subscribed to price stream")
	return sub, nil
}
