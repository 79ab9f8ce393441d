package history

import (
	"context"
	"time"
)

// PriceObservation is one recorded price sample for an asset. Rows are
// append-only; the engine never mutates or deletes them.
type PriceObservation struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// Store is the historical price store consumed by the alert evaluator
// and the ingestion loop.
type Store interface {
	// Record appends an observation. Duplicate observations are stored
	// as duplicate rows; at-least-once delivery upstream makes them
	// possible and they only add a repeated sample to the window.
	Record(ctx context.Context, obs PriceObservation) error

	// FindRange returns observations with ObservedAt in [from, to],
	// ordered newest first.
	FindRange(ctx context.Context, symbol string, from, to time.Time) ([]PriceObservation, error)

	// Latest returns up to limit most recent observations, newest first.
	Latest(ctx context.Context, symbol string, limit int) ([]PriceObservation, error)
}

// Prices extracts the price series from observations, preserving order.
func Prices(observations []PriceObservation) []float64 {
	if len(observations) == 0 {
		return nil
	}
	prices := make([]float64, len(observations))
	for i, obs := range observations {
		prices[i] = obs.Price
	}
	return prices
}
