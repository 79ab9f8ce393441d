package coins

import (
	"context"
	"time"
)

// Coin is a tracked asset with its most recently observed price.
type Coin struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Name         string    `json:"name"`
	CurrentPrice float64   `json:"current_price"`
	LastUpdated  time.Time `json:"last_updated"`
	IsActive     bool      `json:"is_active"`
}

// Store maintains the asset registry and its current-price records.
type Store interface {
	// UpsertPrice sets the current price for a symbol, registering the
	// coin if it is not tracked yet.
	UpsertPrice(ctx context.Context, symbol string, price float64, at time.Time) error

	FindBySymbol(ctx context.Context, symbol string) (*Coin, error)

	FindAll(ctx context.Context) ([]Coin, error)
}
