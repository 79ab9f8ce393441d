package coins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const queryTimeout = 5 * time.Second

// PostgresStore persists tracked coins in the coins table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a coin store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "coin-store").Logger(),
	}
}

// UpsertPrice writes the current price, inserting the coin on first
// sight. The symbol doubles as the display name until one is set.
func (s *PostgresStore) UpsertPrice(ctx context.Context, symbol string, price float64, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO coins (symbol, name, current_price, last_updated, is_active)
		VALUES ($1, $1, $2, $3, true)
		ON CONFLICT (symbol) DO UPDATE
		SET current_price = EXCLUDED.current_price,
		    last_updated = EXCLUDED.last_updated
	`

	if _, err := s.pool.Exec(ctx, query, symbol, price, at); err != nil {
		return fmt.Errorf("upsert price for %s: %w", symbol, err)
	}

	return nil
}

// FindBySymbol returns the coin for a symbol, or nil when untracked.
func (s *PostgresStore) FindBySymbol(ctx context.Context, symbol string) (*Coin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, symbol, name, current_price, last_updated, is_active
		FROM coins
		WHERE symbol = $1
	`

	var coin Coin
	err := s.pool.QueryRow(ctx, query, symbol).Scan(
		&coin.ID, &coin.Symbol, &coin.Name, &coin.CurrentPrice, &coin.LastUpdated, &coin.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find coin %s: %w", symbol, err)
	}

	return &coin, nil
}

// FindAll returns every tracked coin.
func (s *PostgresStore) FindAll(ctx context.Context) ([]Coin, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, name, current_price, last_updated, is_active
		FROM coins
		ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("query coins: %w", err)
	}
	defer rows.Close()

	var result []Coin
	for rows.Next() {
		var coin Coin
		if err := rows.Scan(&coin.ID, &coin.Symbol, &coin.Name, &coin.CurrentPrice, &coin.LastUpdated, &coin.IsActive); err != nil {
			return nil, fmt.Errorf("scan coin: %w", err)
		}
		result = append(result, coin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coins: %w", err)
	}

	return result, nil
}
