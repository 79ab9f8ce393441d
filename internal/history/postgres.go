package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// queryTimeout bounds every store call so an unavailable database
// surfaces as a single failure instead of a hung evaluation.
const queryTimeout = 5 * time.Second

// PostgresStore persists price observations in the coin_price_history
// table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a price history store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "history-store").Logger(),
	}
}

// Record appends an observation row.
func (s *PostgresStore) Record(ctx context.Context, obs PriceObservation) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO coin_price_history (coin_symbol, price, observed_at)
		VALUES ($1, $2, $3)
	`

	if _, err := s.pool.Exec(ctx, query, obs.Symbol, obs.Price, obs.ObservedAt); err != nil {
		return fmt.Errorf("record observation for %s: %w", obs.Symbol, err)
	}

	return nil
}

// FindRange returns observations in [from, to], newest first.
func (s *PostgresStore) FindRange(ctx context.Context, symbol string, from, to time.Time) ([]PriceObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT coin_symbol, price, observed_at
		FROM coin_price_history
		WHERE coin_symbol = $1
		AND observed_at BETWEEN $2 AND $3
		ORDER BY observed_at DESC
	`

	rows, err := s.pool.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var observations []PriceObservation
	for rows.Next() {
		var obs PriceObservation
		if err := rows.Scan(&obs.Symbol, &obs.Price, &obs.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history for %s: %w", symbol, err)
	}

	return observations, nil
}

// Latest returns up to limit most recent observations, newest first.
func (s *PostgresStore) Latest(ctx context.Context, symbol string, limit int) ([]PriceObservation, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT coin_symbol, price, observed_at
		FROM coin_price_history
		WHERE coin_symbol = $1
		ORDER BY observed_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query latest history for %s: %w", symbol, err)
	}
	defer rows.Close()

	var observations []PriceObservation
	for rows.Next() {
		var obs PriceObservation
		if err := rows.Scan(&obs.Symbol, &obs.Price, &obs.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		observations = append(observations, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest history for %s: %w", symbol, err)
	}

	return observations, nil
}
