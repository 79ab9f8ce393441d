package main

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer pool.Close()

	log.Println("Connected to database, running migrations...")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS coins (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			symbol VARCHAR(20) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			current_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`DO $$ BEGIN
			CREATE TYPE alert_kind AS ENUM (
				'PRICE_ABOVE', 'PRICE_BELOW',
				'PRICE_INCREASE', 'PRICE_DECREASE',
				'HIGH_VOLATILITY', 'TREND_CHANGE'
			);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			user_id VARCHAR(100) NOT NULL,
			crypto_symbol VARCHAR(20) NOT NULL,
			alert_type alert_kind NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			time_window INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			last_triggered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_symbol_active
			ON alerts (crypto_symbol) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user
			ON alerts (user_id)`,
		`CREATE TABLE IF NOT EXISTS coin_price_history (
			id BIGSERIAL PRIMARY KEY,
			coin_symbol VARCHAR(20) NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			observed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_symbol_time
			ON coin_price_history (coin_symbol, observed_at DESC)`,
		`CREATE TABLE IF NOT EXISTS alert_history (
			id UUID PRIMARY KEY,
			rule_id UUID NOT NULL,
			user_id VARCHAR(100) NOT NULL,
			crypto_symbol VARCHAR(20) NOT NULL,
			alert_type alert_kind NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			threshold DOUBLE PRECISION NOT NULL,
			change_percent DOUBLE PRECISION NOT NULL,
			triggered_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alert_history_rule
			ON alert_history (rule_id, triggered_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := pool.Exec(ctx, migration)
		if err != nil {
			log.Printf("WARNING: Migration failed: %v", err)
		}
	}

	log.Println("All migrations completed")
}
