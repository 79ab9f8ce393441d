package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricewatch/crypto-alerts-backend/internal/ingest"
	"github.com/pricewatch/crypto-alerts-backend/pkg/messaging"
	"github.com/pricewatch/crypto-alerts-backend/pkg/observability"
)

// priceBand bounds the random walk for one symbol.
type priceBand struct {
	symbol string
	min    float64
	max    float64
}

var bands = []priceBand{
	{"BTC", 30000, 40000},
	{"ETH", 2000, 2500},
	{"SOL", 10, 100},
	{"ADA", 10, 100},
	{"DOT", 10, 100},
}

func main() {
	logger := observability.NewLogger("history-generator", getEnv("LOG_LEVEL", "info"))

	natsURL := getEnv("NATS_URL", "nats://localhost:4222")
	interval := 5 * time.Second
	if raw := os.Getenv("PUBLISH_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	logger.Info().Str("url", natsURL).Msg("Connecting to NATS")
	nc, err := messaging.Connect(messaging.Config{URL: natsURL})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer messaging.Close(nc)

	js, err := messaging.JetStream(nc)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create JetStream context")
	}

	if err := messaging.EnsureStream(js, messaging.PriceStream, []string{messaging.PriceSubject}, 1*time.Hour); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create PRICES stream")
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Start each symbol somewhere inside its band, then random-walk
	// within it.
	prices := make(map[string]float64, len(bands))
	for _, b := range bands {
		prices[b.symbol] = b.min + rng.Float64()*(b.max-b.min)
	}

	logger.Info().Dur("interval", interval).Msg("Publishing synthetic price updates")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("History generator stopped")
			return
		case <-ticker.C:
			now := time.Now().UTC()
			for _, b := range bands {
				price := step(rng, prices[b.symbol], b.min, b.max)
				prices[b.symbol] = price

				update := ingest.PriceUpdate{
					Symbol:    b.symbol,
					Price:     price,
					Timestamp: now,
				}
				payload, err := json.Marshal(update)
				if err != nil {
					logger.Error().Err(err).Msg("Failed to marshal price update")
					continue
				}
				if _, err := js.Publish(messaging.PriceSubject, payload); err != nil {
					logger.Error().Err(err).Str("symbol", b.symbol).Msg("Failed to publish price update")
					continue
				}
				logger.Debug().Str("symbol", b.symbol).Float64("price", price).Msg("Published price update")
			}
		}
	}
}

// step moves the price up to 2% in either direction, clamped to the band.
func step(rng *rand.Rand, price, min, max float64) float64 {
	next := price * (1 + (rng.Float64()-0.5)*0.04)
	if next < min {
		next = min
	}
	if next > max {
		next = max
	}
	return next
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
