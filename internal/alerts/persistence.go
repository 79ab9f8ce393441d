package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	// batchSize is the maximum number of notifications to batch before
	// flushing to the database.
	batchSize = 50
	// flushInterval is how often the queue is flushed regardless of size.
	flushInterval = 5 * time.Second
)

// HistoryPersister writes dispatched notifications to the alert_history
// table in batches. The audit trail is best-effort: a failed flush is
// logged, never surfaced to the evaluation path.
type HistoryPersister struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	queue  []*Notification
	mu     sync.Mutex
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewHistoryPersister creates a persister and starts its background
// flusher.
func NewHistoryPersister(pool *pgxpool.Pool, logger zerolog.Logger) *HistoryPersister {
	p := &HistoryPersister{
		pool:   pool,
		logger: logger.With().Str("component", "history-persister").Logger(),
		queue:  make([]*Notification, 0, batchSize),
		ticker: time.NewTicker(flushInterval),
		done:   make(chan struct{}),
	}

	p.wg.Add(1)
	go p.flusher()

	return p
}

// Save queues a notification for the next batch flush.
func (p *HistoryPersister) Save(n *Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = append(p.queue, n)

	if len(p.queue) >= batchSize {
		p.flushLocked()
	}
}

func (p *HistoryPersister) flusher() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ticker.C:
			p.mu.Lock()
			p.flushLocked()
			p.mu.Unlock()

		case <-p.done:
			p.mu.Lock()
			p.flushLocked()
			p.mu.Unlock()
			return
		}
	}
}

// flushLocked writes the current batch; the caller must hold the mutex.
func (p *HistoryPersister) flushLocked() {
	if len(p.queue) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notifications := make([]*Notification, len(p.queue))
	copy(notifications, p.queue)
	p.queue = p.queue[:0]

	if err := p.writeBatch(ctx, notifications); err != nil {
		p.logger.Error().Err(err).Int("count", len(notifications)).Msg("failed to persist alert history")
		return
	}

	p.logger.Debug().Int("count", len(notifications)).Msg("persisted alert history batch")
}

func (p *HistoryPersister) writeBatch(ctx context.Context, notifications []*Notification) error {
	query := `
		INSERT INTO alert_history (
			id, rule_id, user_id, crypto_symbol, alert_type,
			price, threshold, change_percent, triggered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(query,
			n.ID, n.RuleID, n.OwnerID, n.Symbol, n.Kind,
			n.CurrentPrice, n.Threshold, n.ChangePercent, n.TriggeredAt,
		)
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range notifications {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert alert history row: %w", err)
		}
	}

	return nil
}

// Close stops the flusher and writes any queued notifications.
func (p *HistoryPersister) Close() error {
	close(p.done)
	p.ticker.Stop()
	p.wg.Wait()
	return nil
}
