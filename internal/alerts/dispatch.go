package alerts

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pricewatch/crypto-alerts-backend/pkg/observability"
)

// Dispatcher delivers a notification to the rule's owner. Delivery must
// be safe to attempt more than once for the same logical event; the
// deduplication key below collapses retries into one visible effect.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
}

// DedupKey derives the stable deduplication key for a notification from
// the identity of the triggering event.
func DedupKey(n *Notification) string {
	content := fmt.Sprintf("%s:%s:%.8f:%d", n.RuleID, n.Symbol, n.CurrentPrice, n.TriggeredAt.Unix())
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// dedupTTL keeps dedup keys long enough to cover broker redelivery of
// the same observation.
const dedupTTL = 2 * time.Minute

// DedupGuard suppresses duplicate dispatch attempts for the same
// deduplication key. Backed by Redis SETNX when available, an
// in-process map otherwise.
type DedupGuard struct {
	redis  *redis.Client
	seen   map[string]time.Time
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewDedupGuard creates a guard. A nil client falls back to in-memory
// tracking, which is sufficient for a single engine instance.
func NewDedupGuard(rdb *redis.Client, logger zerolog.Logger) *DedupGuard {
	return &DedupGuard{
		redis:  rdb,
		seen:   make(map[string]time.Time),
		logger: logger.With().Str("component", "dedup-guard").Logger(),
	}
}

// FirstDelivery claims the key and reports whether this is the first
// dispatch attempt for it. A Redis failure counts as first delivery:
// a possible duplicate notification beats a silently missed one.
func (g *DedupGuard) FirstDelivery(ctx context.Context, key string) bool {
	if g.redis != nil {
		wasSet, err := g.redis.SetNX(ctx, "notification:"+key, "1", dedupTTL).Result()
		if err != nil {
			g.logger.Error().Err(err).Msg("redis dedup check failed, allowing dispatch")
			return true
		}
		return wasSet
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	if expiry, ok := g.seen[key]; ok && now.Before(expiry) {
		return false
	}

	g.seen[key] = now.Add(dedupTTL)

	// Opportunistic cleanup of expired keys.
	for k, expiry := range g.seen {
		if now.After(expiry) {
			delete(g.seen, k)
		}
	}

	return true
}

// Fanout dispatches to every target in order and returns the first
// failure after all targets were attempted. Trigger state is not
// committed after a fanout failure, so a flaky target produces a
// possible duplicate rather than a missed alert.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, n *Notification) error {
	var firstErr error
	for _, d := range f {
		if err := d.Dispatch(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// QueueDispatcher publishes notifications to the NOTIFICATIONS JetStream
// stream. The Nats-Msg-Id header carries the deduplication key so the
// broker collapses duplicate publishes inside its dedup window.
type QueueDispatcher struct {
	js      nats.JetStreamContext
	subject string
	guard   *DedupGuard
	logger  zerolog.Logger
}

// NewQueueDispatcher creates a JetStream-backed dispatcher.
func NewQueueDispatcher(js nats.JetStreamContext, subject string, guard *DedupGuard, logger zerolog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		js:      js,
		subject: subject,
		guard:   guard,
		logger:  logger.With().Str("component", "queue-dispatcher").Logger(),
	}
}

// Dispatch publishes the notification. A suppressed duplicate is a
// success: the logical event was already delivered.
func (d *QueueDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	key := DedupKey(n)

	if !d.guard.FirstDelivery(ctx, key) {
		observability.GetCollector().Counter(observability.MetricNotificationsDuplicated).Inc()
		d.logger.Debug().
			Str("rule_id", n.RuleID).
			Str("symbol", n.Symbol).
			Str("dedup_key", key).
			Msg("duplicate notification suppressed")
		return nil
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("%w: marshal notification: %v", ErrDispatchFailed, err)
	}

	if _, err := d.js.Publish(d.subject, payload, nats.MsgId(key), nats.Context(ctx)); err != nil {
		observability.GetCollector().Counter(observability.MetricNotificationsFailed).Inc()
		return fmt.Errorf("%w: publish notification for rule %s: %v", ErrDispatchFailed, n.RuleID, err)
	}

	observability.GetCollector().Counter(observability.MetricNotificationsSent).Inc()

	d.logger.Info().
		Str("rule_id", n.RuleID).
		Str("owner_id", n.OwnerID).
		Str("symbol", n.Symbol).
		Str("kind", string(n.Kind)).
		Float64("price", n.CurrentPrice).
		Float64("change_percent", n.ChangePercent).
		Msg("notification dispatched")

	return nil
}
