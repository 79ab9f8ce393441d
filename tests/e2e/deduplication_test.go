package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// TestNotificationDeduplication verifies that duplicate dispatches for
// the same triggering event collapse to one visible notification, at
// both the Redis guard and the JetStream broker.
func TestNotificationDeduplication(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	redisURL := getEnv("REDIS_URL", "localhost:6379")
	natsURL := getEnv("NATS_URL", "nats://localhost:4222")

	rdb := redis.NewClient(&redis.Options{Addr: redisURL})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("connect to Redis: %v", err)
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		t.Fatalf("connect to NATS: %v", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		t.Fatalf("JetStream context: %v", err)
	}

	dedupKey := "notification:e2e-dedup-test"
	rdb.Del(ctx, dedupKey)
	defer rdb.Del(ctx, dedupKey)

	t.Run("RedisGuard_FirstClaimWins", func(t *testing.T) {
		wasSet, err := rdb.SetNX(ctx, dedupKey, "1", 2*time.Minute).Result()
		if err != nil {
			t.Fatalf("SetNX: %v", err)
		}
		if !wasSet {
			t.Fatal("first claim should succeed")
		}

		wasSet, err = rdb.SetNX(ctx, dedupKey, "1", 2*time.Minute).Result()
		if err != nil {
			t.Fatalf("SetNX duplicate: %v", err)
		}
		if wasSet {
			t.Fatal("duplicate claim should be blocked")
		}
	})

	t.Run("RedisGuard_TTL", func(t *testing.T) {
		ttl, err := rdb.TTL(ctx, dedupKey).Result()
		if err != nil {
			t.Fatalf("TTL: %v", err)
		}
		if ttl <= 0 || ttl > 2*time.Minute+time.Second {
			t.Fatalf("expected TTL near 2m, got %v", ttl)
		}
	})

	t.Run("Broker_MsgIdCollapsesDuplicates", func(t *testing.T) {
		notification := map[string]interface{}{
			"id":            "e2e-dedup-n1",
			"rule_id":       "e2e-dedup-rule",
			"symbol":        "DEDUPTEST",
			"current_price": 51000.0,
			"triggered_at":  time.Now().UTC().Format(time.RFC3339),
		}
		payload, _ := json.Marshal(notification)

		msgID := "e2e-dedup-msg-1"

		before := streamMessages(t, js, "NOTIFICATIONS")

		// The same Nats-Msg-Id twice inside the dedup window.
		if _, err := js.Publish("alerts.notifications", payload, nats.MsgId(msgID)); err != nil {
			t.Fatalf("publish first: %v", err)
		}
		if _, err := js.Publish("alerts.notifications", payload, nats.MsgId(msgID)); err != nil {
			t.Fatalf("publish duplicate: %v", err)
		}

		after := streamMessages(t, js, "NOTIFICATIONS")
		if after-before != 1 {
			t.Fatalf("stream grew by %d messages, expected 1", after-before)
		}
	})
}

func streamMessages(t *testing.T, js nats.JetStreamContext, stream string) uint64 {
	info, err := js.StreamInfo(stream)
	if err != nil {
		t.Fatalf("stream info for %s: %v", stream, err)
	}
	return info.State.Msgs
}
