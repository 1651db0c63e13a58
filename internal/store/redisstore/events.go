// Package redisstore keeps webhook idempotency keys in Redis.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/store"
)

const DefaultEventTTL = 72 * time.Hour

type EventLog struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventLog(rdb *redis.Client, ttl time.Duration) *EventLog {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &EventLog{rdb: rdb, ttl: ttl}
}

// MarkProcessed uses SETNX so concurrent deliveries of one event id race on
// a single key and exactly one wins.
func (l *EventLog) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	key := fmt.Sprintf("webhook-event:%s", eventID)
	ok, err := l.rdb.SetNX(ctx, key, eventType, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (l *EventLog) Forget(ctx context.Context, eventID string) error {
	return l.rdb.Del(ctx, fmt.Sprintf("webhook-event:%s", eventID)).Err()
}

var _ store.EventLog = (*EventLog)(nil)
