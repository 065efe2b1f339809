package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const paymentEventPrefix = "payment:event:"

// EventDeduper claims webhook event ids with SETNX
type EventDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewEventDeduper(rdb *redis.Client, ttl time.Duration) *EventDeduper {
	return &EventDeduper{rdb: rdb, ttl: ttl}
}

func (d *EventDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.rdb.SetNX(ctx, paymentEventPrefix+key, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
}

func (d *EventDeduper) Release(ctx context.Context, key string) error {
	return d.rdb.Del(ctx, paymentEventPrefix+key).Err()
}
