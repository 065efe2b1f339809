package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NotificationQueue is the list mail workers consume from
const NotificationQueue = "notifications:outbox"

// Publisher pushes JSON messages onto a redis list
type Publisher struct {
	rdb   *redis.Client
	queue string
}

func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	return &Publisher{rdb: rdb, queue: queue}
}

// Publish encodes msg and appends it to the queue
func (p *Publisher) Publish(ctx context.Context, msg interface{}) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return p.rdb.LPush(ctx, p.queue, body).Err()
}
