package redisx

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type Broadcaster struct {
	RDB redis.Cmdable
}

func (b *Broadcaster) Broadcast(ctx context.Context, channel string, payload []byte) error {
	return b.RDB.Publish(ctx, channel, payload).Err()
}
