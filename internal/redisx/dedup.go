package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids per service.
type Deduper struct {
	RDB     redis.Cmdable
	Service string
}

func (d *Deduper) key(eventID string) string { return fmt.Sprintf(KeyDedup, d.Service, eventID) }

func (d *Deduper) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.RDB, d.key(eventID))
}

// Mark records eventID as processed. Call it only after the event's effect
// succeeded.
func (d *Deduper) Mark(ctx context.Context, eventID string) error {
	return d.RDB.Set(ctx, d.key(eventID), "1", TTLDedup).Err()
}
