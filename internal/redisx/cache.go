package redisx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DashboardCache keeps rendered dashboard responses for a short TTL.
type DashboardCache struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (c *DashboardCache) Get(ctx context.Context, hotelID string) ([]byte, bool, error) {
	b, err := c.RDB.Get(ctx, fmt.Sprintf(KeyDashboard, hotelID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *DashboardCache) Set(ctx context.Context, hotelID string, body []byte) error {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = TTLDashboard
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyDashboard, hotelID), body, ttl).Err()
}

// Delete drops the cached body so the next read renders fresh metrics.
func (c *DashboardCache) Delete(ctx context.Context, hotelID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyDashboard, hotelID)).Err()
}
