package redisx

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

// Dedup marks processed event ids per service.
type Dedup struct {
	RDB     *redis.Client
	Service string
	TTL     time.Duration
}

// First reports whether id is seen for the first time and marks it.
func (d *Dedup) First(ctx context.Context, id string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, id), 1, ttl).Result()
}

// Release forgets id so a later redelivery is processed again.
func (d *Dedup) Release(ctx context.Context, id string) error {
	return d.RDB.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}
