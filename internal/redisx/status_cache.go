package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/redis/go-redis/v9"
	"log"
	"time"
)

// StatusCache keeps order status lookups in Redis. Every failure degrades to
// a cache miss so the store stays the source of truth.
type StatusCache struct {
	RDB *redis.Client
	TTL time.Duration
}

type cachedStatus struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

func (c *StatusCache) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return TTLStatusCache
}

func (c *StatusCache) Get(ctx context.Context, orderID string) (orders.StatusView, bool) {
	raw, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[cache] get %s: %v", orderID, err)
		}
		return orders.StatusView{}, false
	}
	var v cachedStatus
	if err := json.Unmarshal(raw, &v); err != nil {
		return orders.StatusView{}, false
	}
	return orders.StatusView{OrderID: orderID, UserID: v.UserID, Status: orders.Status(v.Status)}, true
}

func (c *StatusCache) Put(ctx context.Context, v orders.StatusView) {
	b, _ := json.Marshal(cachedStatus{Status: string(v.Status), UserID: v.UserID})
	if err := c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, v.OrderID), b, c.ttl()).Err(); err != nil {
		log.Printf("[cache] put %s: %v", v.OrderID, err)
	}
}

func (c *StatusCache) Forget(ctx context.Context, orderID string) {
	if err := c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err(); err != nil {
		log.Printf("[cache] forget %s: %v", orderID, err)
	}
}
