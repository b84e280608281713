package cache

import (
	"context"
	"time"
)

// LayeredCache implements a two-level BytesCache: in-process L1 in front of a shared L2.
type LayeredCache struct {
	l1    *TTLCache
	l2    BytesCache
	l1TTL time.Duration
}

// NewLayeredCache keeps L1 entries for at most l1TTL; zero means the caller's TTL.
func NewLayeredCache(l2 BytesCache, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{l1: NewTTLCache(), l2: l2, l1TTL: l1TTL}
}

func (c *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := c.l1.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := c.l2.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = c.l1.SetBytes(ctx, key, b, c.l1TTL)
	return b, true, nil
}

// SetBytes writes through: L2 first, then L1.
func (c *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.l2.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	l1TTL := ttl
	if c.l1TTL > 0 && (l1TTL <= 0 || c.l1TTL < l1TTL) {
		l1TTL = c.l1TTL
	}
	return c.l1.SetBytes(ctx, key, value, l1TTL)
}
