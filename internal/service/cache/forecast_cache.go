package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/pkg/logger"
)

// Key identifies a result by request and data version. A new bar changes the key.
func Key(ticker string, mode models.LabelMode, horizon int, lastBar time.Time) string {
	return fmt.Sprintf("forecast:%s:%s:%d:%s", ticker, mode, horizon, lastBar.Format(models.DateLayout))
}

// ForecastCache stores results as JSON in a BytesCache.
type ForecastCache struct {
	bc  BytesCache
	ttl time.Duration
	log *logger.Logger
}

func NewForecastCache(bc BytesCache, ttl time.Duration, log *logger.Logger) *ForecastCache {
	if log == nil {
		log = logger.Nop()
	}
	return &ForecastCache{bc: bc, ttl: ttl, log: log}
}

// Get treats backend and decode errors as misses.
func (c *ForecastCache) Get(ctx context.Context, key string) (*models.ForecastResult, bool) {
	b, ok, err := c.bc.GetBytes(ctx, key)
	if err != nil {
		c.log.Warn("forecast cache get", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var r models.ForecastResult
	if err := json.Unmarshal(b, &r); err != nil {
		c.log.Warn("forecast cache decode", logger.String("key", key), logger.Error(err))
		return nil, false
	}
	return &r, true
}

func (c *ForecastCache) Set(ctx context.Context, key string, r *models.ForecastResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode forecast: %w", err)
	}
	if err := c.bc.SetBytes(ctx, key, b, c.ttl); err != nil {
		return fmt.Errorf("cache forecast: %w", err)
	}
	return nil
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.ForecastResult, bool) { return nil, false }

func (Nop) Set(context.Context, string, *models.ForecastResult) error { return nil }
