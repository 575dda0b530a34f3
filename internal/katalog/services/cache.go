package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/c14220110/poliklinik-treatment/internal/katalog/models"
)

// CachedLookup membungkus Lookup dengan cache Redis read-through.
// Redis yang tidak tersedia tidak pernah menggagalkan lookup; inner tetap ditanya.
type CachedLookup struct {
	inner  Lookup
	client *redis.Client
	kind   models.Kind
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedLookup(inner Lookup, client *redis.Client, kind models.Kind, ttl time.Duration, logger *zap.Logger) *CachedLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedLookup{inner: inner, client: client, kind: kind, ttl: ttl, logger: logger}
}

func cacheKey(kind models.Kind, code string) string {
	return fmt.Sprintf("katalog:%s:%s", kind, code)
}

func (c *CachedLookup) LookupByCode(ctx context.Context, code string) (models.Record, bool, error) {
	if c.client == nil {
		return c.inner.LookupByCode(ctx, code)
	}

	key := cacheKey(c.kind, code)
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var rec models.Record
		if jsonErr := json.Unmarshal(raw, &rec); jsonErr == nil {
			return rec, true, nil
		}
		c.logger.Warn("cache katalog rusak, dibaca ulang dari database", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("redis get gagal", zap.String("key", key), zap.Error(err))
	}

	rec, ok, err := c.inner.LookupByCode(ctx, code)
	if err != nil || !ok {
		return rec, ok, err
	}

	payload, err := json.Marshal(rec)
	if err == nil {
		if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
			c.logger.Warn("redis set gagal", zap.String("key", key), zap.Error(setErr))
		}
	}
	return rec, true, nil
}
