package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Kambolo/Picksy/logging"
	"github.com/Kambolo/Picksy/room"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
)

// CachedCatalog is a cache-aside layer in front of the catalog storage.
// Categories and sets are immutable from this service's point of view, so
// a short TTL only exists to pick up catalog-service edits eventually.
type CachedCatalog struct {
	Redis *redis.Client
	Next  CatalogStorage
	TTL   time.Duration
}

func NewCachedCatalog(client *redis.Client, next CatalogStorage, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedCatalog{Redis: client, Next: next, TTL: ttl}
}

func (c *CachedCatalog) GetCategory(ctx context.Context, id int64) (*room.Category, error) {
	key := fmt.Sprintf("catalog:category:%d", id)

	if payload, err := c.Redis.Get(ctx, key).Result(); err == nil {
		var cat room.Category
		if err := json.Unmarshal([]byte(payload), &cat); err == nil {
			return &cat, nil
		}
		logging.Log.Warnf("CATALOG: corrupt cache entry %s, falling through", key)
	} else if err != redis.Nil {
		// Cache being down must not take the catalog with it.
		logging.Log.Warnf("CATALOG: cache read for %s failed: %v", key, err)
	}

	cat, err := c.Next.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(cat); err == nil {
		if err := c.Redis.Set(ctx, key, payload, c.TTL).Err(); err != nil {
			logging.Log.Warnf("CATALOG: cache write for %s failed: %v", key, err)
		}
	}
	return cat, nil
}

func (c *CachedCatalog) GetSet(ctx context.Context, id int64) (*SetRecord, error) {
	key := fmt.Sprintf("catalog:set:%d", id)

	if payload, err := c.Redis.Get(ctx, key).Result(); err == nil {
		var set SetRecord
		if err := json.Unmarshal([]byte(payload), &set); err == nil {
			return &set, nil
		}
		logging.Log.Warnf("CATALOG: corrupt cache entry %s, falling through", key)
	} else if err != redis.Nil {
		logging.Log.Warnf("CATALOG: cache read for %s failed: %v", key, err)
	}

	set, err := c.Next.GetSet(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(set); err == nil {
		if err := c.Redis.Set(ctx, key, payload, c.TTL).Err(); err != nil {
			logging.Log.Warnf("CATALOG: cache write for %s failed: %v", key, err)
		}
	}
	return set, nil
}
