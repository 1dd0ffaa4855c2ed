package cache

import (
	"context"
	"sync"
	"time"

	"valuta-service/pkg/logger"
)

type entry struct {
	value     any
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache guarded by a RWMutex.
type MemoryCache struct {
	cacheMap map[string]entry
	mutex    sync.RWMutex
	log      *logger.Logger
	now      func() time.Time
}

func NewMemoryCache(log *logger.Logger) *MemoryCache {
	return &MemoryCache{
		cacheMap: make(map[string]entry),
		log:      log,
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	e, found := c.cacheMap[key]
	if !found {
		c.log.Debug("Cache miss", "key", key)
		return nil, false
	}

	if !c.now().Before(e.expiresAt) {
		c.log.Debug("Cache entry expired", "key", key)
		return nil, false
	}

	c.log.Debug("Cache hit", "key", key)
	return e.value, true
}

// Set stores value under key. A non-positive ttl is a no-op.
func (c *MemoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cacheMap[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.log.Debug("Cache set", "key", key, "ttl", ttl)

	return nil
}

func (c *MemoryCache) ClearExpired(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	expiredKeys := make([]string, 0)

	for key, e := range c.cacheMap {
		if !now.Before(e.expiresAt) {
			expiredKeys = append(expiredKeys, key)
		}
	}

	for _, key := range expiredKeys {
		delete(c.cacheMap, key)
		c.log.Debug("Removed expired cache entry", "key", key)
	}

	c.log.Info("Cleared expired cache entries", "count", len(expiredKeys))
	return nil
}

func (c *MemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cacheMap)
}
