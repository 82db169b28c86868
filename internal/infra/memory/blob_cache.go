package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"codeconnect/internal/app"
	"golang.org/x/sync/singleflight"
)

// BlobCache is a read-through TTL cache in front of a remote app.BlobStore
// (Redis, Postgres). Reads served from cache avoid a round trip per
// collection access; writes go straight through and refresh the cached
// entry, so a single-process deployment never reads stale data.
type BlobCache struct {
	backing app.BlobStore
	ttl     time.Duration
	clock   func() time.Time
	sf      singleflight.Group
	rnd     *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBlob
}

type cachedBlob struct {
	data      []byte
	expiresAt time.Time
}

func NewBlobCache(backing app.BlobStore, ttl time.Duration) *BlobCache {
	return &BlobCache{
		backing: backing,
		ttl:     ttl,
		clock:   time.Now,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:   make(map[string]cachedBlob),
	}
}

func (c *BlobCache) Read(ctx context.Context, key string) ([]byte, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return append([]byte(nil), entry.data...), nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[key]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.data, nil
		}
		c.mu.RUnlock()

		data, err := c.backing.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		c.storeEntry(key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), result.([]byte)...), nil
}

func (c *BlobCache) Write(ctx context.Context, key string, data []byte) error {
	if err := c.backing.Write(ctx, key, data); err != nil {
		return err
	}
	c.storeEntry(key, data)
	return nil
}

func (c *BlobCache) Delete(ctx context.Context, key string) error {
	if err := c.backing.Delete(ctx, key); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()
	return nil
}

func (c *BlobCache) storeEntry(key string, data []byte) {
	c.mu.Lock()
	c.cache[key] = cachedBlob{
		data:      append([]byte(nil), data...),
		expiresAt: c.clock().Add(c.ttlWithJitter()),
	}
	c.mu.Unlock()
}

func (c *BlobCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
