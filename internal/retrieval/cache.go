package retrieval

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedSearcher is a read-through Redis cache in front of a Searcher.
// Cache faults are swallowed: a broken cache degrades to the backend,
// never to an error.
type CachedSearcher struct {
	inner Searcher
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedSearcher wraps a searcher with a Redis result cache.
func NewCachedSearcher(inner Searcher, rdb *redis.Client, ttl time.Duration) *CachedSearcher {
	return &CachedSearcher{inner: inner, rdb: rdb, ttl: ttl}
}

// Search satisfies Searcher.
func (c *CachedSearcher) Search(ctx context.Context, terms []string, limit int) ([]Item, error) {
	key := cacheKey(terms, limit)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var items []Item
		if json.Unmarshal(data, &items) == nil {
			return items, nil
		}
	}

	items, err := c.inner.Search(ctx, terms, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		c.rdb.Set(ctx, key, data, c.ttl)
	}
	return items, nil
}

func cacheKey(terms []string, limit int) string {
	return "retrieval:" + strings.Join(terms, "+") + ":" + strconv.Itoa(limit)
}
