package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache is the default single-binary edge cache, an in-process LRU
// bounded by entry count.
type MemoryCache struct {
	entries *lru.Cache[string, *Entry]
}

func NewMemoryCache(maxEntries int) (*MemoryCache, error) {
	entries, err := lru.New[string, *Entry](maxEntries)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{entries: entries}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Entry, bool) {
	return c.entries.Get(key)
}

func (c *MemoryCache) Put(_ context.Context, key string, entry *Entry) error {
	c.entries.Add(key, entry)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.entries.Remove(key)
	return nil
}
