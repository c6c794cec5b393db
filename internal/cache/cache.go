package cache

import (
	"context"
)

// Entry is one cached response, keyed by canonical URL. Entries are
// immutable once stored; a URL is never reused for different content.
type Entry struct {
	Body         []byte `json:"body"`
	ContentType  string `json:"content_type"`
	CacheControl string `json:"cache_control"`
}

// Cache is the edge cache contract. Eviction policy belongs to the
// implementation; the gateway only defines what goes in and out.
type Cache interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Put(ctx context.Context, key string, entry *Entry) error
	Invalidate(ctx context.Context, key string) error
}
