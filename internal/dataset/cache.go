package dataset

import (
	"context"

	gocache "github.com/patrickmn/go-cache"

	"cteview/internal/config"
	"cteview/internal/table"
)

// Cache memoises successful loads by source key. Entries never expire; the
// cache lives and dies with its session. Failed loads are not stored, so the
// next request retries.
type Cache struct {
	loader Loader
	items  *gocache.Cache
}

// NewCache wraps loader.
func NewCache(loader Loader) *Cache {
	return &Cache{
		loader: loader,
		items:  gocache.New(gocache.NoExpiration, 0),
	}
}

// Load returns the cached table for src, loading it on first use.
func (c *Cache) Load(ctx context.Context, src config.Source) (*table.Table, error) {
	key := src.Key()
	if v, ok := c.items.Get(key); ok {
		return v.(*table.Table), nil
	}

	t, err := c.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	c.items.Set(key, t, gocache.NoExpiration)
	return t, nil
}

// Len reports the number of cached datasets.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Flush drops every cached dataset.
func (c *Cache) Flush() {
	c.items.Flush()
}

var _ Loader = (*Cache)(nil)
