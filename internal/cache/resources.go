package cache

import (
	"context"
	"encoding/json"
	"time"

	"tariffgate/internal/shipox"
	"tariffgate/internal/tariff"
)

const (
	keyCities     = "cities"
	keyWarehouses = "warehouses"
	keyLockers    = "lockers"
)

// ReferenceClient caches the slow-changing lists (cities, warehouses, lockers)
// in process memory. Price quotes always go upstream.
type ReferenceClient struct {
	client shipox.ResourceClient
	cache  *TTLCache[*shipox.Collection]
	ttl    time.Duration
}

// NewReferenceClient wraps client; a non-positive ttl returns client unchanged
func NewReferenceClient(client shipox.ResourceClient, ttl time.Duration) shipox.ResourceClient {
	if ttl <= 0 {
		return client
	}
	return &ReferenceClient{
		client: client,
		cache:  NewTTLCache[*shipox.Collection](),
		ttl:    ttl,
	}
}

func (c *ReferenceClient) Cities(ctx context.Context) (*shipox.Collection, error) {
	return c.cached(ctx, keyCities, c.client.Cities)
}

func (c *ReferenceClient) Warehouses(ctx context.Context) (*shipox.Collection, error) {
	return c.cached(ctx, keyWarehouses, c.client.Warehouses)
}

func (c *ReferenceClient) Lockers(ctx context.Context) (*shipox.Collection, error) {
	return c.cached(ctx, keyLockers, c.client.Lockers)
}

func (c *ReferenceClient) Prices(ctx context.Context, query tariff.Query) (json.RawMessage, error) {
	return c.client.Prices(ctx, query)
}

// Invalidate drops every cached list
func (c *ReferenceClient) Invalidate() {
	c.cache.Clear()
}

// cached returns a fresh entry or fetches and stores one; failures are not cached
func (c *ReferenceClient) cached(ctx context.Context, key string, fetch func(context.Context) (*shipox.Collection, error)) (*shipox.Collection, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.Set(key, v, c.ttl)
	return v, nil
}
