package methodcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pr "github.com/unkn0wn-root/methodcache/provider"
)

// SetCostFunc sizes an entry for cost-aware providers (ristretto).
type SetCostFunc func(storageKey string, raw []byte) int64

func unitCost(string, []byte) int64 { return 1 }

// Client is one provisioned cache backend. It scopes keys by partition and
// segment and refuses traffic until Start succeeded.
type Client struct {
	name      string
	partition string
	provider  pr.Provider
	cost      SetCostFunc

	ready     atomic.Bool
	startOnce sync.Once
	startErr  error
}

func newClient(name, partition string, p pr.Provider, cost SetCostFunc) *Client {
	if cost == nil {
		cost = unitCost
	}
	return &Client{name: name, partition: partition, provider: p, cost: cost}
}

// Name is the cache name from CacheConfig.
func (c *Client) Name() string { return c.name }

// Partition is the prefix of every key this client stores.
func (c *Client) Partition() string { return c.partition }

// IsReady reports whether Start succeeded and Stop has not been called.
func (c *Client) IsReady() bool { return c.ready.Load() }

// Start runs the provider's start step once. Later calls return the first result.
func (c *Client) Start(ctx context.Context) error {
	c.startOnce.Do(func() {
		if s, ok := c.provider.(pr.Starter); ok {
			if err := s.Start(ctx); err != nil {
				c.startErr = fmt.Errorf("methodcache: start cache %q: %w", c.name, err)
				return
			}
		}
		c.ready.Store(true)
	})
	return c.startErr
}

// Stop marks the client unusable and closes the provider.
func (c *Client) Stop(ctx context.Context) error {
	c.ready.Store(false)
	return c.provider.Close(ctx)
}

func (c *Client) storageKey(segment, key string) string {
	return c.partition + ":" + segment + ":" + key
}

// Get reads segment:key. It returns ErrNotStarted before Start succeeded.
func (c *Client) Get(ctx context.Context, segment, key string) ([]byte, bool, error) {
	if !c.IsReady() {
		return nil, false, ErrNotStarted
	}
	return c.provider.Get(ctx, c.storageKey(segment, key))
}

// Set writes raw under segment:key; ok=false means the provider rejected it.
func (c *Client) Set(ctx context.Context, segment, key string, raw []byte, ttl time.Duration) (bool, error) {
	if !c.IsReady() {
		return false, ErrNotStarted
	}
	sk := c.storageKey(segment, key)
	return c.provider.Set(ctx, sk, raw, c.cost(sk, raw), ttl)
}

// Del removes segment:key.
func (c *Client) Del(ctx context.Context, segment, key string) error {
	if !c.IsReady() {
		return ErrNotStarted
	}
	return c.provider.Del(ctx, c.storageKey(segment, key))
}
