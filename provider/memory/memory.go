// Package memory is the built-in in-process engine backing the default cache.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	pr "github.com/unkn0wn-root/methodcache/provider"
)

type Config struct {
	// MaxItems caps the number of entries; 0 = unlimited.
	MaxItems uint64
}

// Memory stores entries in a ttlcache with per-entry expiry.
// Reads never extend an entry's lifetime.
type Memory struct {
	c         *ttlcache.Cache[string, []byte]
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	mu        sync.Mutex
}

var (
	_ pr.Provider = (*Memory)(nil)
	_ pr.Starter  = (*Memory)(nil)
)

func New(cfg Config) *Memory {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	}
	if cfg.MaxItems > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](cfg.MaxItems))
	}
	return &Memory{c: ttlcache.New[string, []byte](opts...)}
}

// Engine returns a factory for provisioning memory caches by config.
func Engine(cfg Config) pr.Factory {
	return func(pr.Settings) (pr.Provider, error) {
		return New(cfg), nil
	}
}

// Start launches the expired-entry janitor.
func (p *Memory) Start(context.Context) error {
	p.startOnce.Do(func() {
		p.mu.Lock()
		p.started = true
		p.mu.Unlock()
		go p.c.Start()
	})
	return nil
}

func (p *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	it := p.c.Get(key)
	if it == nil || it.IsExpired() {
		return nil, false, nil
	}
	return it.Value(), true, nil
}

// ttl<=0 => no expiry.
func (p *Memory) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	p.c.Set(key, value, ttl)
	return true, nil
}

func (p *Memory) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Memory) Len() int { return p.c.Len() }

// Close stops the janitor (if started) and drops all entries.
func (p *Memory) Close(_ context.Context) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		started := p.started
		p.mu.Unlock()
		if started {
			p.c.Stop()
		}
		p.c.DeleteAll()
	})
	return nil
}
