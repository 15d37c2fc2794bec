package sturdyc

import (
	"context"
	"errors"
	"time"

	sc "github.com/viccon/sturdyc"

	pr "github.com/unkn0wn-root/methodcache/provider"
)

// Provider is a sharded in-process store with percentage-based eviction.
// sturdyc has no per-entry TTL; entries live for Config.TTL.
type Provider struct {
	c *sc.Client[[]byte]
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

func New(cfg Config) (*Provider, error) {
	if cfg.Capacity <= 0 || cfg.TTL <= 0 {
		return nil, errors.New("sturdyc: invalid config")
	}
	if cfg.NumShards <= 0 {
		cfg.NumShards = 64
	}
	if cfg.EvictionPercentage <= 0 {
		cfg.EvictionPercentage = 10
	}
	var opts []sc.Option
	if cfg.EvictionInterval > 0 {
		opts = append(opts, sc.WithEvictionInterval(cfg.EvictionInterval))
	}
	return &Provider{
		c: sc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage, opts...),
	}, nil
}

func Engine(cfg Config) pr.Factory {
	return func(pr.Settings) (pr.Provider, error) { return New(cfg) }
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok || v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	p.c.Set(key, value)
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Delete(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error { return nil }
