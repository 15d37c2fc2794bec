// Package config builds cache configs from YAML.
//
//	caches:
//	  - name: _default
//	    engine: memory
//	    memory: {max_items: 10000}
//	  - name: shared
//	    engine: redis
//	    shared: true
//	    partition: app
//	    redis: {addr: "localhost:6379", db: 1}
//	  - name: hot
//	    engine: ristretto
//	    ristretto: {num_counters: 100000, max_cost: 10000, buffer_items: 64}
//
// Durations use Go syntax ("30s", "5m").
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/methodcache"
	gen "github.com/unkn0wn-root/methodcache/genstore"
	pr "github.com/unkn0wn-root/methodcache/provider"
	"github.com/unkn0wn-root/methodcache/provider/bigcache"
	"github.com/unkn0wn-root/methodcache/provider/memory"
	rdp "github.com/unkn0wn-root/methodcache/provider/redis"
	"github.com/unkn0wn-root/methodcache/provider/ristretto"
	"github.com/unkn0wn-root/methodcache/provider/sturdyc"
)

var ErrUnknownEngine = errors.New("config: unknown engine")

type File struct {
	StartTimeout time.Duration `yaml:"start_timeout"`
	Caches       []Cache       `yaml:"caches"`
}

type Cache struct {
	Name      string `yaml:"name"`
	Engine    string `yaml:"engine"`
	Shared    bool   `yaml:"shared"`
	Partition string `yaml:"partition"`

	Memory    *Memory    `yaml:"memory"`
	Ristretto *Ristretto `yaml:"ristretto"`
	BigCache  *BigCache  `yaml:"bigcache"`
	Redis     *Redis     `yaml:"redis"`
	Sturdyc   *Sturdyc   `yaml:"sturdyc"`
}

type Memory struct {
	MaxItems uint64 `yaml:"max_items"`
}

type Ristretto struct {
	NumCounters int64 `yaml:"num_counters"`
	MaxCost     int64 `yaml:"max_cost"`
	BufferItems int64 `yaml:"buffer_items"`
	Metrics     bool  `yaml:"metrics"`
	SyncWrites  bool  `yaml:"sync_writes"`
}

type BigCache struct {
	LifeWindow         time.Duration `yaml:"life_window"`
	CleanWindow        time.Duration `yaml:"clean_window"`
	MaxEntriesInWindow int           `yaml:"max_entries_in_window"`
	MaxEntrySize       int           `yaml:"max_entry_size"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// SharedGenerations keeps drop generations in Redis too, so drops reach
	// every replica.
	SharedGenerations bool          `yaml:"shared_generations"`
	GenerationTTL     time.Duration `yaml:"generation_ttl"`
}

type Sturdyc struct {
	Capacity           int           `yaml:"capacity"`
	NumShards          int           `yaml:"num_shards"`
	TTL                time.Duration `yaml:"ttl"`
	EvictionPercentage int           `yaml:"eviction_percentage"`
	EvictionInterval   time.Duration `yaml:"eviction_interval"`
}

// Parse decodes a config document. Unknown fields are rejected.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("config: decode: %w", err)
	}
	return f, nil
}

// LoadFile parses path and builds methodcache options from it.
func LoadFile(path string) (methodcache.Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return methodcache.Options{}, fmt.Errorf("config: %w", err)
	}
	f, err := Parse(bytes.NewReader(b))
	if err != nil {
		return methodcache.Options{}, err
	}
	return f.Options()
}

// Options converts the file into methodcache options. Engines are not built
// here; each factory runs when New provisions its cache.
func (f File) Options() (methodcache.Options, error) {
	opts := methodcache.Options{StartTimeout: f.StartTimeout}
	for i, c := range f.Caches {
		cc, err := c.cacheConfig()
		if err != nil {
			return methodcache.Options{}, fmt.Errorf("config: caches[%d] (%s): %w", i, c.Name, err)
		}
		opts.Caches = append(opts.Caches, cc)
	}
	return opts, nil
}

func (c Cache) cacheConfig() (methodcache.CacheConfig, error) {
	cc := methodcache.CacheConfig{
		Name:      c.Name,
		Shared:    c.Shared,
		Partition: c.Partition,
	}
	engine, err := c.engine(&cc)
	if err != nil {
		return methodcache.CacheConfig{}, err
	}
	cc.Engine = engine
	return cc, nil
}

func (c Cache) engine(cc *methodcache.CacheConfig) (pr.Factory, error) {
	switch c.Engine {
	case "", "memory":
		var m Memory
		if c.Memory != nil {
			m = *c.Memory
		}
		return memory.Engine(memory.Config{MaxItems: m.MaxItems}), nil

	case "ristretto":
		if c.Ristretto == nil {
			return nil, errors.New("ristretto settings missing")
		}
		r := c.Ristretto
		return ristretto.Engine(ristretto.Config{
			NumCounters: r.NumCounters,
			MaxCost:     r.MaxCost,
			BufferItems: r.BufferItems,
			Metrics:     r.Metrics,
			SyncWrites:  r.SyncWrites,
		}), nil

	case "bigcache":
		if c.BigCache == nil {
			return nil, errors.New("bigcache settings missing")
		}
		b := c.BigCache
		return bigcache.Engine(bigcache.Config{
			LifeWindow:         b.LifeWindow,
			CleanWindow:        b.CleanWindow,
			MaxEntriesInWindow: b.MaxEntriesInWindow,
			MaxEntrySize:       b.MaxEntrySize,
			HardMaxCacheSizeMB: b.HardMaxCacheSizeMB,
		}), nil

	case "redis":
		if c.Redis == nil || c.Redis.Addr == "" {
			return nil, errors.New("redis addr missing")
		}
		rc := c.Redis
		client := goredis.NewClient(&goredis.Options{
			Addr:     rc.Addr,
			Username: rc.Username,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if rc.SharedGenerations {
			cc.GenStore = gen.NewRedis(gen.RedisConfig{
				Client:    client,
				Namespace: c.Partition,
				TTL:       rc.GenerationTTL,
			})
		}
		return rdp.Engine(rdp.Config{Client: client, CloseClient: true}), nil

	case "sturdyc":
		if c.Sturdyc == nil {
			return nil, errors.New("sturdyc settings missing")
		}
		s := c.Sturdyc
		return sturdyc.Engine(sturdyc.Config{
			Capacity:           s.Capacity,
			NumShards:          s.NumShards,
			TTL:                s.TTL,
			EvictionPercentage: s.EvictionPercentage,
			EvictionInterval:   s.EvictionInterval,
		}), nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownEngine, c.Engine)
	}
}
