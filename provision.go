package methodcache

import (
	"context"
	"errors"
	"strings"
	"time"

	c "github.com/unkn0wn-root/methodcache/codec"
	gen "github.com/unkn0wn-root/methodcache/genstore"
	pr "github.com/unkn0wn-root/methodcache/provider"
)

// CacheConfig provisions one named cache. Exactly one of Engine or Provider
// must be set.
type CacheConfig struct {
	// Name defaults to DefaultCache.
	Name string
	// Shared lets several methods bind the same segment of this cache.
	Shared bool

	// Engine builds a new provider for this cache (factory style).
	Engine pr.Factory
	// Provider reuses an already constructed provider (handle style).
	Provider pr.Provider

	// Partition prefixes every key of this cache; provider.DefaultPartition if empty.
	Partition string
	// GenStore holds drop generations; an in-process store if nil.
	GenStore gen.GenStore
	// SetCost sizes entries for cost-aware providers; 1 per entry if nil.
	SetCost SetCostFunc
}

// Sharing decides whether a binding may reuse an already claimed segment.
// A binding-level choice overrides the cache's Shared flag.
type Sharing int

const (
	SharingInherit   Sharing = iota // follow CacheConfig.Shared
	SharingAllowed                  // always allow reuse
	SharingExclusive                // never allow reuse
)

func (s Sharing) allows(cacheShared bool) bool {
	switch s {
	case SharingAllowed:
		return true
	case SharingExclusive:
		return false
	default:
		return cacheShared
	}
}

// CacheOptions enable caching for a registered method.
type CacheOptions struct {
	// Cache selects the named cache; DefaultCache if empty.
	Cache string
	// Segment defaults to "#<method name>".
	Segment string
	Sharing Sharing

	// ExpiresIn is how long a generated value stays fresh. Required.
	ExpiresIn time.Duration
	// StaleIn, when set, serves values older than StaleIn while a background
	// generation refreshes them. Must be below ExpiresIn.
	StaleIn time.Duration
	// GenerateTimeout bounds every generation. Required; NoTimeout disables it.
	GenerateTimeout time.Duration
	// GenerateFunc must stay nil: the registered method is the generator.
	GenerateFunc GenerateFunc

	// KeepOnError keeps a stored entry when its regeneration fails.
	// By default a failed generation drops it.
	KeepOnError bool
	// FailOnReadError returns backend read errors instead of generating.
	FailOnReadError bool

	// Codec serializes results; msgpack if nil.
	Codec c.Codec[any]
}

type phase int

const (
	phaseConfiguring phase = iota
	phaseInitializing
)

type cacheEntry struct {
	client   *Client
	gens     gen.GenStore
	ownsGens bool
	segments map[string]struct{}
	shared   bool
}

// provisioner owns the named caches. Mutated only during setup.
type provisioner struct {
	caches map[string]*cacheEntry
	order  []string
	phase  phase
	log    Logger
	hooks  Hooks
}

func newProvisioner(log Logger, hooks Hooks) *provisioner {
	return &provisioner{caches: make(map[string]*cacheEntry), log: log, hooks: hooks}
}

func (p *provisioner) has(name string) bool {
	_, ok := p.caches[name]
	return ok
}

func (p *provisioner) clients() []*Client {
	out := make([]*Client, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.caches[name].client)
	}
	return out
}

// createCaches provisions configs as a unit: if any config is invalid or its
// engine fails, nothing is registered and providers built so far are closed.
// It returns the new clients; starting them is the caller's job.
func (p *provisioner) createCaches(configs []CacheConfig) ([]*Client, error) {
	if p.phase != phaseConfiguring {
		return nil, ErrProvisionAfterStart
	}

	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		name := coalesce(cfg.Name, DefaultCache)
		if _, dup := seen[name]; dup || p.has(name) {
			return nil, &CacheConfigError{Cache: name, Err: ErrDuplicateCache}
		}
		if (cfg.Engine == nil) == (cfg.Provider == nil) {
			return nil, &CacheConfigError{Cache: name, Err: ErrInvalidCacheConfig}
		}
		seen[name] = struct{}{}
	}

	entries := make([]*cacheEntry, 0, len(configs))
	for _, cfg := range configs {
		name := coalesce(cfg.Name, DefaultCache)
		partition := coalesce(cfg.Partition, pr.DefaultPartition)

		prov := cfg.Provider
		if prov == nil {
			built, err := cfg.Engine(pr.Settings{Partition: partition})
			if err == nil && built == nil {
				err = errors.New("engine returned a nil provider")
			}
			if err != nil {
				closeEntries(entries)
				return nil, &CacheConfigError{Cache: name, Err: err}
			}
			prov = built
		}

		e := &cacheEntry{
			client:   newClient(name, partition, prov, cfg.SetCost),
			gens:     cfg.GenStore,
			segments: make(map[string]struct{}),
			shared:   cfg.Shared,
		}
		if e.gens == nil {
			e.gens = gen.NewLocal(defaultGenSweep, defaultGenRetention)
			e.ownsGens = true
		}
		entries = append(entries, e)
	}

	added := make([]*Client, 0, len(entries))
	for _, e := range entries {
		name := e.client.Name()
		p.caches[name] = e
		p.order = append(p.order, name)
		added = append(added, e.client)
		p.log.Debug("cache provisioned", Fields{"cache": name, "partition": e.client.Partition(), "shared": e.shared})
	}
	return added, nil
}

func closeEntries(entries []*cacheEntry) {
	ctx := context.Background()
	for _, e := range entries {
		_ = e.client.Stop(ctx)
		if e.ownsGens {
			_ = e.gens.Close(ctx)
		}
	}
}

// bindPolicy claims a segment of the selected cache and returns a policy
// bound to it.
func (p *provisioner) bindPolicy(opts CacheOptions, defaultSegment string, generate GenerateFunc) (*Policy, error) {
	name := coalesce(opts.Cache, DefaultCache)
	segment := coalesce(opts.Segment, defaultSegment)

	if segment == "" || strings.ContainsAny(segment, ":\x00") {
		return nil, &CacheConfigError{Cache: name, Err: ErrInvalidSegment}
	}
	if opts.ExpiresIn <= 0 {
		return nil, &CacheConfigError{Cache: name, Err: ErrMissingExpiresIn}
	}
	if opts.StaleIn < 0 || (opts.StaleIn > 0 && opts.StaleIn >= opts.ExpiresIn) {
		return nil, &CacheConfigError{Cache: name, Err: ErrInvalidStaleIn}
	}

	e, ok := p.caches[name]
	if !ok {
		return nil, &CacheConfigError{Cache: name, Err: ErrUnknownCache}
	}
	if _, claimed := e.segments[segment]; claimed && !opts.Sharing.allows(e.shared) {
		return nil, &CacheConfigError{Cache: name, Err: ErrSegmentClaimed}
	}
	e.segments[segment] = struct{}{}

	var codec c.Codec[any] = c.Msgpack[any]{}
	if opts.Codec != nil {
		codec = opts.Codec
	}
	return &Policy{
		client:          e.client,
		segment:         segment,
		gens:            e.gens,
		codec:           codec,
		gen:             generate,
		expiresIn:       opts.ExpiresIn,
		staleIn:         opts.StaleIn,
		generateTimeout: opts.GenerateTimeout,
		dropOnError:     !opts.KeepOnError,
		generateOnRead:  !opts.FailOnReadError,
		log:             p.log,
		hooks:           p.hooks,
	}, nil
}

// close stops every client and the gen stores this provisioner created.
func (p *provisioner) close(ctx context.Context) error {
	var errs []error
	for _, name := range p.order {
		e := p.caches[name]
		if err := e.client.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		if e.ownsGens {
			if err := e.gens.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
