package methodcache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/methodcache/codec"
	gen "github.com/unkn0wn-root/methodcache/genstore"
	"github.com/unkn0wn-root/methodcache/internal/wire"
)

// NoTimeout disables the generation timeout when set as GenerateTimeout.
const NoTimeout time.Duration = -1

// ID identifies one cached value: the derived key plus the arguments the
// generator needs to rebuild it.
type ID struct {
	Key  string
	Args []any
}

// GenerateFunc produces a fresh value for id on a miss.
type GenerateFunc func(ctx context.Context, id ID) (any, error)

// GenerateFlags let a running generation adjust how its result is stored.
type GenerateFlags struct {
	ttl    time.Duration
	ttlSet bool
}

// SetTTL overrides ExpiresIn for this result. ttl<=0 returns the value
// without storing it.
func (f *GenerateFlags) SetTTL(ttl time.Duration) {
	f.ttl = ttl
	f.ttlSet = true
}

type flagsKey struct{}

// GenerateFlagsFromContext returns the flags of the generation running on
// ctx, or nil when ctx does not belong to a generation.
func GenerateFlagsFromContext(ctx context.Context) *GenerateFlags {
	f, _ := ctx.Value(flagsKey{}).(*GenerateFlags)
	return f
}

// Policy binds a cache client and segment to a generator. It serves fresh
// entries, regenerates missing or expired ones with at most one generation
// in flight per key, and bounds every generation by its timeout.
type Policy struct {
	client  *Client
	segment string
	gens    gen.GenStore
	codec   c.Codec[any]
	gen     GenerateFunc

	expiresIn       time.Duration
	staleIn         time.Duration
	generateTimeout time.Duration
	dropOnError     bool
	generateOnRead  bool

	log   Logger
	hooks Hooks
	sf    singleflight.Group
	stats counters
}

// Segment is the cache segment the policy reads and writes.
func (p *Policy) Segment() string { return p.segment }

// Stats returns a snapshot of the policy's counters.
func (p *Policy) Stats() Stats { return p.stats.snapshot() }

type cached struct {
	value any
	stale bool
}

// Get returns the cached value for id.Key, generating it when absent.
// Cancelling ctx stops the wait, not the shared generation.
func (p *Policy) Get(ctx context.Context, id ID) (any, error) {
	p.stats.gets.Add(1)

	hit, ok, err := p.lookup(ctx, id.Key)
	switch {
	case err != nil:
		p.stats.errors.Add(1)
		if !p.generateOnRead {
			return nil, err
		}
		p.log.Debug("cache read failed; generating", Fields{"segment": p.segment, "key": id.Key, "err": err})
	case ok:
		p.stats.hits.Add(1)
		if hit.stale {
			p.stats.stales.Add(1)
			p.refresh(ctx, id)
		}
		return hit.value, nil
	}

	return p.generateShared(ctx, id)
}

// Drop invalidates id.Key: the generation is bumped first so an in-flight
// generation cannot write the old value back, then the entry is deleted.
func (p *Policy) Drop(ctx context.Context, key string) error {
	sk := p.client.storageKey(p.segment, key)
	p.sf.Forget(key)

	_, bumpErr := p.gens.Bump(ctx, sk)
	if bumpErr != nil {
		p.hooks.GenBumpError(sk, bumpErr)
	}
	delErr := p.client.Del(ctx, p.segment, key)
	if bumpErr == nil && delErr == nil {
		p.log.Debug("dropped key", Fields{"segment": p.segment, "key": key})
		return nil
	}
	if bumpErr != nil && delErr != nil {
		p.hooks.DropOutage(sk, bumpErr, delErr)
	}
	return &DropError{Key: key, BumpErr: bumpErr, DelErr: delErr}
}

func (p *Policy) lookup(ctx context.Context, key string) (cached, bool, error) {
	raw, ok, err := p.client.Get(ctx, p.segment, key)
	if err != nil || !ok {
		return cached{}, false, err
	}
	sk := p.client.storageKey(p.segment, key)

	e, err := wire.DecodeEntry(raw)
	if err != nil {
		p.selfHeal(ctx, key, sk, "corrupt")
		return cached{}, false, nil
	}
	cur, err := p.gens.Snapshot(ctx, sk)
	if err != nil {
		// generation unknown: treat as a miss and leave the entry alone
		p.hooks.GenSnapshotError(sk, err)
		return cached{}, false, nil
	}
	if e.Gen != cur {
		p.selfHeal(ctx, key, sk, "gen_mismatch")
		return cached{}, false, nil
	}
	now := time.Now()
	if e.Expired(now) {
		return cached{}, false, nil
	}
	v, err := p.codec.Decode(e.Payload)
	if err != nil {
		p.selfHeal(ctx, key, sk, "value_decode")
		return cached{}, false, nil
	}
	return cached{value: v, stale: p.staleIn > 0 && e.Age(now) >= p.staleIn}, true, nil
}

func (p *Policy) selfHeal(ctx context.Context, key, sk, reason string) {
	_ = p.client.Del(ctx, p.segment, key)
	p.hooks.SelfHeal(sk, reason)
}

// refresh regenerates a stale entry in the background; the caller already
// has the stale value.
func (p *Policy) refresh(ctx context.Context, id ID) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		if _, err := p.generateShared(ctx, id); err != nil {
			p.log.Debug("stale refresh failed", Fields{"segment": p.segment, "key": id.Key, "err": err})
		}
	}()
}

func (p *Policy) generateShared(ctx context.Context, id ID) (any, error) {
	gctx := context.WithoutCancel(ctx)
	ch := p.sf.DoChan(id.Key, func() (any, error) {
		return p.generate(gctx, id)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type generated struct {
	value any
	err   error
}

// generate runs the generator, stores its result and returns it in decoded
// form (see normalize), or gives up waiting after generateTimeout. A
// generation that outlives the timeout keeps running and still stores its
// result unless the key was dropped meanwhile.
func (p *Policy) generate(ctx context.Context, id ID) (any, error) {
	sk := p.client.storageKey(p.segment, id.Key)
	obs, snapErr := p.gens.Snapshot(ctx, sk)
	if snapErr != nil {
		p.hooks.GenSnapshotError(sk, snapErr)
	}

	flags := &GenerateFlags{}
	done := make(chan generated, 1)
	go func() {
		v, err := p.run(context.WithValue(ctx, flagsKey{}, flags), id)
		p.stats.generates.Add(1)
		if err != nil {
			p.stats.errors.Add(1)
			if p.dropOnError {
				_ = p.client.Del(ctx, p.segment, id.Key)
			}
			p.hooks.GenerateError(p.segment, id.Key, err)
			done <- generated{err: err}
			return
		}
		payload, v, ok := p.normalize(id.Key, v)
		if ok && snapErr == nil {
			p.store(ctx, id.Key, sk, payload, obs, flags)
		}
		done <- generated{value: v}
	}()

	if p.generateTimeout <= 0 {
		r := <-done
		return r.value, r.err
	}
	timer := time.NewTimer(p.generateTimeout)
	defer timer.Stop()
	select {
	case r := <-done:
		return r.value, r.err
	case <-timer.C:
		p.stats.errors.Add(1)
		p.hooks.GenerateTimeout(p.segment, id.Key, p.generateTimeout)
		return nil, fmt.Errorf("methodcache: segment %q key %q: %w after %s",
			p.segment, id.Key, ErrGenerateTimeout, p.generateTimeout)
	}
}

func (p *Policy) run(ctx context.Context, id ID) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("methodcache: generate panicked: %v", r)
		}
	}()
	return p.gen(ctx, id)
}

// normalize round-trips a generated value through the codec so a miss returns
// the same shape later hits decode (msgpack yields int64 for int, maps for
// structs). A value the codec cannot encode or decode is returned as
// generated and never cached.
func (p *Policy) normalize(key string, v any) ([]byte, any, bool) {
	payload, err := p.codec.Encode(v)
	if err != nil {
		p.log.Warn("encode generated value failed; not cached", Fields{"segment": p.segment, "key": key, "err": err})
		return nil, v, false
	}
	dv, err := p.codec.Decode(payload)
	if err != nil {
		p.log.Warn("decode generated value failed; not cached", Fields{"segment": p.segment, "key": key, "err": err})
		return nil, v, false
	}
	return payload, dv, true
}

// store writes payload iff the key's generation is still the one observed
// before generating.
func (p *Policy) store(ctx context.Context, key, sk string, payload []byte, observed uint64, flags *GenerateFlags) {
	ttl := p.expiresIn
	if flags.ttlSet {
		ttl = flags.ttl
	}
	if ttl <= 0 {
		return
	}
	cur, err := p.gens.Snapshot(ctx, sk)
	if err != nil {
		p.hooks.GenSnapshotError(sk, err)
		return
	}
	if cur != observed {
		// dropped while generating; skip stale write
		p.log.Debug("store skipped (gen mismatch)", Fields{"segment": p.segment, "key": key, "obs": observed})
		return
	}
	raw := wire.EncodeEntry(wire.Entry{Gen: observed, StoredAt: time.Now(), TTL: ttl, Payload: payload})
	ok, err := p.client.Set(ctx, p.segment, key, raw, ttl)
	if err != nil {
		p.log.Warn("cache write failed", Fields{"segment": p.segment, "key": key, "err": err})
		return
	}
	if !ok {
		p.hooks.ProviderSetRejected(sk)
		return
	}
	p.stats.sets.Add(1)
}
