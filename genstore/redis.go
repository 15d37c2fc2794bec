package genstore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis shares per-key generations across processes and survives restarts,
// so a Drop on one replica invalidates entries written by every replica.
// Optionally, a TTL is applied to generation keys to bound growth; an expired
// generation reads as 0 and older entries self-heal on read.
type Redis struct {
	rdb redis.UniversalClient
	ns  string
	ttl time.Duration

	closeClient bool
}

var _ GenStore = (*Redis)(nil)

type RedisConfig struct {
	Client    redis.UniversalClient
	Namespace string        // prefix for generation keys; "methodcache" if empty
	TTL       time.Duration // 0 disables expiry
	// CloseClient closes Client on Close. Set only when the store owns it.
	CloseClient bool
}

func NewRedis(cfg RedisConfig) *Redis {
	ns := cfg.Namespace
	if ns == "" {
		ns = "methodcache"
	}
	return &Redis{rdb: cfg.Client, ns: ns, ttl: cfg.TTL, closeClient: cfg.CloseClient}
}

func (s *Redis) key(k string) string { return "gen:" + s.ns + ":" + k }

func (s *Redis) Snapshot(ctx context.Context, key string) (uint64, error) {
	res, err := s.rdb.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("redis gen parse: %w", err)
	}
	return u, nil
}

// Bump increments the generation. With a TTL, INCR and EXPIRE share one
// pipelined round-trip.
func (s *Redis) Bump(ctx context.Context, key string) (uint64, error) {
	k := s.key(key)

	if s.ttl <= 0 {
		return s.rdb.Incr(ctx, k).Uint64()
	}

	var incr *redis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return uint64(incr.Val()), nil
}

func (s *Redis) Cleanup(time.Duration) {}

func (s *Redis) Close(context.Context) error {
	if !s.closeClient {
		return nil
	}
	return s.rdb.Close()
}
