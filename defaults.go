package methodcache

import "time"

const (
	// DefaultCache is the reserved name of the cache used when none is given.
	DefaultCache = "_default"

	defaultStartTimeout = 30 * time.Second
	defaultGenRetention = 30 * 24 * time.Hour
	defaultGenSweep     = time.Hour
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
