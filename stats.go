package methodcache

import "sync/atomic"

// Stats is a snapshot of a policy's counters.
type Stats struct {
	Sets      uint64 // entries written
	Gets      uint64 // lookups, hit or miss
	Hits      uint64 // lookups served from cache, stale included
	Stales    uint64 // hits past StaleIn
	Generates uint64 // generation runs
	Errors    uint64 // read, generate and timeout failures
}

type counters struct {
	sets, gets, hits, stales, generates, errors atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Sets:      c.sets.Load(),
		Gets:      c.gets.Load(),
		Hits:      c.hits.Load(),
		Stales:    c.stales.Load(),
		Generates: c.generates.Load(),
		Errors:    c.errors.Load(),
	}
}
