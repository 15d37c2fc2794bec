package methodcache

import "time"

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; they run on the call path.
// Wrap slow hooks with hooks/async.
type Hooks interface {
	// An entry was deleted on read.
	// reason ∈ {"corrupt", "gen_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// A generation outlived its GenerateTimeout.
	GenerateTimeout(segment, key string, timeout time.Duration)

	// A generation returned an error.
	GenerateError(segment, key string, err error)

	// GenStore errors (snapshot or bump).
	GenSnapshotError(storageKey string, err error)
	GenBumpError(storageKey string, err error)

	// Both gen bump and delete failed during Drop (likely backend outage).
	DropOutage(storageKey string, bumpErr, delErr error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) SelfHeal(string, string)                       {}
func (NopHooks) ProviderSetRejected(string)                    {}
func (NopHooks) GenerateTimeout(string, string, time.Duration) {}
func (NopHooks) GenerateError(string, string, error)           {}
func (NopHooks) GenSnapshotError(string, error)                {}
func (NopHooks) GenBumpError(string, error)                    {}
func (NopHooks) DropOutage(string, error, error)               {}
