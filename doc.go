// Package methodcache registers named functions in a dotted namespace and
// memoizes their results in pluggable cache backends.
//
// Components:
//   - Methods: the registry. Names like "users.byID" resolve through a tree of
//     namespaces; a leaf can never be shadowed by a namespace or vice versa.
//   - Caches: named backends (provider.Provider) provisioned by New and Provision until Start. A memory
//     cache named "_default" always exists. Each cached method claims a
//     segment ("#<name>" unless set) of one cache; two methods may only share
//     a segment when sharing is allowed.
//   - Keys: GenerateKey turns primitive arguments into "a:b:c" with each part
//     query-escaped. Non-primitive arguments fail with ErrBadImplementation.
//   - Policy: get-or-generate per segment with one in-flight generation per
//     key, a generation timeout, optional stale-while-revalidate, and
//     drop-safe writes via per-key generations (genstore).
//
// Usage:
//
//	m, _ := methodcache.New(methodcache.Options{})
//	_ = m.Register("users.get", getUser, &methodcache.MethodOptions{
//	    Cache: &methodcache.CacheOptions{ExpiresIn: time.Minute, GenerateTimeout: time.Second},
//	})
//	m.Start()
//	if err := m.Ready(ctx); err != nil { ... }
//	u, err := m.Call(ctx, "users.get", "u-42")
//	users, _ := m.Lookup("users.get")
//	_ = users.Cache().Drop(ctx, "u-42")
package methodcache
