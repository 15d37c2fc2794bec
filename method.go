package methodcache

import "context"

// Func is a registrable method.
type Func func(ctx context.Context, args ...any) (any, error)

// MethodOptions configure a registration. The zero value registers an
// uncached method.
type MethodOptions struct {
	// Cache enables memoization.
	Cache *CacheOptions
	// GenerateKey replaces GenerateKey for cached methods.
	GenerateKey KeyFunc
}

// Registration describes one method to add.
type Registration struct {
	Name    string
	Method  Func
	Options MethodOptions
}

// Method is a registered leaf of the namespace tree.
type Method struct {
	name  string
	fn    Func
	cache *MethodCache
}

// Name is the dotted name the method was registered under.
func (m *Method) Name() string { return m.name }

// Cache returns the method's cache controls, or nil if it is not cached.
func (m *Method) Cache() *MethodCache { return m.cache }

// Invoke calls the method, through its cache when it has one.
func (m *Method) Invoke(ctx context.Context, args ...any) (any, error) {
	if m.cache != nil {
		return m.cache.invoke(ctx, args)
	}
	return m.fn(ctx, args...)
}

// MethodCache adapts a method's arguments to its policy. It keeps no state of
// its own.
type MethodCache struct {
	method    string
	cacheName string
	generate  KeyFunc
	policy    *Policy
}

func (c *MethodCache) key(args []any) (string, error) {
	k, ok := c.generate(args...)
	if !ok {
		return "", &BadImplementationError{Method: c.method, Args: args}
	}
	return k, nil
}

func (c *MethodCache) invoke(ctx context.Context, args []any) (any, error) {
	args = append([]any(nil), args...)
	k, err := c.key(args)
	if err != nil {
		return nil, err
	}
	return c.policy.Get(ctx, ID{Key: k, Args: args})
}

// Drop invalidates the value cached for args; the next call regenerates it.
func (c *MethodCache) Drop(ctx context.Context, args ...any) error {
	k, err := c.key(args)
	if err != nil {
		return err
	}
	return c.policy.Drop(ctx, k)
}

// Stats returns the counters of the method's policy.
func (c *MethodCache) Stats() Stats { return c.policy.Stats() }

// Segment is the cache segment holding the method's entries.
func (c *MethodCache) Segment() string { return c.policy.Segment() }

// CacheName names the provisioned cache the method uses.
func (c *MethodCache) CacheName() string { return c.cacheName }
