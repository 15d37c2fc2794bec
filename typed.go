package methodcache

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Bind captures target once at registration time and returns a Func that
// passes it to fn on every call. fn takes the target first so method
// expressions fit directly:
//
//	methods.Register("users.get", methodcache.Bind(repo, (*Repo).Get), opts)
func Bind[T any](target T, fn func(target T, ctx context.Context, args ...any) (any, error)) Func {
	return func(ctx context.Context, args ...any) (any, error) {
		return fn(target, ctx, args...)
	}
}

// Invoke calls m and returns its result as T. Cached methods return the
// codec's generic shapes (maps, int64, float64...) on hits and misses alike;
// they are converted to T through msgpack when a plain type assertion fails.
func Invoke[T any](ctx context.Context, m *Method, args ...any) (T, error) {
	var zero T
	v, err := m.Invoke(ctx, args...)
	if err != nil || v == nil {
		return zero, err
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	b, err := msgpack.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("methodcache: cannot convert %T to %T: %w", v, zero, err)
	}
	var out T
	if err := msgpack.Unmarshal(b, &out); err != nil {
		return zero, fmt.Errorf("methodcache: cannot convert %T to %T: %w", v, zero, err)
	}
	return out, nil
}
