package methodcache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pr "github.com/unkn0wn-root/methodcache/provider"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memProvider is an in-memory provider with switches for failure injection.
type memProvider struct {
	mu sync.Mutex
	m  map[string]memEntry

	startErr  error
	startWait chan struct{} // Start blocks until closed, if set
	deafStart bool          // Start waits on startWait without watching ctx
	getErr    error
	rejectSet bool

	sets   atomic.Int64
	closed atomic.Bool
}

var (
	_ pr.Provider = (*memProvider)(nil)
	_ pr.Starter  = (*memProvider)(nil)
)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Start(ctx context.Context) error {
	if p.startWait != nil && p.deafStart {
		<-p.startWait
		return p.startErr
	}
	if p.startWait != nil {
		select {
		case <-p.startWait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.startErr
}

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getErr != nil {
		return nil, false, p.getErr
	}
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if p.rejectSet {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.mu.Lock()
	p.m[key] = memEntry{v: value, exp: exp}
	p.mu.Unlock()
	p.sets.Add(1)
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

func (p *memProvider) Close(context.Context) error {
	p.closed.Store(true)
	return nil
}

func (p *memProvider) raw(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.m[key]
	return e.v, ok
}

func (p *memProvider) put(key string, v []byte) {
	p.mu.Lock()
	p.m[key] = memEntry{v: v}
	p.mu.Unlock()
}

// newStarted builds Methods over opts, starts it and waits for readiness.
func newStarted(t *testing.T, opts Options, setup func(m *Methods)) *Methods {
	t.Helper()
	m, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	if setup != nil {
		setup(m)
	}
	m.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Ready(ctx); err != nil {
		t.Fatalf("Ready: %v", err)
	}
	return m
}

func mustRegister(t *testing.T, m *Methods, name string, fn Func, opts *MethodOptions) {
	t.Helper()
	if err := m.Register(name, fn, opts); err != nil {
		t.Fatalf("Register %q: %v", name, err)
	}
}

func mustLookup(t *testing.T, m *Methods, name string) *Method {
	t.Helper()
	meth, ok := m.Lookup(name)
	if !ok {
		t.Fatalf("Lookup %q: not found", name)
	}
	return meth
}

func cacheOpts(expires, timeout time.Duration) *MethodOptions {
	return &MethodOptions{Cache: &CacheOptions{ExpiresIn: expires, GenerateTimeout: timeout}}
}

// counter returns a Func that yields "<arg>-<n>" where n counts invocations.
func counter() (Func, *atomic.Int64) {
	var n atomic.Int64
	return func(_ context.Context, args ...any) (any, error) {
		i := n.Add(1)
		return args[0].(string) + "-" + strconv.FormatInt(i, 10), nil
	}, &n
}

var errBoom = errors.New("boom")

type recordingHooks struct {
	NopHooks
	mu       sync.Mutex
	heals    []string
	timeouts int
	genErrs  int
	rejected int
}

func (h *recordingHooks) SelfHeal(_ string, reason string) {
	h.mu.Lock()
	h.heals = append(h.heals, reason)
	h.mu.Unlock()
}

func (h *recordingHooks) GenerateTimeout(string, string, time.Duration) {
	h.mu.Lock()
	h.timeouts++
	h.mu.Unlock()
}

func (h *recordingHooks) GenerateError(string, string, error) {
	h.mu.Lock()
	h.genErrs++
	h.mu.Unlock()
}

func (h *recordingHooks) ProviderSetRejected(string) {
	h.mu.Lock()
	h.rejected++
	h.mu.Unlock()
}
