package methodcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/methodcache/provider/memory"
)

// ErrMethodNotFound is returned by Call for unknown names.
var ErrMethodNotFound = errors.New("methodcache: method not found")

// Options configure New. All fields are optional.
type Options struct {
	// Caches are provisioned before startup. A memory cache named
	// DefaultCache is added when none of them uses that name.
	Caches []CacheConfig

	Logger       Logger        // if nil, NopLogger is used
	Hooks        Hooks         // if nil, NopHooks is used
	StartTimeout time.Duration // bounds backend startup; 0 => 30s
}

// Methods is a registry of named, optionally cached methods.
//
// Registration (Add, Register) is meant to run from a single goroutine during
// setup. Lookups, walks and invocations are safe for concurrent use, also
// while that goroutine is still registering.
type Methods struct {
	log   Logger
	hooks Hooks
	tree  *tree
	prov  *provisioner

	startTimeout time.Duration
	startOnce    sync.Once
	ready        chan struct{}
	readyErr     error
	readyOnce    sync.Once
	closeOnce    sync.Once
	closeErr     error
}

// New provisions the configured caches and adds the default memory cache if
// none of them is named DefaultCache. Backends are not started until Start.
func New(opts Options) (*Methods, error) {
	log := coalesce[Logger](opts.Logger, NopLogger{})
	hooks := coalesce[Hooks](opts.Hooks, NopHooks{})

	m := &Methods{
		log:   log,
		hooks: hooks,
		tree:  newTree(),
		prov:  newProvisioner(log, hooks),
		ready: make(chan struct{}),

		startTimeout: coalesce(opts.StartTimeout, defaultStartTimeout),
	}

	if _, err := m.prov.createCaches(opts.Caches); err != nil {
		_ = m.prov.close(context.Background())
		return nil, err
	}
	if !m.prov.has(DefaultCache) {
		if _, err := m.prov.createCaches([]CacheConfig{{Engine: memory.Engine(memory.Config{})}}); err != nil {
			_ = m.prov.close(context.Background())
			return nil, err
		}
	}
	return m, nil
}

// Provision adds caches before Start. The configs are applied as a unit.
func (m *Methods) Provision(configs ...CacheConfig) error {
	_, err := m.prov.createCaches(configs)
	return err
}

// Start starts every cache backend concurrently and returns immediately; use
// Ready to wait for the outcome. Provision fails from now on. Later calls
// are no-ops.
func (m *Methods) Start() {
	m.startOnce.Do(m.start)
}

// start starts all clients in parallel. The first failure settles readiness;
// remaining starts run to completion and their results are ignored.
func (m *Methods) start() {
	m.prov.phase = phaseInitializing
	clients := m.prov.clients()

	ctx, cancel := context.WithTimeout(context.Background(), m.startTimeout)
	results := make(chan error, len(clients))
	for _, cl := range clients {
		go func(cl *Client) { results <- cl.Start(ctx) }(cl)
	}

	go func() {
		defer cancel()
		failed := 0
		for range clients {
			select {
			case err := <-results:
				if err != nil {
					failed++
					m.log.Error("cache failed to start", Fields{"err": err})
					m.settle(err)
				}
			case <-ctx.Done():
				// a provider ignoring ctx must not hold readiness open
				err := fmt.Errorf("methodcache: start caches: %w", ctx.Err())
				m.log.Error("cache start timed out", Fields{"timeout": m.startTimeout})
				m.settle(err)
				return
			}
		}
		if failed == 0 {
			m.log.Info("caches started", Fields{"count": len(clients)})
		}
		m.settle(nil)
	}()
}

func (m *Methods) settle(err error) {
	m.readyOnce.Do(func() {
		m.readyErr = err
		close(m.ready)
	})
}

// Ready blocks until every backend has started. It returns the first start
// failure, an error wrapping context.DeadlineExceeded once StartTimeout
// passes, or ctx.Err() if ctx ends first. Ready does not call Start: before
// Start it only returns when ctx ends. Until Ready returns nil, cached
// methods run uncached.
func (m *Methods) Ready(ctx context.Context) error {
	select {
	case <-m.ready:
		return m.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Register adds a single method. See Add.
func (m *Methods) Register(name string, fn Func, opts *MethodOptions) error {
	r := Registration{Name: name, Method: fn}
	if opts != nil {
		r.Options = *opts
	}
	return m.Add(r)
}

// Add registers methods in order and stops at the first failure; methods
// before it stay registered. Every failure is a *RegistrationError.
func (m *Methods) Add(regs ...Registration) error {
	for _, r := range regs {
		if err := m.add(r); err != nil {
			return &RegistrationError{Method: r.Name, Err: err}
		}
	}
	return nil
}

func (m *Methods) add(r Registration) error {
	if r.Method == nil {
		return ErrNilMethod
	}
	if err := m.tree.check(r.Name); err != nil {
		return err
	}

	meth := &Method{name: r.Name, fn: r.Method}
	if co := r.Options.Cache; co != nil {
		if co.GenerateFunc != nil {
			return ErrGenerateFuncNotAllowed
		}
		if co.GenerateTimeout == 0 {
			return ErrMissingGenerateTimeout
		}

		fn := r.Method
		policy, err := m.prov.bindPolicy(*co, "#"+r.Name, func(ctx context.Context, id ID) (any, error) {
			return fn(ctx, id.Args...)
		})
		if err != nil {
			return err
		}

		keyFn := r.Options.GenerateKey
		if keyFn == nil {
			keyFn = GenerateKey
		}
		meth.cache = &MethodCache{
			method:    r.Name,
			cacheName: coalesce(co.Cache, DefaultCache),
			generate:  keyFn,
			policy:    policy,
		}
	}

	if err := m.tree.assign(r.Name, meth); err != nil {
		return err
	}
	m.log.Debug("method registered", Fields{"method": r.Name, "cached": meth.cache != nil})
	return nil
}

// Lookup resolves a dotted name to its method.
func (m *Methods) Lookup(name string) (*Method, bool) {
	return m.tree.lookup(name)
}

// Call invokes the method registered under name.
func (m *Methods) Call(ctx context.Context, name string, args ...any) (any, error) {
	meth, ok := m.tree.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, name)
	}
	return meth.Invoke(ctx, args...)
}

// Each visits every registered method in name order.
func (m *Methods) Each(fn func(*Method)) { m.tree.walk(fn) }

// Names lists the registered method names in order.
func (m *Methods) Names() []string {
	var names []string
	m.Each(func(meth *Method) { names = append(names, meth.name) })
	return names
}

// Close stops every cache backend. Methods stay callable but every cached
// call regenerates.
func (m *Methods) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		m.closeErr = m.prov.close(ctx)
	})
	return m.closeErr
}
