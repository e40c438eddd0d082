// Package container implements the process-wide service registry of the
// application. Components are registered under string keys with a lifetime
// scope and resolved through the container; singletons are built once and
// torn down in reverse registration order at shutdown.
//
// There is no package-level default instance. The composition root
// constructs a Container with New and passes it by reference to anything
// that needs it.
package container

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Factory builds a component with no dependencies on the container.
type Factory func() (any, error)

// ContainerFactory builds a component that resolves its own dependencies.
// It receives the exact container performing the resolution. The two
// factory shapes are selected explicitly at registration; the container
// never inspects signatures.
type ContainerFactory func(c *Container) (any, error)

// registration holds everything the container knows about one component.
type registration struct {
	key     string
	alias   string
	scope   Scope
	build   ContainerFactory
	cleanup Cleanup

	// Creation state below is guarded by mu, not by the container lock,
	// so a factory may resolve other components while it runs.
	mu       sync.Mutex
	instance any
	created  bool
}

// Container maps keys and aliases to registrations and resolves them per
// declared lifetime. Registration and resolution are safe for concurrent
// use; see the package documentation for what is not.
type Container struct {
	mu          sync.RWMutex
	regs        map[string]*registration
	order       []*registration
	initialized bool
	log         *zap.Logger
}

// New creates an empty container.
func New(opts ...ContainerOption) *Container {
	c := &Container{
		regs: make(map[string]*registration),
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterSingleton registers a component built at most once, lazily on
// first resolve or eagerly by Initialize.
func (c *Container) RegisterSingleton(key string, factory Factory, opts ...Option) error {
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidRegistration, key)
	}
	return c.add(key, ScopeSingleton, liftFactory(factory), opts...)
}

// RegisterSingletonWith is RegisterSingleton for factories that resolve
// their own dependencies through the container.
func (c *Container) RegisterSingletonWith(key string, factory ContainerFactory, opts ...Option) error {
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidRegistration, key)
	}
	return c.add(key, ScopeSingleton, factory, opts...)
}

// RegisterTransient registers a component constructed fresh on every
// resolve. Transients cannot carry cleanups: the container never holds
// their instances.
func (c *Container) RegisterTransient(key string, factory Factory, opts ...Option) error {
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidRegistration, key)
	}
	return c.add(key, ScopeTransient, liftFactory(factory), opts...)
}

// RegisterTransientWith is RegisterTransient for container-aware factories.
func (c *Container) RegisterTransientWith(key string, factory ContainerFactory, opts ...Option) error {
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %q", ErrInvalidRegistration, key)
	}
	return c.add(key, ScopeTransient, factory, opts...)
}

// RegisterInstance registers a pre-built singleton. The value is cached
// immediately; Close nulls the cache like any other singleton, but a later
// resolve re-caches the same value.
func (c *Container) RegisterInstance(key string, value any, opts ...Option) error {
	err := c.add(key, ScopeSingleton, func(*Container) (any, error) { return value, nil }, opts...)
	if err != nil {
		return err
	}

	c.mu.RLock()
	reg := c.regs[key]
	c.mu.RUnlock()

	reg.mu.Lock()
	reg.instance = value
	reg.created = true
	reg.mu.Unlock()
	return nil
}

func liftFactory(f Factory) ContainerFactory {
	return func(*Container) (any, error) { return f() }
}

func (c *Container) add(key string, scope Scope, build ContainerFactory, opts ...Option) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidRegistration)
	}

	reg := &registration{key: key, scope: scope, build: build}
	for _, opt := range opts {
		opt(reg)
	}
	if reg.cleanup != nil && scope != ScopeSingleton {
		return fmt.Errorf("%w: cleanup on %s %q", ErrInvalidRegistration, scope, key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.regs[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
	}
	if reg.alias != "" {
		if _, exists := c.regs[reg.alias]; exists {
			return fmt.Errorf("%w: alias %q", ErrDuplicateKey, reg.alias)
		}
	}

	c.regs[key] = reg
	if reg.alias != "" {
		c.regs[reg.alias] = reg
	}
	c.order = append(c.order, reg)
	return nil
}

// Resolve returns the component registered under the key or alias. For
// singletons the cached instance is returned, building it first if needed;
// for transients a fresh instance is constructed. A factory error during
// direct resolution propagates unmodified and leaves a singleton
// uncreated, so a later resolve retries.
func (c *Container) Resolve(key string) (any, error) {
	c.mu.RLock()
	reg, ok := c.regs[key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, key)
	}

	if reg.scope == ScopeTransient {
		return reg.build(c)
	}

	// Singleton creation serializes on the registration, not on the
	// container, so concurrent resolves of the same key run the factory
	// exactly once while a factory may still resolve other keys.
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.created {
		return reg.instance, nil
	}
	instance, err := reg.build(c)
	if err != nil {
		return nil, err
	}
	reg.instance = instance
	reg.created = true
	return instance, nil
}

// TryResolve is Resolve that reports absence or failure as a boolean
// instead of an error.
func (c *Container) TryResolve(key string) (any, bool) {
	v, err := c.Resolve(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Resolve returns the component under key asserted to T. Unknown keys
// surface ErrNotRegistered; a non-T instance surfaces ErrWrongType.
func Resolve[T any](c *Container, key string) (T, error) {
	var zero T
	v, err := c.Resolve(key)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q is %T", ErrWrongType, key, v)
	}
	return typed, nil
}

// Initialize eagerly realizes every not-yet-created singleton in
// registration order. Factory failures are caught per registration, logged
// and aggregated into the returned error so one misconfigured component
// does not hide the state of the rest; the aggregate is a warning, not a
// fatal condition. Initialize is idempotent.
func (c *Container) Initialize() error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.initialized = true
	order := make([]*registration, len(c.order))
	copy(order, c.order)
	c.mu.Unlock()

	var errs []error
	for _, reg := range order {
		if reg.scope != ScopeSingleton {
			continue
		}
		if _, err := c.Resolve(reg.key); err != nil {
			c.log.Warn("failed to initialize component",
				zap.String("key", reg.key),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("initialize %q: %w", reg.key, err))
		}
	}
	return errors.Join(errs...)
}

// Close tears the container down: for every singleton with a live instance
// and a cleanup, the cleanup runs in reverse registration order. A failing
// cleanup is logged and collected but never blocks earlier-registered
// cleanups. Afterwards all cached instances are nulled and the initialized
// flag is cleared, so the container can be re-initialized.
func (c *Container) Close() error {
	c.mu.Lock()
	order := make([]*registration, len(c.order))
	copy(order, c.order)
	c.initialized = false
	c.mu.Unlock()

	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		reg := order[i]
		reg.mu.Lock()
		if reg.created && reg.cleanup != nil {
			if err := reg.cleanup(reg.instance); err != nil {
				c.log.Warn("component cleanup failed",
					zap.String("key", reg.key),
					zap.Error(err),
				)
				errs = append(errs, fmt.Errorf("close %q: %w", reg.key, err))
			}
		}
		reg.instance = nil
		reg.created = false
		reg.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Reset closes the container and clears the entire registration table.
func (c *Container) Reset() error {
	err := c.Close()

	c.mu.Lock()
	c.regs = make(map[string]*registration)
	c.order = nil
	c.mu.Unlock()
	return err
}

// Keys returns the primary keys of all registrations in registration
// order, mainly for diagnostics.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, len(c.order))
	for i, reg := range c.order {
		keys[i] = reg.key
	}
	return keys
}
