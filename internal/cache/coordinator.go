// Package cache coordinates client-visible caches of content views. Every
// content kind owns an admin and a public namespace; a confirmed mutation of
// the kind invalidates both.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/steppeindustrial/corpsite/internal/domain"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

const (
	ScopeAdmin  = "admin"
	ScopePublic = "public"
)

// DefaultTTL bounds how long a view stays cached without invalidation.
const DefaultTTL = 5 * time.Minute

// Namespace returns the cache namespace of kind within scope.
func Namespace(scope string, kind domain.Kind) string {
	return scope + ":" + string(kind)
}

// Namespaces returns the namespaces invalidated by a mutation of kind.
func Namespaces(kind domain.Kind) []string {
	return []string{Namespace(ScopeAdmin, kind), Namespace(ScopePublic, kind)}
}

// Store persists cached views and per-namespace generations.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Generation(ctx context.Context, namespace string) (uint64, error)
	Bump(ctx context.Context, namespace string) (uint64, error)
}

// Invalidator is implemented by lower cache layers, such as cached
// repositories, that must be dropped together with the view caches.
type Invalidator interface {
	InvalidateCache(ctx context.Context) error
}

// Coordinator serves read-through view caching and invalidates namespaces
// after confirmed writes.
type Coordinator struct {
	store        Store
	ttl          time.Duration
	invalidators []Invalidator
	logger       interfaces.Logger
}

// Option customises the coordinator.
type Option func(*Coordinator)

// WithTTL sets the lifetime of cached views.
func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInvalidators registers lower cache layers dropped on every invalidation.
func WithInvalidators(invalidators ...Invalidator) Option {
	return func(c *Coordinator) {
		for _, invalidator := range invalidators {
			if invalidator != nil {
				c.invalidators = append(c.invalidators, invalidator)
			}
		}
	}
}

// NewCoordinator returns a coordinator over store. A nil store disables view
// caching while keeping invalidation of registered layers.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		ttl:    DefaultTTL,
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch fills dest from the cache, or runs load to fill it and caches the
// result. The namespace generation is read before load runs, so a load that
// races an invalidation stores its result under a key no later read uses.
func (c *Coordinator) Fetch(ctx context.Context, namespace, key string, dest any, load func(context.Context) error) error {
	if c == nil || c.store == nil {
		return load(ctx)
	}

	generation, err := c.store.Generation(ctx, namespace)
	if err != nil {
		c.logger.Warn("cache.generation_failed", "namespace", namespace, "error", err)
		return load(ctx)
	}
	fullKey := fmt.Sprintf("%s:g%d:%s", namespace, generation, key)

	if data, ok, err := c.store.Get(ctx, fullKey); err != nil {
		c.logger.Warn("cache.get_failed", "key", fullKey, "error", err)
	} else if ok {
		if err := json.Unmarshal(data, dest); err == nil {
			return nil
		}
		c.logger.Warn("cache.decode_failed", "key", fullKey)
	}

	if err := load(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(dest)
	if err != nil {
		c.logger.Warn("cache.encode_failed", "key", fullKey, "error", err)
		return nil
	}
	if err := c.store.Set(ctx, fullKey, data, c.ttl); err != nil {
		c.logger.Warn("cache.set_failed", "key", fullKey, "error", err)
	}
	return nil
}

// Invalidate drops the admin and public namespaces of kind and every
// registered lower layer. Callers invoke it only after the write succeeded.
func (c *Coordinator) Invalidate(ctx context.Context, kind domain.Kind) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.store != nil {
		for _, namespace := range Namespaces(kind) {
			if _, err := c.store.Bump(ctx, namespace); err != nil {
				errs = append(errs, fmt.Errorf("bump %s: %w", namespace, err))
			}
			if err := c.store.DeleteByPrefix(ctx, namespace+":"); err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", namespace, err))
			}
		}
	}
	for _, invalidator := range c.invalidators {
		if err := invalidator.InvalidateCache(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Error("cache.invalidate_failed", "kind", kind, "error", err)
		return err
	}
	c.logger.Debug("cache.invalidated", "kind", kind)
	return nil
}

// InvalidateAll invalidates every known kind.
func (c *Coordinator) InvalidateAll(ctx context.Context) error {
	var errs []error
	for _, kind := range domain.Kinds {
		if err := c.Invalidate(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Key hashes the parameters of a read into a compact cache key.
func Key(parts ...any) string {
	raw, err := json.Marshal(parts)
	if err != nil {
		raw = []byte(fmt.Sprint(parts...))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:12])
}
