package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/roster/pkg/kv"
)

// ErrBackendNotRegistered is returned by [Registry.Open] when no factory is
// registered for the configured backend.
var ErrBackendNotRegistered = errors.New("config: storage backend not registered")

// BackendFactory opens a persistence adapter from its configuration.
type BackendFactory func(ctx context.Context, cfg StorageConfig) (kv.Store, error)

// Registry maps storage backend names to factories. It keeps the config
// package free of database drivers; main registers what it links in. It is
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[Backend]BackendFactory
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Backend]BackendFactory)}
}

// Register installs factory for backend, replacing any earlier one.
func (r *Registry) Register(backend Backend, factory BackendFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[backend] = factory
}

// Backends lists the registered backend names, sorted.
func (r *Registry) Backends() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, 0, len(r.factories))
	for b := range r.factories {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

// Open builds the store for cfg.Backend and wraps it with cfg.KeyPrefix
// when one is set.
func (r *Registry) Open(ctx context.Context, cfg StorageConfig) (kv.Store, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, cfg.Backend)
	}
	s, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: open %s storage: %w", cfg.Backend, err)
	}
	if cfg.KeyPrefix != "" {
		s = kv.Prefixed(s, cfg.KeyPrefix)
	}
	return s, nil
}
