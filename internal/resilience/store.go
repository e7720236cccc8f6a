package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/roster/pkg/kv"
)

// StoreFailure reports whether a persistence error says anything about the
// health of the backend. Missing keys and cancelled requests do not.
func StoreFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, kv.ErrNotFound) &&
		!errors.Is(err, context.Canceled)
}

// GuardStore routes every call to s through b. Ping goes through the breaker
// too, so readiness fails while the breaker is open. Close is forwarded
// directly.
func GuardStore(s kv.Store, b *Breaker) kv.Store {
	return &guarded{inner: s, breaker: b}
}

type guarded struct {
	inner   kv.Store
	breaker *Breaker
}

func (g *guarded) Load(ctx context.Context, key string) (value string, err error) {
	err = g.breaker.Do(func() error {
		var loadErr error
		value, loadErr = g.inner.Load(ctx, key)
		return loadErr
	})
	return value, err
}

func (g *guarded) Save(ctx context.Context, key, value string) error {
	return g.breaker.Do(func() error { return g.inner.Save(ctx, key, value) })
}

func (g *guarded) Clear(ctx context.Context, key string) error {
	return g.breaker.Do(func() error { return g.inner.Clear(ctx, key) })
}

func (g *guarded) Ping(ctx context.Context) error {
	p, ok := g.inner.(kv.Pinger)
	if !ok {
		return nil
	}
	return g.breaker.Do(func() error { return p.Ping(ctx) })
}

func (g *guarded) Close() error {
	if c, ok := g.inner.(kv.Closer); ok {
		return c.Close()
	}
	return nil
}
