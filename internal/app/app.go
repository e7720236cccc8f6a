// Package app wires the roster subsystems into a running service.
//
// New opens the persistence adapter, loads the documents into the tracker,
// seeds a fresh store, and builds the replication controller, the live push
// hub, the MCP tool server and the HTTP mux. Run serves until the context is
// cancelled; Shutdown releases everything in order.
//
// Tests inject doubles through functional options (WithDocuments,
// WithMetrics); anything not injected is built from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/roster/internal/config"
	"github.com/MrWong99/roster/internal/health"
	"github.com/MrWong99/roster/internal/live"
	"github.com/MrWong99/roster/internal/mcpserver"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/replicate"
	"github.com/MrWong99/roster/internal/resilience"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/internal/tracker"
	"github.com/MrWong99/roster/pkg/kv"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// App owns every subsystem of the service.
type App struct {
	cfg      *config.Config
	registry *config.Registry
	metrics  *observe.Metrics
	version  string

	docs        kv.Store
	tracker     *tracker.Service
	replication *replicate.Controller
	hub         *live.Hub
	mcp         *mcpserver.Server
	handler     http.Handler

	// closers run in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithRegistry sets the storage backend registry. Defaults to one that knows
// the memory and file backends.
func WithRegistry(r *config.Registry) Option {
	return func(a *App) { a.registry = r }
}

// WithDocuments injects a persistence adapter instead of opening one from
// config. The caller keeps ownership of it.
func WithDocuments(s kv.Store) Option {
	return func(a *App) { a.docs = s }
}

// WithMetrics sets the instruments every subsystem records to. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// DefaultRegistry returns a registry with the backends that need no driver.
func DefaultRegistry() *config.Registry {
	r := config.NewRegistry()
	r.Register(config.BackendMemory, func(context.Context, config.StorageConfig) (kv.Store, error) {
		return kv.NewMemStore(), nil
	})
	r.Register(config.BackendFile, func(_ context.Context, c config.StorageConfig) (kv.Store, error) {
		s, err := kv.NewFileStore(c.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	return r
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New builds the service. On error everything opened so far is released.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	a := &App{cfg: cfg, version: "dev"}
	for _, o := range opts {
		o(a)
	}
	if a.registry == nil {
		a.registry = DefaultRegistry()
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// ── 1. Persistence adapter ──────────────────────────────────────────
	if err := a.initDocuments(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	// ── 2. Tracker ──────────────────────────────────────────────────────
	if err := a.initTracker(ctx); err != nil {
		return nil, fmt.Errorf("app: init tracker: %w", err)
	}

	// ── 3. Live push + replication ──────────────────────────────────────
	a.initLive()

	// ── 4. MCP ──────────────────────────────────────────────────────────
	if cfg.MCP.Enabled {
		a.mcp = mcpserver.New(a.tracker, mcpserver.WithMetrics(a.metrics), mcpserver.WithVersion(a.version))
	}

	// ── 5. HTTP ─────────────────────────────────────────────────────────
	a.handler = a.buildHandler()

	return a, nil
}

func (a *App) initDocuments(ctx context.Context) error {
	if a.docs != nil {
		return nil
	}
	docs, err := a.registry.Open(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	if c, ok := docs.(kv.Closer); ok {
		a.closers = append(a.closers, c.Close)
	}
	// Database backends fail fast while the server is unreachable.
	if b := a.cfg.Storage.Backend; b == config.BackendPostgres || b == config.BackendSQLite {
		docs = resilience.GuardStore(docs, resilience.NewBreaker(resilience.BreakerConfig{
			Name:      "storage/" + string(b),
			IsFailure: resilience.StoreFailure,
		}))
	}
	a.docs = docs
	slog.Info("storage opened", "backend", a.cfg.Storage.Backend, "prefix", a.cfg.Storage.KeyPrefix)
	return nil
}

// initTracker loads the documents and, when nothing had been persisted yet,
// imports the configured seed files.
func (a *App) initTracker(ctx context.Context) error {
	_, err := a.docs.Load(ctx, kv.KeyCharacters)
	fresh := errors.Is(err, kv.ErrNotFound)
	if err != nil && !fresh {
		return fmt.Errorf("probe storage: %w", err)
	}

	a.tracker = tracker.New(roster.NewMemStore(roster.Snapshot{}), a.docs, tracker.WithMetrics(a.metrics))
	if err := a.tracker.Load(ctx); err != nil {
		return err
	}
	if !fresh {
		return nil
	}
	for _, path := range a.cfg.Seed.Files {
		seed, err := roster.LoadSeedFile(path)
		if err != nil {
			return err
		}
		n, err := a.tracker.ImportSeed(ctx, seed)
		if err != nil {
			return fmt.Errorf("import seed %q: %w", path, err)
		}
		slog.Info("imported seed file", "path", path, "records", n)
	}
	return nil
}

func (a *App) initLive() {
	a.hub = live.NewHub(a.tracker.Characters, live.WithMetrics(a.metrics))
	a.closers = append(a.closers, a.hub.Close)

	a.replication = replicate.NewController(replicate.NewKVSource(a.docs), a.tracker, a.cfg.Replication.Interval)
	a.closers = append(a.closers, a.replication.Close)

	// Replicated rosters are installed by the tracker without publishing,
	// so the hub hears about them from the controller.
	unsubReplicated := a.replication.Subscribe(a.hub.Publish)
	unsubLocal := a.tracker.Subscribe(a.hub.Publish)
	a.closers = append(a.closers, func() error {
		unsubReplicated()
		unsubLocal()
		return nil
	})
}

func (a *App) buildHandler() http.Handler {
	mux := http.NewServeMux()
	health.New(
		health.Loaded("documents", a.tracker.Loaded),
		health.Store("storage", a.docs),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /live", a.hub)
	if a.mcp != nil && a.cfg.MCP.Transport == config.MCPHTTP {
		mux.Handle("/mcp", a.mcp.Handler())
	}
	return observe.Middleware(a.metrics)(mux)
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Tracker returns the tracker service.
func (a *App) Tracker() *tracker.Service { return a.tracker }

// Handler returns the HTTP handler Run serves.
func (a *App) Handler() http.Handler { return a.handler }

// Replication returns the live-view controller.
func (a *App) Replication() *replicate.Controller { return a.replication }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP, polls the shared store when replication is enabled and
// serves MCP over stdio when configured. It blocks until ctx is cancelled or
// a server fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Replication.Enabled {
		a.replication.SetLive(gctx, true)
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}
	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: http server: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if a.mcp != nil && a.cfg.MCP.Transport == config.MCPStdio {
		g.Go(func() error {
			err := a.mcp.ServeStdio(gctx)
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("app: mcp stdio: %w", err)
			}
			return nil
		})
	}

	slog.Info("app running",
		"listen_addr", a.cfg.Server.ListenAddr,
		"replication", a.cfg.Replication.Enabled,
		"mcp", a.cfg.MCP.Enabled,
	)
	return g.Wait()
}

// Reconfigure applies the hot-reloadable part of a config change.
func (a *App) Reconfigure(ctx context.Context, d config.ConfigDiff) {
	if d.ReplicationChanged {
		a.replication.SetInterval(ctx, d.Replication.Interval)
		a.replication.SetLive(ctx, d.Replication.Enabled)
		slog.Info("replication reconfigured", "enabled", d.Replication.Enabled, "interval", a.replication.Interval())
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart to take effect", "sections", d.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops polling, disconnects live clients and closes the
// persistence adapter. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// close releases what New opened when New fails.
func (a *App) close() {
	for _, closer := range a.closers {
		_ = closer()
	}
}
