// Command roster is the entry point for the roster tracker service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/roster/internal/app"
	"github.com/MrWong99/roster/internal/config"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/pkg/kv"
	"github.com/MrWong99/roster/pkg/kv/postgres"
	"github.com/MrWong99/roster/pkg/kv/sqlite"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	importPath := flag.String("import", "", "import a JSON export into the store and exit")
	exportPath := flag.String("export", "", "write the store as a JSON export and exit (- for stdout)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, watchable, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "roster: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("roster starting",
		"config", *configPath,
		"version", version,
		"backend", cfg.Storage.Backend,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	application, err := app.New(ctx, cfg, app.WithRegistry(newRegistry()), app.WithVersion(version))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(sctx); err != nil {
			slog.Error("shutdown error", "err", err)
		}
	}()

	// ── One-shot commands ─────────────────────────────────────────────────────
	if *importPath != "" {
		return importFile(ctx, application, *importPath)
	}
	if *exportPath != "" {
		return exportFile(ctx, application, *exportPath)
	}

	// ── Hot reload ────────────────────────────────────────────────────────────
	if watchable {
		w, err := config.NewWatcher(*configPath, func(d config.ConfigDiff, _ *config.Config) {
			if d.LogLevelChanged {
				level.Set(slogLevel(d.NewLogLevel))
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			application.Reconfigure(ctx, d)
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("server ready, press Ctrl+C to shut down")
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// loadConfig loads path, falling back to defaults plus environment overrides
// when the file does not exist. watchable reports whether the file exists.
func loadConfig(path string) (cfg *config.Config, watchable bool, err error) {
	cfg, err = config.Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	fmt.Fprintf(os.Stderr, "roster: config file %q not found, using defaults (see configs/example.yaml)\n", path)
	cfg = &config.Config{}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, false, err
	}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// newRegistry returns the default backends plus the database drivers.
func newRegistry() *config.Registry {
	reg := app.DefaultRegistry()
	reg.Register(config.BackendPostgres, func(ctx context.Context, c config.StorageConfig) (kv.Store, error) {
		s, err := postgres.Open(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	reg.Register(config.BackendSQLite, func(_ context.Context, c config.StorageConfig) (kv.Store, error) {
		s, err := sqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	for _, b := range reg.Backends() {
		slog.Debug("registered storage backend", "backend", b)
	}
	return reg
}

func importFile(ctx context.Context, a *app.App, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("import failed", "err", err)
		return 1
	}
	doc, err := a.Tracker().Import(ctx, data)
	if err != nil {
		slog.Error("import failed", "path", path, "err", err)
		return 1
	}
	slog.Info("import complete",
		"path", path,
		"characters", len(doc.Characters),
		"badges", len(doc.Badges),
		"items", len(doc.Items),
		"recipes", len(doc.Recipes),
	)
	return 0
}

func exportFile(ctx context.Context, a *app.App, path string) int {
	data, err := a.Tracker().Export(ctx)
	if err != nil {
		slog.Error("export failed", "err", err)
		return 1
	}
	if path == "-" {
		_, err = os.Stdout.Write(append(data, '\n'))
	} else {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		slog.Error("export failed", "path", path, "err", err)
		return 1
	}
	return 0
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
