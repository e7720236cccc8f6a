package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by [ApplyEnv].
const EnvPrefix = "ROSTER_"

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, applies environment overrides and
// defaults, and validates the result. Unknown keys are rejected. An empty
// document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any ROSTER_* variables that are set, for
// example ROSTER_STORAGE_BACKEND or ROSTER_REPLICATION_INTERVAL. Unset
// variables leave the YAML values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("config: parse env: %w", err)
	}
	return nil
}

// Validate checks that cfg is coherent and returns every problem found,
// joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	st := cfg.Storage
	switch {
	case st.Backend == "":
	case !st.Backend.IsValid():
		errs = append(errs, fmt.Errorf("storage.backend %q is invalid; valid values: memory, file, postgres, sqlite", st.Backend))
	case st.Backend == BackendFile && st.Dir == "":
		errs = append(errs, errors.New("storage.dir is required when backend is file"))
	case st.Backend == BackendPostgres && st.PostgresDSN == "":
		errs = append(errs, errors.New("storage.postgres_dsn is required when backend is postgres"))
	case st.Backend == BackendSQLite && st.SQLitePath == "":
		errs = append(errs, errors.New("storage.sqlite_path is required when backend is sqlite"))
	}

	if cfg.Replication.Interval < 0 {
		errs = append(errs, fmt.Errorf("replication.interval %s must not be negative", cfg.Replication.Interval))
	} else if cfg.Replication.Enabled && cfg.Replication.Interval != 0 && cfg.Replication.Interval < MinReplicationInterval {
		errs = append(errs, fmt.Errorf("replication.interval %s is below the minimum of %s", cfg.Replication.Interval, MinReplicationInterval))
	}
	if cfg.Replication.Enabled && (st.Backend == "" || st.Backend == BackendMemory) {
		slog.Warn("replication is enabled with the memory backend; no other process can write to it")
	}

	if cfg.MCP.Transport != "" && !cfg.MCP.Transport.IsValid() {
		errs = append(errs, fmt.Errorf("mcp.transport %q is invalid; valid values: stdio, http", cfg.MCP.Transport))
	}
	if cfg.MCP.Enabled && cfg.MCP.Transport == MCPHTTP && cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("mcp.transport http requires server.listen_addr"))
	}

	for i, f := range cfg.Seed.Files {
		if f == "" {
			errs = append(errs, fmt.Errorf("seed.files[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}
