package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/roster/internal/config"
)

const baseYAML = `
server:
  log_level: info
storage:
  backend: file
  dir: /var/lib/roster
replication:
  enabled: true
  interval: 2s
`

type change struct {
	diff config.ConfigDiff
	cfg  *config.Config
}

// watch writes baseYAML, starts a fast watcher on it and returns the file
// path and a channel receiving every reported change.
func watch(t *testing.T) (string, *config.Watcher, <-chan change) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	write(t, path, baseYAML)

	changes := make(chan change, 4)
	w, err := config.NewWatcher(path, func(d config.ConfigDiff, cfg *config.Config) {
		changes <- change{d, cfg}
	}, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: unexpected error: %v", err)
	}
	t.Cleanup(w.Stop)
	return path, w, changes
}

// write replaces the file and pushes its mtime forward so that coarse
// filesystem timestamps still register the edit.
func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
	bump(t, path)
}

var bumps = time.Now()

func bump(t *testing.T, path string) {
	t.Helper()
	bumps = bumps.Add(time.Second)
	if err := os.Chtimes(path, bumps, bumps); err != nil {
		t.Fatalf("chtimes %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	_, w, _ := watch(t)
	cfg := w.Current()
	if cfg.Server.LogLevel != config.LogInfo || cfg.Replication.Interval != 2*time.Second {
		t.Errorf("Current() = %+v, want info level and 2s interval", cfg)
	}

	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Error("NewWatcher: expected error for a missing file")
	}
}

func TestWatcher_ReportsDiff(t *testing.T) {
	path, w, changes := watch(t)

	write(t, path, `
server:
  log_level: debug
storage:
  backend: file
  dir: /var/lib/roster
replication:
  enabled: true
  interval: 500ms
`)

	select {
	case c := <-changes:
		if !c.diff.LogLevelChanged || c.diff.NewLogLevel != config.LogDebug {
			t.Errorf("diff log level = %+v, want debug", c.diff)
		}
		if !c.diff.ReplicationChanged || c.diff.Replication.Interval != 500*time.Millisecond {
			t.Errorf("diff replication = %+v, want 500ms", c.diff.Replication)
		}
		if len(c.diff.RestartRequired) != 0 {
			t.Errorf("RestartRequired = %v, want none", c.diff.RestartRequired)
		}
		if c.cfg.Server.LogLevel != config.LogDebug {
			t.Errorf("cfg log level = %q, want debug", c.cfg.Server.LogLevel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	if got := w.Current().Server.LogLevel; got != config.LogDebug {
		t.Errorf("Current() log level = %q, want debug", got)
	}
}

func TestWatcher_Silent(t *testing.T) {
	tests := []struct {
		name string
		edit func(t *testing.T, path string)
	}{
		{name: "touch only", edit: func(t *testing.T, path string) { bump(t, path) }},
		{name: "comment only", edit: func(t *testing.T, path string) { write(t, path, "# tuned\n"+baseYAML) }},
		{name: "seed list only", edit: func(t *testing.T, path string) {
			write(t, path, baseYAML+"seed:\n  files: [party.yaml]\n")
		}},
		{name: "invalid edit", edit: func(t *testing.T, path string) { write(t, path, "server:\n  log_level: bananas\n") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, w, changes := watch(t)
			tt.edit(t, path)

			select {
			case c := <-changes:
				t.Fatalf("unexpected change reported: %+v", c.diff)
			case <-time.After(200 * time.Millisecond):
			}
			if got := w.Current().Server.LogLevel; got != config.LogInfo {
				t.Errorf("Current() log level = %q, want info", got)
			}
		})
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	_, w, _ := watch(t)
	w.Stop()
	w.Stop()
}
