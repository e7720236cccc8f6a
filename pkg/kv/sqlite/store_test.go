package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/MrWong99/roster/pkg/kv"
	"github.com/MrWong99/roster/pkg/kv/sqlite"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "roster.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if _, err := s.Load(ctx, kv.KeyCharacters); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Load on empty db: expected ErrNotFound, got %v", err)
	}

	if err := s.Save(ctx, kv.KeyCharacters, `[{"name":"Rio"}]`); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, kv.KeyCharacters, `[{"name":"Mara"}]`); err != nil {
		t.Fatalf("Save overwrite: %v", err)
	}

	got, err := s.Load(ctx, kv.KeyCharacters)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != `[{"name":"Mara"}]` {
		t.Errorf("Load = %q, want overwritten document", got)
	}

	if err := s.Clear(ctx, kv.KeyCharacters); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Load(ctx, kv.KeyCharacters); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Load after Clear: expected ErrNotFound, got %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := sqlite.Open("  "); err == nil {
		t.Fatal("Open with blank path: expected error")
	}
}
