package kv_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/roster/pkg/kv"
)

func TestStores(t *testing.T) {
	t.Parallel()

	fileStore, err := kv.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	stores := map[string]kv.Store{
		"memory":   kv.NewMemStore(),
		"zero mem": &kv.MemStore{},
		"file":     fileStore,
		"prefixed": kv.Prefixed(kv.NewMemStore(), "campaign1:"),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			if _, err := s.Load(ctx, kv.KeyItems); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Load missing: expected ErrNotFound, got %v", err)
			}
			if err := s.Save(ctx, kv.KeyItems, `[]`); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx, kv.KeyItems)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got != `[]` {
				t.Errorf("Load = %q, want %q", got, `[]`)
			}
			if err := s.Clear(ctx, kv.KeyItems); err != nil {
				t.Fatalf("Clear: %v", err)
			}
			if err := s.Clear(ctx, kv.KeyItems); err != nil {
				t.Fatalf("Clear twice: %v", err)
			}
			if _, err := s.Load(ctx, kv.KeyItems); !errors.Is(err, kv.ErrNotFound) {
				t.Fatalf("Load after Clear: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestPrefixedIsolatesKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := kv.NewMemStore()
	a := kv.Prefixed(inner, "a:")
	b := kv.Prefixed(inner, "b:")

	if err := a.Save(ctx, kv.KeyBadges, "A"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(ctx, kv.KeyBadges); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("prefix b should not see prefix a's document, got %v", err)
	}
	raw, err := inner.Load(ctx, "a:"+kv.KeyBadges)
	if err != nil || raw != "A" {
		t.Fatalf("inner Load = %q, %v", raw, err)
	}
	if kv.Prefixed(inner, "") != kv.Store(inner) {
		t.Error("empty prefix should return the store unchanged")
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := kv.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), "../escape", "x"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(s.Path("../escape")) != dir {
		t.Errorf("Path escaped the store directory: %s", s.Path("../escape"))
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file, got %d", len(entries))
	}
}
