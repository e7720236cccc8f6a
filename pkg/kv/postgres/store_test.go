package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/roster/pkg/kv"
)

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFunc(ctx, sql, args...)
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFunc(ctx, sql, args...)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("existing key", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(_ context.Context, sql string, args ...any) pgx.Row {
				if !strings.Contains(sql, "roster_documents") {
					t.Errorf("unexpected query: %s", sql)
				}
				if args[0] != kv.KeyBadges {
					t.Errorf("key arg = %v, want %q", args[0], kv.KeyBadges)
				}
				return &mockRow{scanFunc: func(dest ...any) error {
					*dest[0].(*string) = `[]`
					return nil
				}}
			},
		}
		got, err := New(db).Load(context.Background(), kv.KeyBadges)
		if err != nil {
			t.Fatalf("Load: unexpected error: %v", err)
		}
		if got != `[]` {
			t.Errorf("Load = %q, want %q", got, `[]`)
		}
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		t.Parallel()
		db := &mockDB{
			queryRowFunc: func(context.Context, string, ...any) pgx.Row {
				return &mockRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
			},
		}
		_, err := New(db).Load(context.Background(), "missing")
		if !errors.Is(err, kv.ErrNotFound) {
			t.Fatalf("Load: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("driver error is wrapped", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("connection reset")
		db := &mockDB{
			queryRowFunc: func(context.Context, string, ...any) pgx.Row {
				return &mockRow{scanFunc: func(...any) error { return boom }}
			},
		}
		_, err := New(db).Load(context.Background(), "k")
		if !errors.Is(err, boom) {
			t.Fatalf("Load: expected wrapped driver error, got %v", err)
		}
	})
}

func TestSaveUpserts(t *testing.T) {
	t.Parallel()

	var gotSQL string
	var gotArgs []any
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			gotArgs = args
			return pgconn.NewCommandTag("INSERT 0 1"), nil
		},
	}
	if err := New(db).Save(context.Background(), kv.KeyRecipes, `[{"name":"Sword"}]`); err != nil {
		t.Fatalf("Save: unexpected error: %v", err)
	}
	if !strings.Contains(gotSQL, "ON CONFLICT (key) DO UPDATE") {
		t.Errorf("Save should upsert, got SQL: %s", gotSQL)
	}
	if len(gotArgs) != 2 || gotArgs[0] != kv.KeyRecipes || gotArgs[1] != `[{"name":"Sword"}]` {
		t.Errorf("Save args = %v", gotArgs)
	}
}

func TestClearAndMigrate(t *testing.T) {
	t.Parallel()

	var statements []string
	db := &mockDB{
		execFunc: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			statements = append(statements, sql)
			return pgconn.CommandTag{}, nil
		},
	}
	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := s.Clear(context.Background(), kv.KeyItems); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(statements))
	}
	if !strings.Contains(statements[0], "CREATE TABLE IF NOT EXISTS roster_documents") {
		t.Errorf("Migrate SQL = %s", statements[0])
	}
	if !strings.HasPrefix(strings.TrimSpace(statements[1]), "DELETE FROM roster_documents") {
		t.Errorf("Clear SQL = %s", statements[1])
	}
}
