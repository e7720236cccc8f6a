package tracker

import (
	"context"
	"fmt"

	"github.com/MrWong99/roster/internal/itemdb"
	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/roster"
	"github.com/MrWong99/roster/pkg/kv"
)

// Export serialises the whole store as an interchange document.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker: export: %w", err)
	}
	return roster.Export(snap)
}

// Import replaces the collections present in data and persists them. A bare
// character array replaces only the roster. An imported item database is
// cleaned the same way as at load time. The decoded document is returned so
// callers can report what was replaced and how many records were dropped.
func (s *Service) Import(ctx context.Context, data []byte) (doc roster.Document, err error) {
	ctx, span := observe.StartSpan(ctx, "tracker.Import")
	defer func() { observe.EndSpan(span, err) }()

	doc, err = roster.Import(data)
	if err != nil {
		return roster.Document{}, fmt.Errorf("tracker: import: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	if doc.HasBadges {
		if err := s.store.ReplaceBadges(ctx, doc.Badges); err != nil {
			return doc, fmt.Errorf("tracker: import: %w", err)
		}
		keys = append(keys, kv.KeyBadges)
	}
	if doc.HasItems {
		cleaned, removed := itemdb.Validate(doc.Items)
		doc.Items = cleaned
		doc.Dropped += removed
		if err := s.store.ReplaceItems(ctx, cleaned); err != nil {
			return doc, fmt.Errorf("tracker: import: %w", err)
		}
		keys = append(keys, kv.KeyItems)
	}
	if doc.HasRecipes {
		if err := s.store.ReplaceRecipes(ctx, doc.Recipes); err != nil {
			return doc, fmt.Errorf("tracker: import: %w", err)
		}
		keys = append(keys, kv.KeyRecipes)
	}
	if doc.HasCharacters {
		if err := s.store.ReplaceCharacters(ctx, doc.Characters); err != nil {
			return doc, fmt.Errorf("tracker: import: %w", err)
		}
	}

	observe.Logger(ctx).Info("tracker: imported",
		"characters", len(doc.Characters),
		"badges", len(doc.Badges),
		"items", len(doc.Items),
		"recipes", len(doc.Recipes),
		"dropped", doc.Dropped,
	)
	if err := s.persist(ctx, keys...); err != nil {
		return doc, err
	}
	if doc.HasCharacters {
		return doc, s.charactersChanged(ctx)
	}
	return doc, nil
}

// ImportSeed adds the records of a seed file to the store and persists
// everything. It returns the number of records added.
func (s *Service) ImportSeed(ctx context.Context, seed *roster.SeedFile) (int, error) {
	var n int
	err := s.mutate(ctx, "ImportSeed", func() error {
		var err error
		n, err = roster.ImportSeed(ctx, s.store, seed)
		return err
	}, kv.Keys...)
	return n, err
}

// Summary aggregates the roster for the summary panel.
func (s *Service) Summary(ctx context.Context) (roster.Summary, error) {
	cs, err := s.store.Characters(ctx)
	if err != nil {
		return roster.Summary{}, fmt.Errorf("tracker: summary: %w", err)
	}
	return roster.Summarize(cs), nil
}

// Suggestions returns every item name worth offering when typing an item:
// database names plus inventory names, sorted case-insensitively.
func (s *Service) Suggestions(ctx context.Context) ([]string, error) {
	es, err := s.store.Items(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker: suggestions: %w", err)
	}
	cs, err := s.store.Characters(ctx)
	if err != nil {
		return nil, fmt.Errorf("tracker: suggestions: %w", err)
	}
	return itemdb.Suggestions(es, cs), nil
}
