package roster

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrMalformed is returned when a document is not valid JSON or does not
// have the expected top-level shape.
var ErrMalformed = errors.New("roster: malformed document")

// Document is the bulk interchange format. Import fills the Has* flags so
// callers can tell an absent collection from an empty one; only present
// collections replace store state.
type Document struct {
	Characters    []Character
	HasCharacters bool

	Badges    []BadgeRule
	HasBadges bool

	Items    []ItemEntry
	HasItems bool

	Recipes    []Recipe
	HasRecipes bool

	// Dropped counts array elements that could not be decoded.
	Dropped int
}

type exportDoc struct {
	Characters []Character `json:"characters"`
	Badges     []BadgeRule `json:"badges"`
	Items      []ItemEntry `json:"itemDatabase"`
	Recipes    []Recipe    `json:"craftingRecipes"`
}

// Export serialises s as an interchange document. The output is indented
// with two spaces and decodes back to an equal snapshot.
func Export(s Snapshot) ([]byte, error) {
	doc := exportDoc{
		Characters: cloneCharacters(s.Characters),
		Badges:     cloneOrEmpty(s.Badges),
		Items:      cloneItems(s.Items),
		Recipes:    cloneRecipes(s.Recipes),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("roster: export: %w", err)
	}
	return b, nil
}

// Import decodes an interchange document. Two forms are accepted:
//   - the wrapped object written by [Export], where every key is optional
//   - a bare array of characters, as written by older versions
//
// Elements that fail to decode are skipped and counted in Document.Dropped.
// Item entries are returned as found; deduplication is left to the caller.
func Import(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, fmt.Errorf("roster: import: %w: invalid json", ErrMalformed)
	}
	root := gjson.ParseBytes(data)

	var doc Document
	switch {
	case root.IsArray():
		doc.Characters, doc.Dropped = decodeList[Character](root)
		doc.HasCharacters = true
	case root.IsObject():
		if v := root.Get("characters"); v.IsArray() {
			var n int
			doc.Characters, n = decodeList[Character](v)
			doc.HasCharacters = true
			doc.Dropped += n
		}
		if v := root.Get("badges"); v.IsArray() {
			var n int
			doc.Badges, n = decodeList[BadgeRule](v)
			doc.HasBadges = true
			doc.Dropped += n
		}
		if v := root.Get("itemDatabase"); v.IsArray() {
			var n int
			doc.Items, n = decodeList[ItemEntry](v)
			doc.HasItems = true
			doc.Dropped += n
		}
		if v := root.Get("craftingRecipes"); v.IsArray() {
			var n int
			doc.Recipes, n = decodeList[Recipe](v)
			doc.HasRecipes = true
			doc.Dropped += n
		}
	default:
		return Document{}, fmt.Errorf("roster: import: %w: expected object or array", ErrMalformed)
	}
	return doc, nil
}

// ─── Storage documents ──────────────────────────────────────────────────────

// Encode serialises one collection the way it is stored under its key.
// Equal collections always encode to identical strings.
func Encode[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("roster: encode: %w", err)
	}
	return string(b), nil
}

// DecodeCharacters parses the stored character collection.
func DecodeCharacters(raw string) ([]Character, error) { return decodeStored[Character](raw) }

// DecodeBadges parses the stored badge collection.
func DecodeBadges(raw string) ([]BadgeRule, error) { return decodeStored[BadgeRule](raw) }

// DecodeItems parses the stored item database. Entries are not deduplicated.
func DecodeItems(raw string) ([]ItemEntry, error) { return decodeStored[ItemEntry](raw) }

// DecodeRecipes parses the stored recipe collection.
func DecodeRecipes(raw string) ([]Recipe, error) { return decodeStored[Recipe](raw) }

func decodeStored[T any](raw string) ([]T, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("roster: decode: %w: invalid json", ErrMalformed)
	}
	root := gjson.Parse(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("roster: decode: %w: expected array", ErrMalformed)
	}
	out, _ := decodeList[T](root)
	return out, nil
}

// decodeList decodes every element of a JSON array independently and
// returns the decoded values with the number of elements it had to skip.
func decodeList[T any](arr gjson.Result) ([]T, int) {
	out := []T{}
	dropped := 0
	arr.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			dropped++
			return true
		}
		var item T
		if err := json.Unmarshal([]byte(v.Raw), &item); err != nil {
			dropped++
			return true
		}
		out = append(out, item)
		return true
	})
	return out, dropped
}
