// Package catalog holds the canonical item and banner lists for a game
// and resolves noisy OCR text against them.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Entry is one canonical catalog row. Aliases collect known OCR
// mis-readings that should resolve to this entry exactly.
type Entry struct {
	ID          string
	DisplayName string
	Rarity      int
	Category    string
	Aliases     []string
}

// Catalog is an immutable lookup table built once per game.
type Catalog struct {
	entries []Entry
	byID    map[string]int
	byName  map[string]string // display name or alias -> entry ID
}

func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}
	c := &Catalog{
		byID:   make(map[string]int, len(entries)),
		byName: make(map[string]string, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d: missing id", i)
		}
		if e.DisplayName == "" {
			return nil, fmt.Errorf("entry %q: missing display name", e.ID)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate id %q", e.ID)
		}
		if prev, dup := c.byName[e.DisplayName]; dup {
			return nil, fmt.Errorf("name %q claimed by both %q and %q", e.DisplayName, prev, e.ID)
		}
		c.byID[e.ID] = i
		c.byName[e.DisplayName] = e.ID
		for _, a := range e.Aliases {
			if a == "" || a == e.DisplayName {
				continue
			}
			if prev, dup := c.byName[a]; dup && prev != e.ID {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", a, prev, e.ID)
			}
			c.byName[a] = e.ID
		}
		c.entries = append(c.entries, e)
	}
	return c, nil
}

func (c *Catalog) Get(id string) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Lookup resolves a display name or alias to its entry.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	id, ok := c.byName[name]
	if !ok {
		return Entry{}, false
	}
	return c.Get(id)
}

// All returns entries ordered by ID.
func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *Catalog) Len() int { return len(c.entries) }

// file shape for data/catalog/game_catalog_<id>.json
type rawEntry struct {
	DisplayName string   `json:"display_name"`
	Rarity      int      `json:"rarity"`
	Category    string   `json:"category"`
	Aliases     []string `json:"aliases"`
}

type rawCatalogFile struct {
	Items   map[string]rawEntry `json:"item"`
	Banners map[string]rawEntry `json:"pool"`
}

// Set bundles the two catalogs a game needs.
type Set struct {
	Items   *Catalog
	Banners *Catalog
}

// LoadGame reads data/catalog/game_catalog_<gameID>.json from dir and
// builds both catalogs.
func LoadGame(dir, gameID string) (*Set, error) {
	path := filepath.Join(dir, "game_catalog_"+gameID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", gameID, err)
	}
	var raw rawCatalogFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", gameID, err)
	}
	items, err := fromRaw(raw.Items)
	if err != nil {
		return nil, fmt.Errorf("catalog %s items: %w", gameID, err)
	}
	banners, err := fromRaw(raw.Banners)
	if err != nil {
		return nil, fmt.Errorf("catalog %s banners: %w", gameID, err)
	}
	return &Set{Items: items, Banners: banners}, nil
}

func fromRaw(m map[string]rawEntry) (*Catalog, error) {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		r := m[id]
		entries = append(entries, Entry{
			ID:          id,
			DisplayName: r.DisplayName,
			Rarity:      r.Rarity,
			Category:    r.Category,
			Aliases:     r.Aliases,
		})
	}
	return New(entries)
}
