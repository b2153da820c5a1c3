package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// ItemCatalog caches the item catalogue over an ItemStore. The scan
// coordinator consults it per item name on every document, so lookups are
// served from memory after the first load.
//
// Extraction policy: item names absent from the catalogue are skipped, not
// stored. The catalogue, not the source, decides what is worth keeping.
type ItemCatalog struct {
	store driven.ItemStore

	mu     sync.RWMutex
	byName map[string]domain.Item
}

// NewItemCatalog creates a catalogue backed by the given store.
func NewItemCatalog(store driven.ItemStore) *ItemCatalog {
	return &ItemCatalog{
		store:  store,
		byName: make(map[string]domain.Item),
	}
}

// Load warms the cache from the store.
func (c *ItemCatalog) Load(ctx context.Context) error {
	items, err := c.store.ListItems(ctx)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byName = make(map[string]domain.Item, len(items))
	for _, item := range items {
		c.byName[item.NameLC] = item
	}
	return nil
}

// Lookup resolves an item name (case-insensitive) to its catalogue entry.
// Returns false when the name is not catalogued.
func (c *ItemCatalog) Lookup(ctx context.Context, name string) (*domain.Item, bool, error) {
	key := domain.NormaliseItemName(name)
	if key == "" {
		return nil, false, nil
	}

	c.mu.RLock()
	item, ok := c.byName[key]
	c.mu.RUnlock()
	if ok {
		return &item, true, nil
	}

	// Cache miss: the store may have been seeded by another process.
	stored, err := c.store.GetItemByName(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get item %q: %w", key, err)
	}

	c.mu.Lock()
	c.byName[stored.NameLC] = *stored
	c.mu.Unlock()
	return stored, true, nil
}

// Seed upserts catalogue entries and refreshes the cache.
func (c *ItemCatalog) Seed(ctx context.Context, items []domain.Item) error {
	for _, item := range items {
		entry, err := domain.NewItem(item.Name, item.NotesFilter)
		if err != nil {
			return err
		}
		stored, err := c.store.UpsertItem(ctx, *entry)
		if err != nil {
			return fmt.Errorf("upsert item %q: %w", item.Name, err)
		}
		c.mu.Lock()
		c.byName[stored.NameLC] = *stored
		c.mu.Unlock()
	}
	return nil
}

// Items returns the cached catalogue entries.
func (c *ItemCatalog) Items() []domain.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Item, 0, len(c.byName))
	for _, item := range c.byName {
		out = append(out, item)
	}
	return out
}
