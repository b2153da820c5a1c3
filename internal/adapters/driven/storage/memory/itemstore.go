package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Ensure ItemStore implements the interface.
var _ driven.ItemStore = (*ItemStore)(nil)

// ItemStore is an in-memory implementation of driven.ItemStore.
type ItemStore struct {
	mu    sync.RWMutex
	items map[string]domain.Item // by lower-cased name
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{
		items: make(map[string]domain.Item),
	}
}

// UpsertItem stores an item keyed by its lower-cased name.
func (s *ItemStore) UpsertItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	if item.NameLC == "" {
		item.NameLC = domain.NormaliseItemName(item.Name)
	}
	if item.NameLC == "" {
		return nil, domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[item.NameLC]; ok {
		existing.NotesFilter = item.NotesFilter
		s.items[item.NameLC] = existing
		return &existing, nil
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	s.items[item.NameLC] = item
	return &item, nil
}

// GetItemByName retrieves an item by name (case-insensitive).
func (s *ItemStore) GetItemByName(_ context.Context, name string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[domain.NormaliseItemName(name)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &item, nil
}

// ListItems returns the whole catalogue.
func (s *ItemStore) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NameLC < result[j].NameLC
	})
	return result, nil
}
