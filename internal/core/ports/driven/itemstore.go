package driven

import (
	"context"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// ItemStore persists the item catalogue.
type ItemStore interface {
	// UpsertItem stores an item keyed by its lower-cased name.
	// An existing item keeps its ID; only NotesFilter is updated.
	// Returns the stored item with its ID populated.
	UpsertItem(ctx context.Context, item domain.Item) (*domain.Item, error)

	// GetItemByName retrieves an item by name (case-insensitive).
	GetItemByName(ctx context.Context, name string) (*domain.Item, error)

	// ListItems returns the whole catalogue.
	ListItems(ctx context.Context) ([]domain.Item, error)
}
