package domain

import (
	"fmt"
	"strings"
)

// Item is a normalised field definition in the item catalogue.
type Item struct {
	// ID is the unique identifier for the item.
	ID string

	// Name is the item name as first observed in the source.
	Name string

	// NameLC is the canonical lower-cased lookup key.
	// Invariant: unique, always strings.ToLower(Name).
	NameLC string

	// NotesFilter flags whether values of this item are subject to a
	// redaction/suppression rule at read time.
	NotesFilter bool
}

// NewItem builds an item with its lookup key derived from the name.
func NewItem(name string, notesFilter bool) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	return &Item{
		Name:        name,
		NameLC:      strings.ToLower(name),
		NotesFilter: notesFilter,
	}, nil
}

// NormaliseItemName returns the canonical lookup key for an item name.
func NormaliseItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
