package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Ensure PayloadStore implements the interface.
var _ driven.PayloadStore = (*PayloadStore)(nil)

// PayloadStore is an in-memory implementation of driven.PayloadStore.
type PayloadStore struct {
	mu       sync.Mutex
	payloads map[string][]byte
}

// NewPayloadStore creates a new in-memory payload store.
func NewPayloadStore() *PayloadStore {
	return &PayloadStore{
		payloads: make(map[string][]byte),
	}
}

// Write stores payload bytes under their digest.
// Writing the same digest twice is a no-op.
func (s *PayloadStore) Write(_ context.Context, sha256 string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payloads[sha256]; !ok {
		s.payloads[sha256] = append([]byte(nil), data...)
	}
	return "mem://" + sha256, nil
}

// Get returns stored payload bytes, for tests.
func (s *PayloadStore) Get(sha256 string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.payloads[sha256]
	return data, ok
}
