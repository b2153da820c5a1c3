package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Ensure ScanStateStore implements the interface.
var _ driven.ScanStateStore = (*ScanStateStore)(nil)

// ScanStateStore is an in-memory implementation of driven.ScanStateStore.
type ScanStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.ScanState // plan ID + canon name -> state
}

// NewScanStateStore creates a new in-memory scan state store.
func NewScanStateStore() *ScanStateStore {
	return &ScanStateStore{
		states: make(map[string]domain.ScanState),
	}
}

func scanStateKey(planID, canonName string) string {
	return planID + "\x1f" + domain.NormaliseItemName(canonName)
}

// Get retrieves the watermark for one canonical view of a plan.
func (s *ScanStateStore) Get(_ context.Context, planID, canonName string) (*domain.ScanState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[scanStateKey(planID, canonName)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &state, nil
}

// Save stores or updates a watermark keyed by (plan_id, canon_name).
func (s *ScanStateStore) Save(_ context.Context, state domain.ScanState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[scanStateKey(state.PlanID, state.CanonName)] = state
	return nil
}

// Delete removes all watermarks for a plan.
func (s *ScanStateStore) Delete(_ context.Context, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := planID + "\x1f"
	for key := range s.states {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.states, key)
		}
	}
	return nil
}

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.ScanRun
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.ScanRun),
	}
}

// StartRun records the beginning of a plan scan.
func (s *RunStore) StartRun(_ context.Context, run *domain.ScanRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = *run
	return nil
}

// FinishRun records the outcome of a plan scan.
func (s *RunStore) FinishRun(_ context.Context, run *domain.ScanRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	s.runs[run.ID] = *run
	return nil
}

// ListRuns returns the most recent runs for a plan, newest first.
func (s *RunStore) ListRuns(_ context.Context, planID string, limit int) ([]domain.ScanRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.ScanRun, 0)
	for _, run := range s.runs {
		if run.PlanID == planID {
			result = append(result, run)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
