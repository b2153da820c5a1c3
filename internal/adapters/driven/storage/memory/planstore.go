package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Ensure PlanStore implements the interface.
var _ driven.PlanStore = (*PlanStore)(nil)

// PlanStore is an in-memory implementation of driven.PlanStore.
type PlanStore struct {
	mu    sync.RWMutex
	plans map[string]domain.Plan               // by ID
	keys  map[string]string                    // natural key -> ID
	views map[string]map[string]domain.PlanView // plan ID -> canon name (lower) -> view
}

// NewPlanStore creates a new in-memory plan store.
func NewPlanStore() *PlanStore {
	return &PlanStore{
		plans: make(map[string]domain.Plan),
		keys:  make(map[string]string),
		views: make(map[string]map[string]domain.PlanView),
	}
}

// UpsertPlan stores a plan keyed by (server_name, filepath).
func (s *PlanStore) UpsertPlan(_ context.Context, plan domain.Plan) (*domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	key := plan.NaturalKey()
	if id, ok := s.keys[key]; ok {
		existing := s.plans[id]
		existing.Enabled = plan.Enabled
		existing.Notes = plan.Notes
		existing.UpdatedAt = now
		s.plans[id] = existing
		return &existing, nil
	}

	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	plan.CreatedAt = now
	plan.UpdatedAt = now
	s.plans[plan.ID] = plan
	s.keys[key] = plan.ID
	return &plan, nil
}

// GetPlan retrieves a plan by ID.
func (s *PlanStore) GetPlan(_ context.Context, id string) (*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	plan, ok := s.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &plan, nil
}

// FindPlan retrieves a plan by its natural key.
func (s *PlanStore) FindPlan(_ context.Context, serverName, filepath string) (*domain.Plan, error) {
	probe := domain.Plan{ServerName: serverName, Filepath: filepath}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.keys[probe.NaturalKey()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	plan := s.plans[id]
	return &plan, nil
}

// ListPlans returns all configured plans.
func (s *PlanStore) ListPlans(_ context.Context) ([]domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Plan, 0, len(s.plans))
	for _, plan := range s.plans {
		result = append(result, plan)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NaturalKey() < result[j].NaturalKey()
	})
	return result, nil
}

// DeletePlan removes a plan and its views.
func (s *PlanStore) DeletePlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.plans[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.keys, plan.NaturalKey())
	delete(s.plans, id)
	delete(s.views, id)
	return nil
}

// UpsertView stores a plan view keyed by (plan_id, canon_name).
func (s *PlanStore) UpsertView(_ context.Context, view domain.PlanView) (*domain.PlanView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[view.PlanID]; !ok {
		return nil, domain.ErrNotFound
	}
	byCanon, ok := s.views[view.PlanID]
	if !ok {
		byCanon = make(map[string]domain.PlanView)
		s.views[view.PlanID] = byCanon
	}

	key := domain.NormaliseItemName(view.CanonName)
	if existing, ok := byCanon[key]; ok {
		existing.Priority = view.Priority
		existing.Enabled = view.Enabled
		existing.RegexOverride = view.RegexOverride
		byCanon[key] = existing
		return &existing, nil
	}

	if view.ID == "" {
		view.ID = uuid.NewString()
	}
	byCanon[key] = view
	return &view, nil
}

// ListViews returns all views for a plan, ordered by (priority, canon_name).
func (s *PlanStore) ListViews(_ context.Context, planID string) ([]domain.PlanView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.PlanView, 0, len(s.views[planID]))
	for _, view := range s.views[planID] {
		result = append(result, view)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority != result[j].Priority {
			return result[i].Priority < result[j].Priority
		}
		return result[i].CanonName < result[j].CanonName
	})
	return result, nil
}

// DeleteView removes one plan view.
func (s *PlanStore) DeleteView(_ context.Context, planID, canonName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCanon, ok := s.views[planID]
	if !ok {
		return domain.ErrNotFound
	}
	key := domain.NormaliseItemName(canonName)
	if _, ok := byCanon[key]; !ok {
		return domain.ErrNotFound
	}
	delete(byCanon, key)
	return nil
}
