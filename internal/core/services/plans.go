package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// Ensure PlanRegistry implements the interface.
var _ driving.PlanService = (*PlanRegistry)(nil)

// PlanRegistry manages plan and plan-view configuration. It is the source
// of truth the resolver and scan coordinator read; all writes go through
// upsert-by-natural-key so configuration can be re-applied freely.
type PlanRegistry struct {
	planStore driven.PlanStore
	scanStore driven.ScanStateStore
}

// NewPlanRegistry creates a plan registry.
func NewPlanRegistry(planStore driven.PlanStore, scanStore driven.ScanStateStore) *PlanRegistry {
	return &PlanRegistry{
		planStore: planStore,
		scanStore: scanStore,
	}
}

// AddPlan upserts a plan by its (server_name, filepath) natural key.
func (r *PlanRegistry) AddPlan(ctx context.Context, plan domain.Plan) (*domain.Plan, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	stored, err := r.planStore.UpsertPlan(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("upsert plan: %w", err)
	}
	return stored, nil
}

// GetPlan retrieves a plan by ID.
func (r *PlanRegistry) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	return r.planStore.GetPlan(ctx, id)
}

// ListPlans returns all configured plans.
func (r *PlanRegistry) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return r.planStore.ListPlans(ctx)
}

// RemovePlan deletes a plan, its views and its watermarks.
// Ingested documents are never deleted here.
func (r *PlanRegistry) RemovePlan(ctx context.Context, id string) error {
	if err := r.planStore.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if err := r.scanStore.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete scan state: %w", err)
	}
	return nil
}

// AddView upserts a plan view by its (plan_id, canon_name) natural key.
func (r *PlanRegistry) AddView(ctx context.Context, view domain.PlanView) (*domain.PlanView, error) {
	if err := view.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.planStore.GetPlan(ctx, view.PlanID); err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	stored, err := r.planStore.UpsertView(ctx, view)
	if err != nil {
		return nil, fmt.Errorf("upsert view: %w", err)
	}
	return stored, nil
}

// ListViews returns a plan's views ordered by (priority, canon_name).
func (r *PlanRegistry) ListViews(ctx context.Context, planID string) ([]domain.PlanView, error) {
	return r.planStore.ListViews(ctx, planID)
}

// RemoveView deletes one plan view.
func (r *PlanRegistry) RemoveView(ctx context.Context, planID, canonName string) error {
	return r.planStore.DeleteView(ctx, planID, canonName)
}

// Apply upserts a whole declarative configuration. Applying the same seed
// twice produces no new rows; only mutable fields move.
func (r *PlanRegistry) Apply(ctx context.Context, seed driving.PlanSeed) error {
	for _, entry := range seed.Plans {
		plan := domain.Plan{
			ServerName: entry.ServerName,
			Filepath:   entry.Filepath,
			Enabled:    entry.Enabled,
			Notes:      entry.Notes,
		}
		stored, err := r.AddPlan(ctx, plan)
		if err != nil {
			return fmt.Errorf("apply plan %s!!%s: %w", entry.ServerName, entry.Filepath, err)
		}

		for _, viewEntry := range entry.Views {
			priority := viewEntry.Priority
			if priority == 0 {
				priority = domain.DefaultViewPriority
			}
			view := domain.PlanView{
				PlanID:        stored.ID,
				CanonName:     viewEntry.CanonName,
				Priority:      priority,
				Enabled:       viewEntry.Enabled,
				RegexOverride: viewEntry.RegexOverride,
			}
			if _, err := r.AddView(ctx, view); err != nil {
				return fmt.Errorf("apply view %q for plan %s: %w", viewEntry.CanonName, stored.DisplayName(), err)
			}
		}
		logger.Debug("Applied plan %s with %d view(s)", stored.DisplayName(), len(entry.Views))
	}
	return nil
}
