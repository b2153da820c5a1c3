package driven

import (
	"context"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// PlanStore persists plan and plan-view configuration.
// Upserts key on the natural identity, not the row ID: re-applying the same
// configuration creates no new rows and touches only the mutable fields.
type PlanStore interface {
	// UpsertPlan stores a plan keyed by (server_name, filepath).
	// An existing plan keeps its ID; only Enabled and Notes are updated.
	// Returns the stored plan with its ID populated.
	UpsertPlan(ctx context.Context, plan domain.Plan) (*domain.Plan, error)

	// GetPlan retrieves a plan by ID.
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)

	// FindPlan retrieves a plan by its natural key.
	FindPlan(ctx context.Context, serverName, filepath string) (*domain.Plan, error)

	// ListPlans returns all configured plans.
	ListPlans(ctx context.Context) ([]domain.Plan, error)

	// DeletePlan removes a plan and its views.
	DeletePlan(ctx context.Context, id string) error

	// UpsertView stores a plan view keyed by (plan_id, canon_name).
	// An existing view keeps its ID; Priority, Enabled and RegexOverride
	// are updated. Returns the stored view with its ID populated.
	UpsertView(ctx context.Context, view domain.PlanView) (*domain.PlanView, error)

	// ListViews returns all views for a plan, enabled or not,
	// ordered by (priority, canon_name).
	ListViews(ctx context.Context, planID string) ([]domain.PlanView, error)

	// DeleteView removes one plan view.
	DeleteView(ctx context.Context, planID, canonName string) error
}
