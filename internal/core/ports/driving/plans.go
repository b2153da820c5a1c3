package driving

import (
	"context"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// PlanService manages plan and plan-view configuration.
type PlanService interface {
	// AddPlan upserts a plan by its natural key.
	AddPlan(ctx context.Context, plan domain.Plan) (*domain.Plan, error)

	// GetPlan retrieves a plan by ID.
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)

	// ListPlans returns all configured plans.
	ListPlans(ctx context.Context) ([]domain.Plan, error)

	// RemovePlan deletes a plan, its views and its watermarks.
	RemovePlan(ctx context.Context, id string) error

	// AddView upserts a plan view by (plan_id, canon_name).
	AddView(ctx context.Context, view domain.PlanView) (*domain.PlanView, error)

	// ListViews returns a plan's views ordered by (priority, canon_name).
	ListViews(ctx context.Context, planID string) ([]domain.PlanView, error)

	// RemoveView deletes one plan view.
	RemoveView(ctx context.Context, planID, canonName string) error

	// Apply upserts a whole declarative configuration. Re-applying the
	// same configuration is a no-op producing no new rows.
	Apply(ctx context.Context, seed PlanSeed) error
}

// PlanSeed is a declarative plan configuration, typically decoded from a
// plans.toml file.
type PlanSeed struct {
	// Plans are the configured source databases.
	Plans []PlanSeedEntry `toml:"plans"`
}

// PlanSeedEntry seeds one plan and its views.
type PlanSeedEntry struct {
	ServerName string          `toml:"server_name"`
	Filepath   string          `toml:"filepath"`
	Enabled    bool            `toml:"enabled"`
	Notes      string          `toml:"notes"`
	Views      []ViewSeedEntry `toml:"views"`
}

// ViewSeedEntry seeds one plan view.
type ViewSeedEntry struct {
	CanonName     string `toml:"canon_name"`
	Priority      int    `toml:"priority"`
	Enabled       bool   `toml:"enabled"`
	RegexOverride string `toml:"regex_override"`
}
