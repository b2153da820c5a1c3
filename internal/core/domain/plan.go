package domain

import (
	"fmt"
	"strings"
	"time"
)

// Plan identifies one source database to ingest.
// A plan is long-lived configuration, mutated only by administrators
// and read-only to the engine at scan time.
type Plan struct {
	// ID is the unique identifier for the plan.
	ID string

	// ServerName is the source server (e.g., "APP02/HC-SC/GC/CA").
	ServerName string

	// Filepath is the database path on the server (e.g., `csb\imsd\hcdir3.nsf`).
	Filepath string

	// Enabled indicates whether the plan participates in scans.
	Enabled bool

	// Notes is a free-form administrator annotation.
	Notes string

	// CreatedAt is when the plan was created.
	CreatedAt time.Time

	// UpdatedAt is when the plan was last updated.
	UpdatedAt time.Time
}

// NaturalKey returns the unique (server_name, filepath) identity of the plan.
// Two plans are the same plan iff their natural keys are equal.
func (p *Plan) NaturalKey() string {
	return strings.ToLower(p.ServerName) + "!!" + strings.ToLower(p.Filepath)
}

// DisplayName returns a human-readable identifier for logs and CLI output.
func (p *Plan) DisplayName() string {
	return fmt.Sprintf("%s!!%s", p.ServerName, p.Filepath)
}

// Validate checks that the plan carries its required identity fields.
func (p *Plan) Validate() error {
	if strings.TrimSpace(p.ServerName) == "" {
		return fmt.Errorf("%w: plan server_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Filepath) == "" {
		return fmt.Errorf("%w: plan filepath is required", ErrInvalidInput)
	}
	return nil
}

// PlanView is one configured canonical view to locate and scan within a plan.
// The pair (PlanID, CanonName) is unique.
type PlanView struct {
	// ID is the unique identifier for the plan view.
	ID string

	// PlanID links to the owning Plan.
	PlanID string

	// CanonName is the logical name administrators use for the view,
	// independent of its literal title in the source.
	CanonName string

	// Priority orders resolution and scanning. Lower numbers win ties
	// and are processed first.
	Priority int

	// Enabled indicates whether this view participates in scans.
	Enabled bool

	// RegexOverride, when non-empty, is the authoritative case-insensitive
	// whole-string pattern matched against the source's literal view titles.
	// Empty means match by the normalised CanonName.
	RegexOverride string
}

// Validate checks that the plan view carries its required fields.
func (v *PlanView) Validate() error {
	if strings.TrimSpace(v.CanonName) == "" {
		return fmt.Errorf("%w: plan view canon_name is required", ErrInvalidInput)
	}
	if v.Priority < 0 {
		return fmt.Errorf("%w: plan view priority must be non-negative", ErrInvalidInput)
	}
	return nil
}

// DefaultViewPriority matches the legacy schema default for new plan views.
const DefaultViewPriority = 100
