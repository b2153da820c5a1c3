package driven

import (
	"context"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// ScanStateStore persists per-view incremental watermarks.
// The read-modify-write contract is read-before-scan, write-after-full-view-
// commit; state survives process restarts.
type ScanStateStore interface {
	// Get retrieves the watermark for one canonical view of a plan.
	// Returns domain.ErrNotFound when the view has never committed.
	Get(ctx context.Context, planID, canonName string) (*domain.ScanState, error)

	// Save stores or updates a watermark keyed by (plan_id, canon_name).
	Save(ctx context.Context, state domain.ScanState) error

	// Delete removes all watermarks for a plan.
	Delete(ctx context.Context, planID string) error
}

// RunStore persists scan-run accounting.
type RunStore interface {
	// StartRun records the beginning of a plan scan.
	StartRun(ctx context.Context, run *domain.ScanRun) error

	// FinishRun records the outcome of a plan scan.
	FinishRun(ctx context.Context, run *domain.ScanRun) error

	// ListRuns returns the most recent runs for a plan, newest first.
	ListRuns(ctx context.Context, planID string, limit int) ([]domain.ScanRun, error)
}
