package driving

import (
	"context"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// ScanOrchestrator coordinates incremental plan scans.
type ScanOrchestrator interface {
	// ScanPlan resolves and scans one plan. Partial success is normal: a
	// view that fails to resolve or drain leaves the others committed,
	// each with its own watermark.
	ScanPlan(ctx context.Context, planID string) (*domain.ScanResult, error)

	// ScanAll scans every enabled plan. Plans scan independently; one
	// plan's failure does not stop the others.
	ScanAll(ctx context.Context) ([]domain.ScanResult, error)

	// Status returns the live status of a plan's scan.
	Status(ctx context.Context, planID string) (*ScanStatus, error)
}

// ScanStatus is a point-in-time snapshot of a running (or idle) plan scan.
type ScanStatus struct {
	// PlanID is the plan being scanned.
	PlanID string

	// Phase is the coordinator's state machine position.
	Phase domain.ScanPhase

	// View is the concrete view currently being scanned, when scanning.
	View string

	// Documents is the count of documents processed so far.
	Documents int

	// Errors is the count of tolerated failures so far.
	Errors int
}
