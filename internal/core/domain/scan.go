package domain

import "time"

// ScanState is the persisted incremental watermark for one resolved view of
// one plan. The pair (PlanID, CanonName) is unique. The watermark is the
// highest ModifiedAt fully processed for that view; it is written only after
// a view's documents are completely drained, bounding crash replay to at
// most one view's worth of (idempotent) documents.
type ScanState struct {
	// PlanID links to the Plan being scanned.
	PlanID string

	// CanonName is the canonical view name the watermark belongs to.
	CanonName string

	// ViewName is the concrete view title the canon name resolved to
	// on the last completed scan.
	ViewName string

	// Watermark is the highest ModifiedAt fully processed.
	Watermark time.Time

	// LastScan is when the last successful scan of this view completed.
	LastScan time.Time
}

// ScanPhase is the coordinator's per-plan state machine position.
type ScanPhase int

// Scan phases. Failed is reachable from any phase.
const (
	PhaseIdle ScanPhase = iota
	PhaseResolving
	PhaseScanning
	PhaseCommitted
	PhaseFailed
)

// String returns the phase name for logs and status output.
func (p ScanPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseResolving:
		return "resolving"
	case PhaseScanning:
		return "scanning"
	case PhaseCommitted:
		return "committed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ViewScanResult reports one resolved view's scan outcome.
type ViewScanResult struct {
	// CanonName is the canonical view name.
	CanonName string

	// ViewName is the concrete view title scanned.
	ViewName string

	// Documents is the count of documents processed.
	Documents int

	// ValuesUpserted is the count of item-value upserts attempted.
	ValuesUpserted int

	// ValuesNew is how many of those created a new shared value row.
	ValuesNew int

	// AttachmentsStored is the count of attachment upserts attempted.
	AttachmentsStored int

	// AttachmentsNew is how many of those created a new attachment row.
	AttachmentsNew int

	// Errors is the count of per-document failures tolerated. A view-level
	// failure is reported through Err, not counted here.
	Errors int

	// Watermark is the new watermark committed for this view.
	Watermark time.Time

	// Err records a view-level failure. The watermark is unchanged when set.
	Err error
}

// ScanResult reports a whole plan scan.
type ScanResult struct {
	// PlanID is the plan scanned.
	PlanID string

	// Views are the per-view outcomes in scan order.
	Views []ViewScanResult

	// Unresolved lists canon names that matched no available view.
	Unresolved []string

	// StartedAt and EndedAt bound the scan.
	StartedAt time.Time
	EndedAt   time.Time
}

// Documents returns the total documents processed across views.
func (r *ScanResult) Documents() int {
	total := 0
	for _, v := range r.Views {
		total += v.Documents
	}
	return total
}

// ScanRun is the persisted accounting row for one plan scan.
type ScanRun struct {
	// ID is the unique identifier for the run.
	ID string

	// PlanID is the plan scanned.
	PlanID string

	// StartedAt and EndedAt bound the run.
	StartedAt time.Time
	EndedAt   time.Time

	// DocsScanned is the total documents processed.
	DocsScanned int

	// ValuesUpserted is the total item-value upserts attempted.
	ValuesUpserted int

	// AttachmentsSaved is the total new attachment rows created.
	AttachmentsSaved int

	// Errors is the total per-document failures tolerated, summed across
	// views. It matches the sum of the per-view Errors counts.
	Errors int

	// Notes records the failure message when the run did not commit.
	Notes string
}
