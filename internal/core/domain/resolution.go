package domain

import "fmt"

// ResolvedView pairs a plan view with the concrete view title it matched.
type ResolvedView struct {
	// View is the configured plan view.
	View PlanView

	// ViewName is the concrete view title reported by the connector.
	ViewName string
}

// Resolution is the deterministic ordered outcome of resolving a plan's
// enabled views against the views its source actually exposes. Resolved
// order is scan order.
type Resolution struct {
	// Resolved are the matched views in (priority, canon_name) order.
	Resolved []ResolvedView

	// Unresolved are the enabled views that matched nothing.
	Unresolved []PlanView
}

// ResolutionReason classifies a resolution failure.
type ResolutionReason int

// Resolution failure reasons.
const (
	// ResolutionUnresolved means no enabled view matched any available view.
	ResolutionUnresolved ResolutionReason = iota

	// ResolutionConflict means two plan views matched the same concrete
	// view. This is a configuration bug, never silently tolerated.
	ResolutionConflict
)

// ResolutionError reports a fatal view-resolution failure for a plan.
type ResolutionError struct {
	// Reason classifies the failure.
	Reason ResolutionReason

	// PlanID is the affected plan.
	PlanID string

	// CanonName is the plan view involved, when applicable.
	CanonName string

	// OtherCanonName is the second plan view in a conflict.
	OtherCanonName string

	// ViewName is the contested concrete view in a conflict.
	ViewName string
}

func (e *ResolutionError) Error() string {
	switch e.Reason {
	case ResolutionConflict:
		return fmt.Sprintf("resolution conflict: plan views %q and %q both resolve to view %q",
			e.CanonName, e.OtherCanonName, e.ViewName)
	default:
		return fmt.Sprintf("no configured view resolved for plan %s", e.PlanID)
	}
}

// ConfigError reports malformed plan configuration (e.g., a regex override
// that does not compile). Fatal for the affected plan only.
type ConfigError struct {
	// PlanID is the affected plan.
	PlanID string

	// CanonName is the plan view carrying the bad configuration.
	CanonName string

	// Err is the underlying cause.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("plan %s view %q: invalid configuration: %v", e.PlanID, e.CanonName, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IntegrityError reports corrupted or contradictory source data, such as two
// attachments claiming the same natural key with different content. Fatal
// for the affected document.
type IntegrityError struct {
	// UNID is the affected document.
	UNID string

	// Detail describes the contradiction.
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation on document %s: %s", e.UNID, e.Detail)
}
