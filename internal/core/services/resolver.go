package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// excludedViewPrefixes are administrative and lookup views that never
// participate in matching, whatever the configuration says.
var excludedViewPrefixes = []string{"..admin", "*help", "*aide", "(lookup"}

// ViewResolver maps a plan's configured canonical views onto the concrete
// view titles its source actually exposes.
//
// Matching is first-match-in-priority-order: plan views are considered in
// ascending (priority, canon_name) order, and each one claims the first
// available view its matcher accepts, in the order the connector reported
// them. "Most specific pattern wins" is deliberately not attempted; with
// overlapping overrides it is not decidable in general, and first-match
// keeps resolution deterministic for a fixed configuration and view list.
type ViewResolver struct{}

// NewViewResolver creates a view resolver.
func NewViewResolver() *ViewResolver {
	return &ViewResolver{}
}

// Resolve produces the ordered resolution for a plan. The resolved order is
// the scan order. A plan view matching nothing is reported in
// Resolution.Unresolved and is non-fatal; resolution fails only when no
// enabled view resolves at all, or when two plan views claim the same
// concrete view.
func (r *ViewResolver) Resolve(plan domain.Plan, views []domain.PlanView, available []string) (*domain.Resolution, error) {
	enabled := make([]domain.PlanView, 0, len(views))
	for _, v := range views {
		if v.Enabled {
			enabled = append(enabled, v)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority < enabled[j].Priority
		}
		return enabled[i].CanonName < enabled[j].CanonName
	})

	if len(enabled) == 0 {
		return &domain.Resolution{}, nil
	}

	candidates := make([]string, 0, len(available))
	for _, name := range available {
		if isExcludedView(name) {
			continue
		}
		candidates = append(candidates, name)
	}

	res := &domain.Resolution{}
	claimed := make(map[string]string) // concrete view -> canon name

	for _, view := range enabled {
		match, err := matcherFor(plan.ID, view)
		if err != nil {
			return nil, err
		}

		matched := false
		for _, name := range candidates {
			if !match(name) {
				continue
			}
			if owner, taken := claimed[name]; taken {
				return nil, &domain.ResolutionError{
					Reason:         domain.ResolutionConflict,
					PlanID:         plan.ID,
					CanonName:      owner,
					OtherCanonName: view.CanonName,
					ViewName:       name,
				}
			}
			claimed[name] = view.CanonName
			res.Resolved = append(res.Resolved, domain.ResolvedView{View: view, ViewName: name})
			matched = true
			break
		}

		if !matched {
			logger.Warn("Plan %s: no available view matched %q", plan.DisplayName(), view.CanonName)
			res.Unresolved = append(res.Unresolved, view)
		}
	}

	if len(res.Resolved) == 0 {
		return nil, &domain.ResolutionError{
			Reason: domain.ResolutionUnresolved,
			PlanID: plan.ID,
		}
	}
	return res, nil
}

// matcherFor builds the matcher for one plan view.
//
// With an override, the literal override text is tried first: stored
// overrides are usually exact view titles pinned by an administrator, and
// Domino titles are full of characters (backslashes, parentheses) that are
// regex metacharacters. Only when the override is not a literal title does
// it get compiled as a case-insensitive whole-string pattern; a pattern
// that fails to compile is a configuration error for the plan.
func matcherFor(planID string, view domain.PlanView) (func(string) bool, error) {
	if view.RegexOverride == "" {
		want := normaliseViewName(view.CanonName)
		return func(name string) bool {
			return normaliseViewName(name) == want
		}, nil
	}

	literal := normaliseViewName(view.RegexOverride)
	re, reErr := regexp.Compile(`(?i)\A(?:` + view.RegexOverride + `)\z`)

	matcher := func(name string) bool {
		if normaliseViewName(name) == literal {
			return true
		}
		return re != nil && re.MatchString(name)
	}

	if reErr != nil {
		// Still usable as a literal title; fail only if nothing will
		// ever match it, which Resolve reports as unresolved. A pattern
		// that is neither valid regex nor a plausible title is caught
		// here to surface the typo early.
		if literal == "" {
			return nil, &domain.ConfigError{PlanID: planID, CanonName: view.CanonName, Err: reErr}
		}
		logger.Debug("Override for %q is not a valid pattern, matching literally: %v", view.CanonName, reErr)
	}
	return matcher, nil
}

// normaliseViewName trims, case-folds and collapses whitespace.
func normaliseViewName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// isExcludedView reports whether a concrete view title is administrative.
func isExcludedView(name string) bool {
	low := strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range excludedViewPrefixes {
		if strings.HasPrefix(low, prefix) {
			return true
		}
	}
	return false
}
