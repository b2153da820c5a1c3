package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

func testPlan() domain.Plan {
	return domain.Plan{
		ID:         "plan-1",
		ServerName: "APP02/HC-SC/GC/CA",
		Filepath:   `csb\imsd\hcdir3.nsf`,
		Enabled:    true,
	}
}

func view(canon string, priority int, override string) domain.PlanView {
	return domain.PlanView{
		PlanID:        "plan-1",
		CanonName:     canon,
		Priority:      priority,
		Enabled:       true,
		RegexOverride: override,
	}
}

func TestResolve_ExactMatchWithoutOverride(t *testing.T) {
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("All Employees HC Export", 10, "")},
		[]string{"Some Other View", "All Employees HC Export"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "All Employees HC Export", res.Resolved[0].ViewName)
	assert.Empty(t, res.Unresolved)
}

func TestResolve_ExactMatchIsCaseAndWhitespaceInsensitive(t *testing.T) {
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("all  employees hc export", 10, "")},
		[]string{"All Employees HC Export"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "All Employees HC Export", res.Resolved[0].ViewName)
}

func TestResolve_OverrideMatchingLiteralTitle(t *testing.T) {
	// The stored override is an exact view title containing regex
	// metacharacters; it must match as a literal, not fail to compile.
	title := `English / Anglais\2. Employees, alphabetically`
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("Person By Surname", 10, title)},
		[]string{title, "Other View"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, title, res.Resolved[0].ViewName)
	assert.Equal(t, "Person By Surname", res.Resolved[0].View.CanonName)
}

func TestResolve_OverrideAsPattern(t *testing.T) {
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("People", 10, `People \(v[0-9]+\)`)},
		[]string{"People (v2)"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "People (v2)", res.Resolved[0].ViewName)
}

func TestResolve_OverridePatternIsAnchoredAndCaseInsensitive(t *testing.T) {
	resolver := NewViewResolver()

	// Anchoring: a pattern matching a substring must not match the
	// whole longer title.
	_, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("People", 10, `People`)},
		[]string{"All People Everywhere"})
	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, domain.ResolutionUnresolved, resErr.Reason)

	// Case-insensitivity.
	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("People", 10, `people`)},
		[]string{"PEOPLE"})
	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
}

func TestResolve_PriorityOrderDecidesScanOrder(t *testing.T) {
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{
			view("Later", 20, ""),
			view("First", 10, ""),
			view("Alpha", 20, ""),
		},
		[]string{"Later", "First", "Alpha"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 3)
	assert.Equal(t, "First", res.Resolved[0].View.CanonName)
	// Equal priority breaks ties by canon name.
	assert.Equal(t, "Alpha", res.Resolved[1].View.CanonName)
	assert.Equal(t, "Later", res.Resolved[2].View.CanonName)
}

func TestResolve_FirstMatchInSourceOrderBreaksTies(t *testing.T) {
	resolver := NewViewResolver()

	// The override matches both available views; the connector's listing
	// order decides which one is claimed.
	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("People", 10, `People v[0-9]`)},
		[]string{"People v2", "People v1"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "People v2", res.Resolved[0].ViewName)
}

func TestResolve_IsDeterministic(t *testing.T) {
	resolver := NewViewResolver()
	views := []domain.PlanView{
		view("B", 10, `.*Employees.*`),
		view("A", 10, ""),
	}
	available := []string{"A", "All Employees", "More Employees"}

	first, err := resolver.Resolve(testPlan(), views, available)
	require.NoError(t, err)

	for range 10 {
		again, err := resolver.Resolve(testPlan(), views, available)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestResolve_ConflictingClaimsFail(t *testing.T) {
	resolver := NewViewResolver()

	_, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{
			view("Canon A", 10, ""),
			view("Canon B", 20, `Canon A`),
		},
		[]string{"Canon A"})

	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, domain.ResolutionConflict, resErr.Reason)
	assert.Equal(t, "Canon A", resErr.ViewName)
}

func TestResolve_UnresolvedViewIsNonFatal(t *testing.T) {
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{
			view("Present", 10, ""),
			view("Missing", 20, ""),
		},
		[]string{"Present"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, "Missing", res.Unresolved[0].CanonName)
}

func TestResolve_FailsWhenNothingResolves(t *testing.T) {
	resolver := NewViewResolver()

	_, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("Missing", 10, "")},
		[]string{"Present"})

	var resErr *domain.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, domain.ResolutionUnresolved, resErr.Reason)
}

func TestResolve_DisabledViewsAreIgnored(t *testing.T) {
	resolver := NewViewResolver()
	disabled := view("Present", 10, "")
	disabled.Enabled = false

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{disabled},
		[]string{"Present"})

	require.NoError(t, err)
	assert.Empty(t, res.Resolved)
	assert.Empty(t, res.Unresolved)
}

func TestResolve_AdministrativeViewsNeverMatch(t *testing.T) {
	resolver := NewViewResolver()

	tests := []struct {
		name      string
		available string
	}{
		{"admin prefix", "..admin requests"},
		{"help prefix", "*help index"},
		{"aide prefix", "*Aide generale"},
		{"lookup prefix", "(LookupEmployees)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(testPlan(),
				[]domain.PlanView{view("Anything", 10, `.*`)},
				[]string{tt.available})

			var resErr *domain.ResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, domain.ResolutionUnresolved, resErr.Reason)
		})
	}
}

func TestResolve_InvalidPatternOverrideStillMatchesLiterally(t *testing.T) {
	// An unbalanced parenthesis is a real view title but not a valid
	// pattern; the override degrades to literal matching.
	resolver := NewViewResolver()

	res, err := resolver.Resolve(testPlan(),
		[]domain.PlanView{view("People", 10, "People (draft")},
		[]string{"People (draft"})

	require.NoError(t, err)
	require.Len(t, res.Resolved, 1)
	assert.Equal(t, "People (draft", res.Resolved[0].ViewName)
}

func TestNormaliseViewName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"All Employees", "all employees"},
		{"  All   Employees  ", "all employees"},
		{"ALL\tEMPLOYEES", "all employees"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normaliseViewName(tt.in))
	}
}
