package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
)

const seedTOML = `
[[plans]]
server_name = "APP02/HC-SC/GC/CA"
filepath = 'csb\imsd\hcdir3.nsf'
enabled = true
notes = "HC directory"

[[plans.views]]
canon_name = "Person By Surname"
priority = 10
enabled = true
regex_override = 'English / Anglais\2. Employees, alphabetically'

[[plans.views]]
canon_name = "All Employees HC Export"
enabled = true
`

func TestLoadSeed_ParsesPlansAndViews(t *testing.T) {
	path := filepath.Join(t.TempDir(), SeedFilename)
	require.NoError(t, os.WriteFile(path, []byte(seedTOML), 0600))

	seed, err := LoadSeed(path)

	require.NoError(t, err)
	require.Len(t, seed.Plans, 1)
	plan := seed.Plans[0]
	assert.Equal(t, "APP02/HC-SC/GC/CA", plan.ServerName)
	assert.Equal(t, `csb\imsd\hcdir3.nsf`, plan.Filepath)
	assert.True(t, plan.Enabled)

	require.Len(t, plan.Views, 2)
	assert.Equal(t, "Person By Surname", plan.Views[0].CanonName)
	assert.Equal(t, 10, plan.Views[0].Priority)
	assert.Equal(t, `English / Anglais\2. Employees, alphabetically`, plan.Views[0].RegexOverride)
	assert.Equal(t, 0, plan.Views[1].Priority)
}

func TestLoadSeed_MissingFileIsEmptySeed(t *testing.T) {
	seed, err := LoadSeed(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Empty(t, seed.Plans)
}

func TestLoadSeed_MalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), SeedFilename)
	require.NoError(t, os.WriteFile(path, []byte("[[plans]\nbroken"), 0600))

	_, err := LoadSeed(path)
	assert.Error(t, err)
}

// recordingPlanService captures Apply calls for watcher tests.
type recordingPlanService struct {
	mu     sync.Mutex
	seeds  []driving.PlanSeed
	failed error
}

var _ driving.PlanService = (*recordingPlanService)(nil)

func (r *recordingPlanService) Apply(_ context.Context, seed driving.PlanSeed) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeds = append(r.seeds, seed)
	return r.failed
}

func (r *recordingPlanService) applied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seeds)
}

func (r *recordingPlanService) AddPlan(context.Context, domain.Plan) (*domain.Plan, error) {
	return nil, nil
}
func (r *recordingPlanService) GetPlan(context.Context, string) (*domain.Plan, error) {
	return nil, domain.ErrNotFound
}
func (r *recordingPlanService) ListPlans(context.Context) ([]domain.Plan, error) { return nil, nil }
func (r *recordingPlanService) RemovePlan(context.Context, string) error         { return nil }
func (r *recordingPlanService) AddView(context.Context, domain.PlanView) (*domain.PlanView, error) {
	return nil, nil
}
func (r *recordingPlanService) ListViews(context.Context, string) ([]domain.PlanView, error) {
	return nil, nil
}
func (r *recordingPlanService) RemoveView(context.Context, string, string) error { return nil }

func TestSeedWatcher_AppliesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SeedFilename)
	require.NoError(t, os.WriteFile(path, []byte(seedTOML), 0600))

	service := &recordingPlanService{}
	watcher, err := NewSeedWatcher(path, service)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx)
	}()

	// A save should trigger exactly one (debounced) apply.
	require.NoError(t, os.WriteFile(path, []byte(seedTOML), 0600))

	assert.Eventually(t, func() bool {
		return service.applied() >= 1
	}, 5*time.Second, 50*time.Millisecond, "expected the watcher to apply the seed")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}

func TestSeedWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, SeedFilename)
	require.NoError(t, os.WriteFile(path, []byte(seedTOML), 0600))

	service := &recordingPlanService{}
	watcher, err := NewSeedWatcher(path, service)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("noise"), 0600))

	// Give the debounce window time to elapse.
	time.Sleep(3 * seedDebounce)
	assert.Equal(t, 0, service.applied())
}
