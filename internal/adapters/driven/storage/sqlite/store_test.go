package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedPlan(t *testing.T, store *Store) *domain.Plan {
	t.Helper()
	plan, err := store.PlanStore().UpsertPlan(context.Background(), domain.Plan{
		ServerName: "APP02/HC-SC/GC/CA",
		Filepath:   `csb\imsd\hcdir3.nsf`,
		Enabled:    true,
	})
	require.NoError(t, err)
	return plan
}

func TestNewStore_RunsMigrations(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-run applied migrations.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	var version int
	row := store.db.QueryRow("SELECT MAX(version) FROM schema_migrations")
	require.NoError(t, row.Scan(&version))
	assert.Equal(t, 1, version)
}

func TestPlanStore_UpsertByNaturalKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := seedPlan(t, store)

	// Re-adding the same (server, filepath) keeps the ID and moves only
	// the mutable fields. The natural key compares case-insensitively.
	second, err := store.PlanStore().UpsertPlan(ctx, domain.Plan{
		ServerName: "app02/hc-sc/gc/ca",
		Filepath:   `CSB\IMSD\HCDIR3.NSF`,
		Enabled:    false,
		Notes:      "paused for maintenance",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Enabled)
	assert.Equal(t, "paused for maintenance", second.Notes)

	plans, err := store.PlanStore().ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestPlanStore_DeleteCascadesViewsAndWatermarks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	plan := seedPlan(t, store)

	_, err := store.PlanStore().UpsertView(ctx, domain.PlanView{
		PlanID: plan.ID, CanonName: "All Employees", Priority: 10, Enabled: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.ScanStateStore().Save(ctx, domain.ScanState{
		PlanID: plan.ID, CanonName: "All Employees", Watermark: time.Now().UTC(),
	}))

	require.NoError(t, store.PlanStore().DeletePlan(ctx, plan.ID))

	views, err := store.PlanStore().ListViews(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
	_, err = store.ScanStateStore().Get(ctx, plan.ID, "All Employees")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlanStore_ViewsOrderedByPriority(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	plan := seedPlan(t, store)

	for _, view := range []domain.PlanView{
		{PlanID: plan.ID, CanonName: "Zeta", Priority: 10, Enabled: true},
		{PlanID: plan.ID, CanonName: "Beta", Priority: 20, Enabled: true},
		{PlanID: plan.ID, CanonName: "Alpha", Priority: 10, Enabled: true},
	} {
		_, err := store.PlanStore().UpsertView(ctx, view)
		require.NoError(t, err)
	}

	views, err := store.PlanStore().ListViews(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Alpha", views[0].CanonName)
	assert.Equal(t, "Zeta", views[1].CanonName)
	assert.Equal(t, "Beta", views[2].CanonName)
}

func TestItemStore_UpsertIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "FirstName"})
	require.NoError(t, err)

	second, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "FIRSTNAME", NotesFilter: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.NotesFilter)

	found, err := store.ItemStore().GetItemByName(ctx, "firstname")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestStringPrefixLenMatchesMigrationIndex(t *testing.T) {
	// The prefix lookup only hits the index when both sides use the same
	// substr() length.
	migration, err := migrations.FS.ReadFile("001_initial.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(migration),
		fmt.Sprintf("substr(v_string, 1, %d)", stringPrefixLen))
}

func TestDedupStore_ValueRowsAreShared(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	plan := seedPlan(t, store)

	item, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "Surname"})
	require.NoError(t, err)

	dedup := store.DedupStore()
	for _, unid := range []string{"UNID-1", "UNID-2"} {
		require.NoError(t, dedup.SaveDocument(ctx, &domain.Document{
			SourceID: plan.ID, UNID: unid, ModifiedAt: time.Now().UTC(),
		}))
	}

	id1, wasNew, err := dedup.UpsertItemValue(ctx, "UNID-1", item.ID, 0, domain.StringValue("Smith"), true)
	require.NoError(t, err)
	assert.True(t, wasNew)

	id2, wasNew, err := dedup.UpsertItemValue(ctx, "UNID-2", item.ID, 0, domain.StringValue("Smith"), true)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, id1, id2)

	values, err := dedup.ListDocumentValues(ctx, "UNID-1", false)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, domain.StringValue("Smith"), values[0].Value)
}

func TestDedupStore_LongStringsSharingPrefixDoNotAlias(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "Body"})
	require.NoError(t, err)
	dedup := store.DedupStore()

	// Identical first 256 characters, divergent tails.
	prefix := strings.Repeat("x", 300)
	a := domain.StringValue(prefix + "-first")
	b := domain.StringValue(prefix + "-second")

	idA, wasNew, err := dedup.UpsertItemValue(ctx, "UNID-1", item.ID, 0, a, false)
	require.NoError(t, err)
	assert.True(t, wasNew)

	idB, wasNew, err := dedup.UpsertItemValue(ctx, "UNID-1", item.ID, 1, b, false)
	require.NoError(t, err)
	assert.True(t, wasNew, "distinct long strings must not collapse")
	assert.NotEqual(t, idA, idB)

	// And re-presenting the first one still finds its existing row.
	idA2, wasNew, err := dedup.UpsertItemValue(ctx, "UNID-2", item.ID, 0, a, false)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, idA, idA2)
}

func TestDedupStore_AllValueKindsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "Mixed"})
	require.NoError(t, err)
	dedup := store.DedupStore()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	values := []domain.Value{
		domain.StringValue("Smith"),
		domain.NumberValue(42.5),
		domain.DatetimeValue(ts),
		domain.BoolValue(true),
		domain.AttachmentValue("att-1"),
	}
	for i, value := range values {
		_, _, err := dedup.UpsertItemValue(ctx, "UNID-1", item.ID, i, value, false)
		require.NoError(t, err)
	}

	stored, err := dedup.ListDocumentValues(ctx, "UNID-1", false)
	require.NoError(t, err)
	require.Len(t, stored, len(values))
	for i, row := range stored {
		if dt, ok := values[i].(domain.DatetimeValue); ok {
			got, ok := row.Value.(domain.DatetimeValue)
			require.True(t, ok)
			assert.True(t, time.Time(dt).Equal(time.Time(got)))
			continue
		}
		assert.Equal(t, values[i], row.Value)
	}
}

func TestDedupStore_NotesFilterSuppressesValues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	public, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "FullName"})
	require.NoError(t, err)
	secret, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "HTTPPassword", NotesFilter: true})
	require.NoError(t, err)

	dedup := store.DedupStore()
	_, _, err = dedup.UpsertItemValue(ctx, "UNID-1", public.ID, 0, domain.StringValue("Ada Smith"), false)
	require.NoError(t, err)
	_, _, err = dedup.UpsertItemValue(ctx, "UNID-1", secret.ID, 0, domain.StringValue("hunter2"), false)
	require.NoError(t, err)

	visible, err := dedup.ListDocumentValues(ctx, "UNID-1", false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, domain.StringValue("Ada Smith"), visible[0].Value)

	all, err := dedup.ListDocumentValues(ctx, "UNID-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDedupStore_ConcurrentValueUpsertsConverge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item, err := store.ItemStore().UpsertItem(ctx, domain.Item{Name: "Surname"})
	require.NoError(t, err)
	dedup := store.DedupStore()

	// Workers race the same natural key at distinct ordinals. Whoever loses
	// the insert must adopt the winner's row, never surface the conflict.
	const workers = 8
	ids := make([]string, workers)
	created := make([]bool, workers)
	errs := make([]error, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ids[i], created[i], errs[i] = dedup.UpsertItemValue(
				ctx, "UNID-1", item.ID, i, domain.StringValue("Smith"), false)
		}(i)
	}
	close(start)
	wg.Wait()

	newRows := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, ids[0], ids[i], "worker %d must adopt the shared row", i)
		if created[i] {
			newRows++
		}
	}
	assert.Equal(t, 1, newRows, "exactly one worker creates the row")

	var count int
	row := store.db.QueryRow("SELECT COUNT(*) FROM item_values WHERE item_id = ?", item.ID)
	require.NoError(t, row.Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDedupStore_ConcurrentAttachmentUpsertsConverge(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dedup := store.DedupStore()

	att := domain.Attachment{
		UNID:      "UNID-1",
		SHA256:    "abc123",
		Filename:  "cv.pdf",
		SizeBytes: 10,
	}

	const workers = 8
	ids := make([]string, workers)
	created := make([]bool, workers)
	errs := make([]error, workers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ids[i], created[i], errs[i] = dedup.UpsertAttachment(ctx, att)
		}(i)
	}
	close(start)
	wg.Wait()

	newRows := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, ids[0], ids[i], "worker %d must adopt the shared row", i)
		if created[i] {
			newRows++
		}
	}
	assert.Equal(t, 1, newRows, "exactly one worker creates the row")

	atts, err := dedup.ListAttachments(ctx, "UNID-1")
	require.NoError(t, err)
	assert.Len(t, atts, 1)
}

func TestDedupStore_AttachmentContract(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	dedup := store.DedupStore()

	att := domain.Attachment{
		UNID:      "UNID-1",
		SHA256:    "abc123",
		Filename:  "cv.pdf",
		SizeBytes: 10,
	}
	id1, wasNew, err := dedup.UpsertAttachment(ctx, att)
	require.NoError(t, err)
	assert.True(t, wasNew)

	id2, wasNew, err := dedup.UpsertAttachment(ctx, att)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, id1, id2)

	// Same natural key, contradictory size.
	bad := att
	bad.SizeBytes = 99
	_, _, err = dedup.UpsertAttachment(ctx, bad)
	var integrity *domain.IntegrityError
	require.ErrorAs(t, err, &integrity)

	atts, err := dedup.ListAttachments(ctx, "UNID-1")
	require.NoError(t, err)
	assert.Len(t, atts, 1)
}

func TestScanStateStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	plan := seedPlan(t, store)

	_, err := store.ScanStateStore().Get(ctx, plan.ID, "All Employees")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	watermark := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.ScanStateStore().Save(ctx, domain.ScanState{
		PlanID:    plan.ID,
		CanonName: "All Employees",
		ViewName:  "All Employees HC Export",
		Watermark: watermark,
		LastScan:  watermark.Add(time.Minute),
	}))

	state, err := store.ScanStateStore().Get(ctx, plan.ID, "All Employees")
	require.NoError(t, err)
	assert.Equal(t, "All Employees HC Export", state.ViewName)
	assert.True(t, state.Watermark.Equal(watermark))

	// Advancing overwrites in place.
	require.NoError(t, store.ScanStateStore().Save(ctx, domain.ScanState{
		PlanID:    plan.ID,
		CanonName: "All Employees",
		ViewName:  "All Employees HC Export",
		Watermark: watermark.Add(time.Hour),
	}))
	state, err = store.ScanStateStore().Get(ctx, plan.ID, "All Employees")
	require.NoError(t, err)
	assert.True(t, state.Watermark.Equal(watermark.Add(time.Hour)))
}

func TestRunStore_RecordsOutcomes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	plan := seedPlan(t, store)

	run := &domain.ScanRun{PlanID: plan.ID, StartedAt: time.Now().UTC().Add(-time.Minute)}
	require.NoError(t, store.RunStore().StartRun(ctx, run))
	require.NotEmpty(t, run.ID)

	run.EndedAt = time.Now().UTC()
	run.DocsScanned = 12
	run.ValuesUpserted = 48
	run.Errors = 1
	run.Notes = "one tolerated failure"
	require.NoError(t, store.RunStore().FinishRun(ctx, run))

	runs, err := store.RunStore().ListRuns(ctx, plan.ID, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 12, runs[0].DocsScanned)
	assert.Equal(t, 48, runs[0].ValuesUpserted)
	assert.Equal(t, "one tolerated failure", runs[0].Notes)
	assert.False(t, runs[0].EndedAt.IsZero())
}
