package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docsync-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.docsync/data/metadata.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".docsync", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "metadata.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PlanStore returns a PlanStore interface backed by this store.
func (s *Store) PlanStore() driven.PlanStore {
	return &planStore{store: s}
}

// ItemStore returns an ItemStore interface backed by this store.
func (s *Store) ItemStore() driven.ItemStore {
	return &itemStore{store: s}
}

// DedupStore returns a DedupStore interface backed by this store.
func (s *Store) DedupStore() driven.DedupStore {
	return &dedupStore{store: s}
}

// ScanStateStore returns a ScanStateStore interface backed by this store.
func (s *Store) ScanStateStore() driven.ScanStateStore {
	return &scanStateStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// isUniqueViolation reports whether an error is a SQLite unique-constraint
// failure. Concurrent upserts racing on the same natural key land here and
// resolve by re-reading the winner.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ==================== Plan Store ====================

// planStore implements driven.PlanStore.
type planStore struct {
	store *Store
}

var _ driven.PlanStore = (*planStore)(nil)

// UpsertPlan stores a plan keyed by (server_name, filepath). An existing
// plan keeps its ID; only the mutable fields move.
func (s *planStore) UpsertPlan(ctx context.Context, plan domain.Plan) (*domain.Plan, error) {
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_plans (id, server_name, filepath, enabled, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(server_name, filepath) DO UPDATE SET
			enabled = excluded.enabled,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, plan.ID, plan.ServerName, plan.Filepath, plan.Enabled, plan.Notes, now, now)
	if err != nil {
		return nil, fmt.Errorf("upserting plan: %w", err)
	}

	return s.FindPlan(ctx, plan.ServerName, plan.Filepath)
}

func (s *planStore) scanPlan(row *sql.Row) (*domain.Plan, error) {
	var plan domain.Plan
	var enabled int
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&plan.ID, &plan.ServerName, &plan.Filepath, &enabled, &plan.Notes,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning plan: %w", err)
	}
	plan.Enabled = enabled != 0
	plan.CreatedAt = createdAt.Time
	plan.UpdatedAt = updatedAt.Time
	return &plan, nil
}

// GetPlan retrieves a plan by ID.
func (s *planStore) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, server_name, filepath, enabled, notes, created_at, updated_at
		FROM ingestion_plans WHERE id = ?
	`, id)
	return s.scanPlan(row)
}

// FindPlan retrieves a plan by its natural key.
func (s *planStore) FindPlan(ctx context.Context, serverName, filepath string) (*domain.Plan, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, server_name, filepath, enabled, notes, created_at, updated_at
		FROM ingestion_plans WHERE server_name = ? AND filepath = ?
	`, serverName, filepath)
	return s.scanPlan(row)
}

// ListPlans returns all configured plans.
func (s *planStore) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, server_name, filepath, enabled, notes, created_at, updated_at
		FROM ingestion_plans ORDER BY server_name, filepath
	`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		var plan domain.Plan
		var enabled int
		var createdAt, updatedAt sql.NullTime
		if err := rows.Scan(&plan.ID, &plan.ServerName, &plan.Filepath, &enabled, &plan.Notes,
			&createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning plan: %w", err)
		}
		plan.Enabled = enabled != 0
		plan.CreatedAt = createdAt.Time
		plan.UpdatedAt = updatedAt.Time
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan and, via cascade, its views and watermarks.
func (s *planStore) DeletePlan(ctx context.Context, id string) error {
	result, err := s.store.db.ExecContext(ctx, "DELETE FROM ingestion_plans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpsertView stores a plan view keyed by (plan_id, canon_name).
func (s *planStore) UpsertView(ctx context.Context, view domain.PlanView) (*domain.PlanView, error) {
	if view.ID == "" {
		view.ID = uuid.NewString()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_plan_views (id, plan_id, canon_name, priority, enabled, regex_override)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(plan_id, canon_name) DO UPDATE SET
			priority = excluded.priority,
			enabled = excluded.enabled,
			regex_override = excluded.regex_override
	`, view.ID, view.PlanID, view.CanonName, view.Priority, view.Enabled, view.RegexOverride)
	if err != nil {
		return nil, fmt.Errorf("upserting plan view: %w", err)
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, plan_id, canon_name, priority, enabled, regex_override
		FROM ingestion_plan_views WHERE plan_id = ? AND canon_name = ?
	`, view.PlanID, view.CanonName)

	var stored domain.PlanView
	var enabled int
	if err := row.Scan(&stored.ID, &stored.PlanID, &stored.CanonName, &stored.Priority,
		&enabled, &stored.RegexOverride); err != nil {
		return nil, fmt.Errorf("scanning plan view: %w", err)
	}
	stored.Enabled = enabled != 0
	return &stored, nil
}

// ListViews returns all views for a plan, ordered by (priority, canon_name).
func (s *planStore) ListViews(ctx context.Context, planID string) ([]domain.PlanView, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, plan_id, canon_name, priority, enabled, regex_override
		FROM ingestion_plan_views WHERE plan_id = ?
		ORDER BY priority, canon_name
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("listing plan views: %w", err)
	}
	defer rows.Close()

	var views []domain.PlanView
	for rows.Next() {
		var view domain.PlanView
		var enabled int
		if err := rows.Scan(&view.ID, &view.PlanID, &view.CanonName, &view.Priority,
			&enabled, &view.RegexOverride); err != nil {
			return nil, fmt.Errorf("scanning plan view: %w", err)
		}
		view.Enabled = enabled != 0
		views = append(views, view)
	}
	return views, rows.Err()
}

// DeleteView removes one plan view.
func (s *planStore) DeleteView(ctx context.Context, planID, canonName string) error {
	result, err := s.store.db.ExecContext(ctx,
		"DELETE FROM ingestion_plan_views WHERE plan_id = ? AND canon_name = ?", planID, canonName)
	if err != nil {
		return fmt.Errorf("deleting plan view: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting plan view: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Item Store ====================

// itemStore implements driven.ItemStore.
type itemStore struct {
	store *Store
}

var _ driven.ItemStore = (*itemStore)(nil)

// UpsertItem stores an item keyed by its lower-cased name.
func (s *itemStore) UpsertItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.NameLC == "" {
		item.NameLC = domain.NormaliseItemName(item.Name)
	}
	if item.NameLC == "" {
		return nil, domain.ErrInvalidInput
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO items (id, name, name_lc, notes_filter)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name_lc) DO UPDATE SET
			notes_filter = excluded.notes_filter
	`, item.ID, item.Name, item.NameLC, item.NotesFilter)
	if err != nil {
		return nil, fmt.Errorf("upserting item: %w", err)
	}

	return s.GetItemByName(ctx, item.NameLC)
}

// GetItemByName retrieves an item by name (case-insensitive).
func (s *itemStore) GetItemByName(ctx context.Context, name string) (*domain.Item, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, name_lc, notes_filter FROM items WHERE name_lc = ?
	`, domain.NormaliseItemName(name))

	var item domain.Item
	var notesFilter int
	if err := row.Scan(&item.ID, &item.Name, &item.NameLC, &notesFilter); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	item.NotesFilter = notesFilter != 0
	return &item, nil
}

// ListItems returns the whole catalogue.
func (s *itemStore) ListItems(ctx context.Context) ([]domain.Item, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, name_lc, notes_filter FROM items ORDER BY name_lc
	`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var item domain.Item
		var notesFilter int
		if err := rows.Scan(&item.ID, &item.Name, &item.NameLC, &notesFilter); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.NotesFilter = notesFilter != 0
		items = append(items, item)
	}
	return items, rows.Err()
}
