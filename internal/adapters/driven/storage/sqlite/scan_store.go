package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// scanStateStore implements driven.ScanStateStore.
type scanStateStore struct {
	store *Store
}

var _ driven.ScanStateStore = (*scanStateStore)(nil)

// Get retrieves the watermark for one canonical view of a plan.
func (s *scanStateStore) Get(ctx context.Context, planID, canonName string) (*domain.ScanState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT plan_id, canon_name, view_name, watermark, last_scan
		FROM scan_states WHERE plan_id = ? AND canon_name = ?
	`, planID, canonName)

	var state domain.ScanState
	var watermark, lastScan sql.NullTime
	if err := row.Scan(&state.PlanID, &state.CanonName, &state.ViewName, &watermark, &lastScan); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning scan state: %w", err)
	}
	state.Watermark = watermark.Time
	state.LastScan = lastScan.Time
	return &state, nil
}

// Save stores or updates a watermark keyed by (plan_id, canon_name).
func (s *scanStateStore) Save(ctx context.Context, state domain.ScanState) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scan_states (plan_id, canon_name, view_name, watermark, last_scan)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(plan_id, canon_name) DO UPDATE SET
			view_name = excluded.view_name,
			watermark = excluded.watermark,
			last_scan = excluded.last_scan
	`, state.PlanID, state.CanonName, state.ViewName,
		nullTime(state.Watermark), nullTime(state.LastScan))
	if err != nil {
		return fmt.Errorf("saving scan state: %w", err)
	}
	return nil
}

// Delete removes all watermarks for a plan.
func (s *scanStateStore) Delete(ctx context.Context, planID string) error {
	_, err := s.store.db.ExecContext(ctx, `DELETE FROM scan_states WHERE plan_id = ?`, planID)
	if err != nil {
		return fmt.Errorf("deleting scan states: %w", err)
	}
	return nil
}

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// StartRun records the beginning of a plan scan.
func (s *runStore) StartRun(ctx context.Context, run *domain.ScanRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO scan_runs (id, plan_id, started_at)
		VALUES (?, ?, ?)
	`, run.ID, run.PlanID, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("starting scan run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a plan scan.
func (s *runStore) FinishRun(ctx context.Context, run *domain.ScanRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		UPDATE scan_runs SET
			ended_at = ?,
			docs_scanned = ?,
			values_upserted = ?,
			attachments_saved = ?,
			errors = ?,
			notes = ?
		WHERE id = ?
	`, nullTime(run.EndedAt), run.DocsScanned, run.ValuesUpserted,
		run.AttachmentsSaved, run.Errors, run.Notes, run.ID)
	if err != nil {
		return fmt.Errorf("finishing scan run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs for a plan, newest first.
func (s *runStore) ListRuns(ctx context.Context, planID string, limit int) ([]domain.ScanRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, plan_id, started_at, ended_at, docs_scanned, values_upserted, attachments_saved, errors, notes
		FROM scan_runs WHERE plan_id = ?
		ORDER BY started_at DESC LIMIT ?
	`, planID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing scan runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.ScanRun
	for rows.Next() {
		var run domain.ScanRun
		var startedAt, endedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.PlanID, &startedAt, &endedAt,
			&run.DocsScanned, &run.ValuesUpserted, &run.AttachmentsSaved,
			&run.Errors, &run.Notes); err != nil {
			return nil, fmt.Errorf("scanning scan run: %w", err)
		}
		run.StartedAt = startedAt.Time
		run.EndedAt = endedAt.Time
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
