package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// stringPrefixLen is the indexed prefix length for string value lookups.
// Must match the substr() expression in the migration's prefix index.
const stringPrefixLen = 256

// dedupStore implements driven.DedupStore.
type dedupStore struct {
	store *Store
}

var _ driven.DedupStore = (*dedupStore)(nil)

// SaveDocument stores or updates a document keyed by (source_id, unid).
func (s *dedupStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, unid, form, subject, modified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, unid) DO UPDATE SET
			form = excluded.form,
			subject = excluded.subject,
			modified_at = excluded.modified_at,
			created_at = excluded.created_at
	`, doc.ID, doc.SourceID, doc.UNID, doc.Form, doc.Subject,
		nullTime(doc.ModifiedAt), nullTime(doc.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by (source_id, unid).
func (s *dedupStore) GetDocument(ctx context.Context, sourceID, unid string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, unid, form, subject, modified_at, created_at
		FROM documents WHERE source_id = ? AND unid = ?
	`, sourceID, unid)

	var doc domain.Document
	var modifiedAt, createdAt sql.NullTime
	if err := row.Scan(&doc.ID, &doc.SourceID, &doc.UNID, &doc.Form, &doc.Subject,
		&modifiedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.ModifiedAt = modifiedAt.Time
	doc.CreatedAt = createdAt.Time
	return &doc, nil
}

// UpsertItemValue deduplicates the shared value row by its full natural key,
// then links it to the document at the given ordinal.
//
// String values narrow the candidate set through the indexed bounded-length
// prefix, then confirm with full equality, so two distinct long strings
// sharing a prefix never alias. Other kinds look up via the natural-key
// hash directly. An insert losing a race on the unique (item_id, val_kind,
// val_hash) index re-reads the winner instead of surfacing the conflict.
func (s *dedupStore) UpsertItemValue(ctx context.Context, unid, itemID string, order int, v domain.Value, summary bool) (string, bool, error) {
	hash := domain.ValueHash(itemID, v)

	rowID, found, err := s.findValue(ctx, itemID, v, hash[:])
	if err != nil {
		return "", false, err
	}

	wasNew := false
	if !found {
		rowID = uuid.NewString()
		cols := valueColumns(v)
		_, err = s.store.db.ExecContext(ctx, `
			INSERT INTO item_values (id, item_id, val_kind, val_hash, v_string, v_number, v_datetime, v_bool, attachment_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rowID, itemID, string(v.Kind()), hash[:],
			cols.vString, cols.vNumber, cols.vDatetime, cols.vBool, cols.attachmentID)
		switch {
		case err == nil:
			wasNew = true
		case isUniqueViolation(err):
			// Concurrent upsert of the same key won; adopt its row.
			rowID, found, err = s.findValue(ctx, itemID, v, hash[:])
			if err != nil {
				return "", false, err
			}
			if !found {
				return "", false, fmt.Errorf("item value vanished after conflict on item %s", itemID)
			}
		default:
			return "", false, fmt.Errorf("inserting item value: %w", err)
		}
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO doc_item_values (unid, item_id, val_order, item_value_id, is_summary)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(unid, item_id, val_order) DO UPDATE SET
			item_value_id = excluded.item_value_id,
			is_summary = excluded.is_summary
	`, unid, itemID, order, rowID, summary)
	if err != nil {
		return "", false, fmt.Errorf("linking item value: %w", err)
	}
	return rowID, wasNew, nil
}

// findValue locates an existing shared value row by natural key.
func (s *dedupStore) findValue(ctx context.Context, itemID string, v domain.Value, hash []byte) (string, bool, error) {
	if sv, ok := v.(domain.StringValue); ok {
		query := fmt.Sprintf(`
			SELECT id, v_string FROM item_values
			WHERE item_id = ? AND val_kind = 'string'
			  AND substr(v_string, 1, %d) = substr(?, 1, %d)
		`, stringPrefixLen, stringPrefixLen)
		rows, err := s.store.db.QueryContext(ctx, query, itemID, string(sv))
		if err != nil {
			return "", false, fmt.Errorf("querying string values: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id, stored string
			if err := rows.Scan(&id, &stored); err != nil {
				return "", false, fmt.Errorf("scanning string value: %w", err)
			}
			if stored == string(sv) {
				return id, true, nil
			}
		}
		return "", false, rows.Err()
	}

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id FROM item_values
		WHERE item_id = ? AND val_kind = ? AND val_hash = ?
	`, itemID, string(v.Kind()), hash)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("querying item value: %w", err)
	}
	return id, true, nil
}

// UpsertAttachment stores an attachment keyed by (sha256, unid, filename).
// The same natural key re-presented with different content is an integrity
// violation, not an update.
func (s *dedupStore) UpsertAttachment(ctx context.Context, att domain.Attachment) (string, bool, error) {
	existingID, existingSize, found, err := s.findAttachment(ctx, att)
	if err != nil {
		return "", false, err
	}
	if found {
		if existingSize != att.SizeBytes {
			return "", false, &domain.IntegrityError{
				UNID:   att.UNID,
				Detail: fmt.Sprintf("attachment %q re-presented with %d bytes, stored row has %d", att.Filename, att.SizeBytes, existingSize),
			}
		}
		return existingID, false, nil
	}

	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO attachments (id, unid, sha256, filename, item_name, kind, mime_type, size_bytes, storage_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, att.ID, att.UNID, att.SHA256, att.Filename, att.ItemName, att.Kind,
		att.MIMEType, att.SizeBytes, att.StoragePath, time.Now().UTC())
	if err == nil {
		return att.ID, true, nil
	}
	if !isUniqueViolation(err) {
		return "", false, fmt.Errorf("inserting attachment: %w", err)
	}

	// Concurrent upsert of the same key won; adopt its row.
	existingID, _, found, err = s.findAttachment(ctx, att)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, fmt.Errorf("attachment vanished after conflict on %s/%s", att.UNID, att.Filename)
	}
	return existingID, false, nil
}

func (s *dedupStore) findAttachment(ctx context.Context, att domain.Attachment) (string, int64, bool, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, size_bytes FROM attachments
		WHERE sha256 = ? AND unid = ? AND filename = ?
	`, att.SHA256, att.UNID, att.Filename)

	var id string
	var size int64
	if err := row.Scan(&id, &size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, false, nil
		}
		return "", 0, false, fmt.Errorf("querying attachment: %w", err)
	}
	return id, size, true, nil
}

// ListAttachments returns a document's attachments.
func (s *dedupStore) ListAttachments(ctx context.Context, unid string) ([]domain.Attachment, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, unid, sha256, filename, item_name, kind, mime_type, size_bytes, storage_path, created_at
		FROM attachments WHERE unid = ? ORDER BY filename
	`, unid)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	var atts []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		var createdAt sql.NullTime
		if err := rows.Scan(&att.ID, &att.UNID, &att.SHA256, &att.Filename, &att.ItemName,
			&att.Kind, &att.MIMEType, &att.SizeBytes, &att.StoragePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		att.CreatedAt = createdAt.Time
		atts = append(atts, att)
	}
	return atts, rows.Err()
}

// ListDocumentValues returns a document's linked values in order. Values of
// items flagged notes_filter are suppressed unless includeFiltered is true.
func (s *dedupStore) ListDocumentValues(ctx context.Context, unid string, includeFiltered bool) ([]domain.ItemValue, error) {
	query := `
		SELECT iv.id, iv.item_id, iv.val_kind, iv.v_string, iv.v_number, iv.v_datetime, iv.v_bool, iv.attachment_id
		FROM doc_item_values div
		JOIN item_values iv ON iv.id = div.item_value_id
		JOIN items i ON i.id = div.item_id
		WHERE div.unid = ?`
	if !includeFiltered {
		query += ` AND i.notes_filter = 0`
	}
	query += ` ORDER BY div.item_id, div.val_order`

	rows, err := s.store.db.QueryContext(ctx, query, unid)
	if err != nil {
		return nil, fmt.Errorf("listing document values: %w", err)
	}
	defer rows.Close()

	var values []domain.ItemValue
	for rows.Next() {
		var (
			row          domain.ItemValue
			kind         string
			vString      sql.NullString
			vNumber      sql.NullFloat64
			vDatetime    sql.NullTime
			vBool        sql.NullInt64
			attachmentID sql.NullString
		)
		if err := rows.Scan(&row.ID, &row.ItemID, &kind, &vString, &vNumber, &vDatetime, &vBool, &attachmentID); err != nil {
			return nil, fmt.Errorf("scanning document value: %w", err)
		}
		value, err := decodeValue(domain.ValueKind(kind), vString, vNumber, vDatetime, vBool, attachmentID)
		if err != nil {
			return nil, err
		}
		row.Value = value
		values = append(values, row)
	}
	return values, rows.Err()
}

// typedColumns is the column layout of one typed value.
type typedColumns struct {
	vString      sql.NullString
	vNumber      sql.NullFloat64
	vDatetime    sql.NullTime
	vBool        sql.NullInt64
	attachmentID sql.NullString
}

// valueColumns maps a domain value onto its single populated column.
func valueColumns(v domain.Value) typedColumns {
	var cols typedColumns
	switch val := v.(type) {
	case domain.StringValue:
		cols.vString = sql.NullString{String: string(val), Valid: true}
	case domain.NumberValue:
		cols.vNumber = sql.NullFloat64{Float64: float64(val), Valid: true}
	case domain.DatetimeValue:
		cols.vDatetime = sql.NullTime{Time: time.Time(val).UTC(), Valid: true}
	case domain.BoolValue:
		b := int64(0)
		if val {
			b = 1
		}
		cols.vBool = sql.NullInt64{Int64: b, Valid: true}
	case domain.AttachmentValue:
		cols.attachmentID = sql.NullString{String: string(val), Valid: true}
	}
	return cols
}

// decodeValue rebuilds the sum type from the stored columns.
func decodeValue(kind domain.ValueKind, vString sql.NullString, vNumber sql.NullFloat64, vDatetime sql.NullTime, vBool sql.NullInt64, attachmentID sql.NullString) (domain.Value, error) {
	switch kind {
	case domain.KindString:
		return domain.StringValue(vString.String), nil
	case domain.KindNumber:
		return domain.NumberValue(vNumber.Float64), nil
	case domain.KindDatetime:
		return domain.DatetimeValue(vDatetime.Time), nil
	case domain.KindBool:
		return domain.BoolValue(vBool.Int64 != 0), nil
	case domain.KindAttachment:
		return domain.AttachmentValue(attachmentID.String), nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}

// nullTime maps a zero time onto NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
