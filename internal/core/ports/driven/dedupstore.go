package driven

import (
	"context"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// DedupStore persists normalised documents, item values and attachments
// under content-addressed dedup contracts.
//
// Both upserts are idempotent under concurrent callers: a storage-level
// conflict between two upserts of the same natural key resolves to "someone
// else already inserted it", never to a duplicate-key error at the caller.
type DedupStore interface {
	// SaveDocument stores or updates a document keyed by (source_id, unid).
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// UpsertItemValue looks up the shared value row by its full natural key
	// (item, kind, typed value, attachment reference) and inserts it if
	// absent, then links it to the document at the given ordinal. String
	// values narrow the lookup via a bounded-length prefix, then confirm
	// with full equality: distinct long strings sharing a prefix never
	// alias. Returns the value row ID and whether the row was created.
	UpsertItemValue(ctx context.Context, unid, itemID string, order int, v domain.Value, summary bool) (rowID string, wasNew bool, err error)

	// UpsertAttachment stores an attachment keyed by (sha256, unid,
	// filename). A duplicate collapses to the existing row. Returns the
	// attachment row ID and whether the row was created.
	UpsertAttachment(ctx context.Context, att domain.Attachment) (attachmentID string, wasNew bool, err error)

	// ListDocumentValues returns a document's linked values in order,
	// resolved through the shared value rows. Values of items whose
	// NotesFilter flag is set are omitted unless includeFiltered is true.
	ListDocumentValues(ctx context.Context, unid string, includeFiltered bool) ([]domain.ItemValue, error)

	// GetDocument retrieves a document by (source_id, unid).
	GetDocument(ctx context.Context, sourceID, unid string) (*domain.Document, error)

	// ListAttachments returns a document's attachments.
	ListAttachments(ctx context.Context, unid string) ([]domain.Attachment, error)
}

// PayloadStore persists attachment payload bytes content-addressed by digest.
type PayloadStore interface {
	// Write stores payload bytes under their digest and returns the storage
	// path. Writing the same digest twice is a no-op.
	Write(ctx context.Context, sha256 string, data []byte) (path string, err error)
}
