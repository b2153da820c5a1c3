package domain

import "time"

// Document represents one ingested record from a source database.
// Documents are created by scan runs and never mutated except by later
// scans adding new values for the same UNID.
type Document struct {
	// ID is the unique identifier for the document row.
	ID string

	// SourceID links to the Plan that produced this document.
	SourceID string

	// UNID is the source-stable identity of the document.
	UNID string

	// Form is the source form name (e.g., "Person").
	Form string

	// Subject is the document's display title, when the source provides one.
	Subject string

	// ModifiedAt is the source modification time. It drives incremental
	// ordering and must be non-decreasing as returned per scan page.
	ModifiedAt time.Time

	// CreatedAt is the source creation time, when known.
	CreatedAt time.Time
}

// Attachment is a binary payload reference. The triple (SHA256, UNID,
// Filename) is unique: identical content attached under the same document
// identity and filename is stored once, however many times ingestion runs.
// Dedup is scoped to a document identity, not global content-addressing.
type Attachment struct {
	// ID is the unique identifier for the attachment row.
	ID string

	// UNID is the owning document's source-stable identity.
	UNID string

	// SHA256 is the lowercase hex digest of the payload.
	SHA256 string

	// Filename is the attachment's file name within the document.
	Filename string

	// ItemName is the source item the attachment was discovered on
	// (e.g., "$FILE" or a rich-text item name).
	ItemName string

	// Kind classifies the embedded object ("attachment", "image", "ole", "object").
	Kind string

	// MIMEType is the declared content type, when known.
	MIMEType string

	// SizeBytes is the payload size.
	SizeBytes int64

	// StoragePath is where the payload bytes live in the content store.
	StoragePath string

	// CreatedAt is when the row was first stored.
	CreatedAt time.Time
}

// NaturalKey returns the dedup identity of the attachment.
func (a *Attachment) NaturalKey() string {
	return a.SHA256 + keySeparator + a.UNID + keySeparator + a.Filename
}

// Attachment kinds as classified by the source's embedded-object types.
const (
	AttachmentKindFile   = "attachment"
	AttachmentKindImage  = "image"
	AttachmentKindOLE    = "ole"
	AttachmentKindObject = "object"
)
