package domain

import "time"

// RawDocument represents one document as fetched by a connector,
// before catalogue filtering and deduplication.
type RawDocument struct {
	// UNID is the source-stable identity of the document.
	UNID string

	// Form is the source form name.
	Form string

	// Subject is the document's display title, when present.
	Subject string

	// ModifiedAt is the source modification time.
	ModifiedAt time.Time

	// CreatedAt is the source creation time, when known.
	CreatedAt time.Time

	// Items are the document's typed fields in source order.
	Items []RawItem

	// Attachments are references to the document's binary payloads.
	// Payload bytes are fetched separately via the connector.
	Attachments []RawAttachment
}

// RawItem is one named field on a raw document. Multi-valued items carry
// their values in source order.
type RawItem struct {
	// Name is the source item name (case preserved).
	Name string

	// Values are the typed values in source order.
	Values []Value

	// Summary marks items from the document's summary buffer.
	Summary bool
}

// RawAttachment is a reference to a binary payload on a raw document.
type RawAttachment struct {
	// Filename is the attachment's file name.
	Filename string

	// ItemName is the source item the attachment was discovered on.
	ItemName string

	// Kind classifies the embedded object (see Attachment kinds).
	Kind string

	// MIMEType is the declared content type, when known.
	MIMEType string
}

// DocumentPage is one bounded page of documents from a connector, ordered
// by ModifiedAt ascending with UNID as the deterministic tie-break.
type DocumentPage struct {
	// Documents are the page's documents.
	Documents []RawDocument

	// NextPageToken is the opaque token for the following page.
	// Empty means the view is drained.
	NextPageToken string
}
