package domain

import (
	"crypto/sha256"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the typed representations of an item value.
type ValueKind string

// Value kinds. Exactly one typed representation is meaningful per kind.
const (
	KindString     ValueKind = "string"
	KindNumber     ValueKind = "number"
	KindDatetime   ValueKind = "datetime"
	KindBool       ValueKind = "bool"
	KindAttachment ValueKind = "attachment"
)

// Value is the tagged union of typed item values. Modelling the union as a
// sealed interface makes "exactly one representation populated" impossible
// to violate, rather than a convention over four nullable fields.
type Value interface {
	// Kind returns the discriminator for this value.
	Kind() ValueKind

	// isValue seals the union to this package.
	isValue()
}

// StringValue is a text value.
type StringValue string

// NumberValue is a numeric value.
type NumberValue float64

// DatetimeValue is a timestamp value.
type DatetimeValue time.Time

// BoolValue is a boolean value.
type BoolValue bool

// AttachmentValue references an attachment row by ID.
type AttachmentValue string

func (StringValue) Kind() ValueKind     { return KindString }
func (NumberValue) Kind() ValueKind     { return KindNumber }
func (DatetimeValue) Kind() ValueKind   { return KindDatetime }
func (BoolValue) Kind() ValueKind       { return KindBool }
func (AttachmentValue) Kind() ValueKind { return KindAttachment }

func (StringValue) isValue()     {}
func (NumberValue) isValue()     {}
func (DatetimeValue) isValue()   {}
func (BoolValue) isValue()       {}
func (AttachmentValue) isValue() {}

// keySeparator is the unit separator between natural-key fields.
const keySeparator = "\x1f"

// ValueKey returns the canonical natural-key encoding of a value for an item.
// Two values are the same logical record iff their keys are equal.
func ValueKey(itemID string, v Value) string {
	var b strings.Builder
	b.WriteString(itemID)
	b.WriteString(keySeparator)
	b.WriteString(string(v.Kind()))
	b.WriteString(keySeparator)
	switch val := v.(type) {
	case StringValue:
		b.WriteString(string(val))
	case NumberValue:
		b.WriteString(strconv.FormatFloat(float64(val), 'g', -1, 64))
	case DatetimeValue:
		b.WriteString(time.Time(val).UTC().Format(time.RFC3339Nano))
	case BoolValue:
		b.WriteString(strconv.FormatBool(bool(val)))
	case AttachmentValue:
		b.WriteString(string(val))
	}
	return b.String()
}

// ValueHash returns the SHA-256 of the natural key, used by stores to back
// the idempotent-concurrent-upsert contract with a single unique index.
func ValueHash(itemID string, v Value) [32]byte {
	return sha256.Sum256([]byte(ValueKey(itemID, v)))
}

// ItemValue is one stored typed value of one Item. Values are shared rows;
// per-document ordering lives in DocItemValue.
type ItemValue struct {
	// ID is the unique identifier for the value row.
	ID string

	// ItemID links to the Item this value belongs to.
	ItemID string

	// Value is the typed payload.
	Value Value
}

// DocItemValue links a document to a shared item value, carrying the
// per-document ordinal. The triple (UNID, ItemID, Order) is unique.
type DocItemValue struct {
	// UNID is the source-stable document identity.
	UNID string

	// ItemID links to the Item.
	ItemID string

	// Order is the ordinal of this value within the document's item.
	Order int

	// ItemValueID links to the shared ItemValue row.
	ItemValueID string

	// Summary marks values that came from the document's summary buffer.
	Summary bool
}
