package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

func TestDedupStore_SaveDocumentPreservesID(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	first := &domain.Document{ID: "doc-1", SourceID: "plan-1", UNID: "UNID-1", Subject: "v1"}
	require.NoError(t, store.SaveDocument(ctx, first))

	second := &domain.Document{ID: "doc-2", SourceID: "plan-1", UNID: "UNID-1", Subject: "v2"}
	require.NoError(t, store.SaveDocument(ctx, second))

	stored, err := store.GetDocument(ctx, "plan-1", "UNID-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", stored.ID)
	assert.Equal(t, "v2", stored.Subject)
}

func TestDedupStore_UpsertItemValueDeduplicates(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	id1, wasNew, err := store.UpsertItemValue(ctx, "UNID-1", "item-1", 0, domain.StringValue("Smith"), false)
	require.NoError(t, err)
	assert.True(t, wasNew)

	// Same value on another document shares the row.
	id2, wasNew, err := store.UpsertItemValue(ctx, "UNID-2", "item-1", 0, domain.StringValue("Smith"), false)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, id1, id2)

	// Same text under another item is a different row.
	id3, wasNew, err := store.UpsertItemValue(ctx, "UNID-1", "item-2", 0, domain.StringValue("Smith"), false)
	require.NoError(t, err)
	assert.True(t, wasNew)
	assert.NotEqual(t, id1, id3)
}

func TestDedupStore_RelinkingIsIdempotent(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	for range 3 {
		_, _, err := store.UpsertItemValue(ctx, "UNID-1", "item-1", 0, domain.StringValue("Smith"), false)
		require.NoError(t, err)
	}

	values, err := store.ListDocumentValues(ctx, "UNID-1", false)
	require.NoError(t, err)
	assert.Len(t, values, 1)
}

func TestDedupStore_MultiValuedItemsKeepOrder(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	phones := []string{"555-0100", "555-0101", "555-0102"}
	for i, phone := range phones {
		_, _, err := store.UpsertItemValue(ctx, "UNID-1", "item-1", i, domain.StringValue(phone), false)
		require.NoError(t, err)
	}

	values, err := store.ListDocumentValues(ctx, "UNID-1", false)
	require.NoError(t, err)
	require.Len(t, values, 3)
	for i, value := range values {
		assert.Equal(t, domain.StringValue(phones[i]), value.Value)
	}
}

func TestDedupStore_NotesFilterSuppressesValues(t *testing.T) {
	items := NewItemStore()
	ctx := context.Background()

	public, err := items.UpsertItem(ctx, domain.Item{Name: "FullName"})
	require.NoError(t, err)
	secret, err := items.UpsertItem(ctx, domain.Item{Name: "HTTPPassword", NotesFilter: true})
	require.NoError(t, err)

	store := NewDedupStore(items)
	_, _, err = store.UpsertItemValue(ctx, "UNID-1", public.ID, 0, domain.StringValue("Ada Smith"), false)
	require.NoError(t, err)
	_, _, err = store.UpsertItemValue(ctx, "UNID-1", secret.ID, 0, domain.StringValue("hunter2"), false)
	require.NoError(t, err)

	visible, err := store.ListDocumentValues(ctx, "UNID-1", false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, domain.StringValue("Ada Smith"), visible[0].Value)

	all, err := store.ListDocumentValues(ctx, "UNID-1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDedupStore_UpsertAttachmentDeduplicates(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	att := domain.Attachment{
		UNID:      "UNID-1",
		SHA256:    "abc123",
		Filename:  "cv.pdf",
		SizeBytes: 10,
	}
	id1, wasNew, err := store.UpsertAttachment(ctx, att)
	require.NoError(t, err)
	assert.True(t, wasNew)

	id2, wasNew, err := store.UpsertAttachment(ctx, att)
	require.NoError(t, err)
	assert.False(t, wasNew)
	assert.Equal(t, id1, id2)

	// Same payload on a different document is its own row.
	other := att
	other.UNID = "UNID-2"
	id3, wasNew, err := store.UpsertAttachment(ctx, other)
	require.NoError(t, err)
	assert.True(t, wasNew)
	assert.NotEqual(t, id1, id3)
}

func TestDedupStore_AttachmentSizeMismatchIsIntegrityError(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	att := domain.Attachment{UNID: "UNID-1", SHA256: "abc123", Filename: "cv.pdf", SizeBytes: 10}
	_, _, err := store.UpsertAttachment(ctx, att)
	require.NoError(t, err)

	att.SizeBytes = 99
	_, _, err = store.UpsertAttachment(ctx, att)

	var integrity *domain.IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "UNID-1", integrity.UNID)
}

func TestDedupStore_ListAttachmentsSortsByFilename(t *testing.T) {
	store := NewDedupStore(nil)
	ctx := context.Background()

	for _, name := range []string{"zeta.pdf", "alpha.pdf"} {
		_, _, err := store.UpsertAttachment(ctx, domain.Attachment{
			UNID: "UNID-1", SHA256: "abc", Filename: name, CreatedAt: time.Now(),
		})
		require.NoError(t, err)
	}

	atts, err := store.ListAttachments(ctx, "UNID-1")
	require.NoError(t, err)
	require.Len(t, atts, 2)
	assert.Equal(t, "alpha.pdf", atts[0].Filename)
	assert.Equal(t, "zeta.pdf", atts[1].Filename)
}
