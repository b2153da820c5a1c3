package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Ensure DedupStore implements the interface.
var _ driven.DedupStore = (*DedupStore)(nil)

// DedupStore is an in-memory implementation of driven.DedupStore.
// Value rows are shared and keyed by their full natural key; attachments
// are keyed by (sha256, unid, filename).
type DedupStore struct {
	mu          sync.Mutex
	documents   map[string]domain.Document // source ID + unid
	values      map[string]domain.ItemValue // natural key -> value row
	links       map[string]domain.DocItemValue
	linkOrder   []string
	attachments map[string]domain.Attachment // natural key -> row
	items       map[string]domain.Item       // item ID -> item, for filter checks
}

// NewDedupStore creates a new in-memory dedup store. The item store, when
// given, supplies NotesFilter flags for read-time suppression.
func NewDedupStore(items *ItemStore) *DedupStore {
	s := &DedupStore{
		documents:   make(map[string]domain.Document),
		values:      make(map[string]domain.ItemValue),
		links:       make(map[string]domain.DocItemValue),
		attachments: make(map[string]domain.Attachment),
		items:       make(map[string]domain.Item),
	}
	if items != nil {
		all, _ := items.ListItems(context.Background())
		for _, item := range all {
			s.items[item.ID] = item
		}
	}
	return s
}

// RegisterItem records an item definition for read-time filtering.
func (s *DedupStore) RegisterItem(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

func docKey(sourceID, unid string) string {
	return sourceID + "\x1f" + unid
}

func linkKey(link domain.DocItemValue) string {
	return link.UNID + "\x1f" + link.ItemID + "\x1f" + strconv.Itoa(link.Order)
}

// SaveDocument stores or updates a document keyed by (source_id, unid).
func (s *DedupStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey(doc.SourceID, doc.UNID)
	if existing, ok := s.documents[key]; ok {
		doc.ID = existing.ID
	}
	s.documents[key] = *doc
	return nil
}

// GetDocument retrieves a document by (source_id, unid).
func (s *DedupStore) GetDocument(_ context.Context, sourceID, unid string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[docKey(sourceID, unid)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// UpsertItemValue deduplicates the shared value row by its full natural key
// and links it to the document at the given ordinal.
func (s *DedupStore) UpsertItemValue(_ context.Context, unid, itemID string, order int, v domain.Value, summary bool) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.ValueKey(itemID, v)
	row, ok := s.values[key]
	wasNew := false
	if !ok {
		row = domain.ItemValue{ID: uuid.NewString(), ItemID: itemID, Value: v}
		s.values[key] = row
		wasNew = true
	}

	link := domain.DocItemValue{
		UNID:        unid,
		ItemID:      itemID,
		Order:       order,
		ItemValueID: row.ID,
		Summary:     summary,
	}
	lk := linkKey(link)
	if _, ok := s.links[lk]; !ok {
		s.linkOrder = append(s.linkOrder, lk)
	}
	s.links[lk] = link
	return row.ID, wasNew, nil
}

// UpsertAttachment stores an attachment keyed by (sha256, unid, filename).
func (s *DedupStore) UpsertAttachment(_ context.Context, att domain.Attachment) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := att.NaturalKey()
	if existing, ok := s.attachments[key]; ok {
		if existing.SizeBytes != att.SizeBytes {
			return "", false, &domain.IntegrityError{
				UNID:   att.UNID,
				Detail: "attachment " + att.Filename + " re-presented with different content under the same digest",
			}
		}
		return existing.ID, false, nil
	}

	if att.ID == "" {
		att.ID = uuid.NewString()
	}
	att.CreatedAt = time.Now().UTC()
	s.attachments[key] = att
	return att.ID, true, nil
}

// ListDocumentValues returns a document's linked values in order.
func (s *DedupStore) ListDocumentValues(_ context.Context, unid string, includeFiltered bool) ([]domain.ItemValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]domain.ItemValue, len(s.values))
	for _, row := range s.values {
		byID[row.ID] = row
	}

	links := make([]domain.DocItemValue, 0)
	for _, lk := range s.linkOrder {
		link := s.links[lk]
		if link.UNID == unid {
			links = append(links, link)
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].ItemID != links[j].ItemID {
			return links[i].ItemID < links[j].ItemID
		}
		return links[i].Order < links[j].Order
	})

	result := make([]domain.ItemValue, 0, len(links))
	for _, link := range links {
		if !includeFiltered {
			if item, ok := s.items[link.ItemID]; ok && item.NotesFilter {
				continue
			}
		}
		if row, ok := byID[link.ItemValueID]; ok {
			result = append(result, row)
		}
	}
	return result, nil
}

// ListAttachments returns a document's attachments.
func (s *DedupStore) ListAttachments(_ context.Context, unid string) ([]domain.Attachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.Attachment, 0)
	for _, att := range s.attachments {
		if att.UNID == unid {
			result = append(result, att)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Filename < result[j].Filename
	})
	return result, nil
}
