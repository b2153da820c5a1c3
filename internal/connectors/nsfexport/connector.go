package nsfexport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// ConnectorType is the connector type identifier.
const ConnectorType = "nsfexport"

// DefaultPace bounds export reads per second. Local exports could go much
// faster; pacing keeps scan behaviour representative of a remote source.
const DefaultPace = rate.Limit(100)

// tokenSeparator splits the two page-token fields.
const tokenSeparator = "\x1f"

// Connector serves documents from one exported database directory.
type Connector struct {
	root    string
	limiter *rate.Limiter

	mu     sync.Mutex
	closed bool

	// Documents are loaded once per connector and served from memory in
	// (modified_at, unid) order; exports are immutable while a scan runs.
	loadOnce sync.Once
	loadErr  error
	docs     []domain.RawDocument
	views    map[string][]int // view title (lower-cased) -> doc indexes
}

// New creates a connector rooted at the export directory for one database.
func New(root string, pace rate.Limit) *Connector {
	if pace <= 0 {
		pace = DefaultPace
	}
	return &Connector{
		root:    root,
		limiter: rate.NewLimiter(pace, 1),
	}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return ConnectorType
}

// Validate checks that the export directory is readable.
func (c *Connector) Validate(ctx context.Context, plan domain.Plan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectorClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("%w: export for %s: %w", domain.ErrConnector, plan.DisplayName(), err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: export for %s: %s is not a directory", domain.ErrConnector, plan.DisplayName(), c.root)
	}
	if _, err := os.Stat(filepath.Join(c.root, "views.json")); err != nil {
		return fmt.Errorf("%w: export for %s: %w", domain.ErrConnector, plan.DisplayName(), err)
	}
	return nil
}

// ListViews returns the export's concrete view titles in listing order.
func (c *Connector) ListViews(ctx context.Context, _ domain.Plan) ([]string, error) {
	if err := c.checkOpen(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(c.root, "views.json"))
	if err != nil {
		return nil, fmt.Errorf("%w: reading views listing: %w", domain.ErrConnector, err)
	}
	var views []string
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, fmt.Errorf("%w: parsing views listing: %w", domain.ErrConnector, err)
	}
	return views, nil
}

// FetchDocuments serves one page of a view's documents with ModifiedAt >=
// since, ordered by (modified_at, unid) ascending. The page token resumes
// strictly after the last document of the previous page.
func (c *Connector) FetchDocuments(ctx context.Context, _ domain.Plan, view string, since time.Time, pageToken string, pageSize int) (*domain.DocumentPage, error) {
	if err := c.checkOpen(ctx); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = 200
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	indexes, ok := c.views[strings.ToLower(view)]
	if !ok {
		return &domain.DocumentPage{}, nil
	}

	afterModified, afterUNID, err := decodePageToken(pageToken)
	if err != nil {
		return nil, err
	}

	page := &domain.DocumentPage{}
	for _, idx := range indexes {
		doc := c.docs[idx]
		if doc.ModifiedAt.Before(since) {
			continue
		}
		if pageToken != "" && !after(doc, afterModified, afterUNID) {
			continue
		}
		if len(page.Documents) == pageSize {
			last := page.Documents[pageSize-1]
			page.NextPageToken = encodePageToken(last.ModifiedAt, last.UNID)
			return page, nil
		}
		page.Documents = append(page.Documents, doc)
	}
	return page, nil
}

// FetchAttachment reads one payload and returns it with its SHA-256 digest.
func (c *Connector) FetchAttachment(ctx context.Context, _ domain.Plan, unid, filename string) ([]byte, string, error) {
	if err := c.checkOpen(ctx); err != nil {
		return nil, "", err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	// Base names only; a traversal in exported metadata must not escape
	// the attachments directory.
	if filepath.Base(filename) != filename || filepath.Base(unid) != unid {
		return nil, "", fmt.Errorf("invalid attachment reference %s/%s", unid, filename)
	}

	data, err := os.ReadFile(filepath.Join(c.root, "attachments", unid, filename))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading attachment %s/%s: %w", domain.ErrConnector, unid, filename, err)
	}
	digest := sha256.Sum256(data)
	return data, hex.EncodeToString(digest[:]), nil
}

// Close releases resources.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Connector) checkOpen(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return domain.ErrConnectorClosed
	}
	return ctx.Err()
}

// load reads every exported document into memory, sorted by (modified_at,
// unid), and indexes view membership.
func (c *Connector) load() error {
	c.loadOnce.Do(func() {
		c.loadErr = c.loadDocuments()
	})
	return c.loadErr
}

func (c *Connector) loadDocuments() error {
	dir := filepath.Join(c.root, "documents")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			c.views = make(map[string][]int)
			return nil
		}
		return fmt.Errorf("%w: reading documents directory: %w", domain.ErrConnector, err)
	}

	type loaded struct {
		raw   domain.RawDocument
		views []string
	}
	var all []loaded
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("%w: reading document %s: %w", domain.ErrConnector, entry.Name(), err)
		}
		var export exportDocument
		if err := json.Unmarshal(data, &export); err != nil {
			return fmt.Errorf("%w: parsing document %s: %w", domain.ErrConnector, entry.Name(), err)
		}
		raw, err := export.toRaw()
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConnector, err)
		}
		all = append(all, loaded{raw: raw, views: export.Views})
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].raw.ModifiedAt.Equal(all[j].raw.ModifiedAt) {
			return all[i].raw.ModifiedAt.Before(all[j].raw.ModifiedAt)
		}
		return all[i].raw.UNID < all[j].raw.UNID
	})

	c.docs = make([]domain.RawDocument, len(all))
	c.views = make(map[string][]int)
	for i, doc := range all {
		c.docs[i] = doc.raw
		for _, view := range doc.views {
			key := strings.ToLower(view)
			c.views[key] = append(c.views[key], i)
		}
	}
	logger.Debug("Loaded %d exported document(s) from %s", len(c.docs), c.root)
	return nil
}

// after reports whether doc sorts strictly after the (modified, unid) cursor.
func after(doc domain.RawDocument, modified time.Time, unid string) bool {
	if doc.ModifiedAt.After(modified) {
		return true
	}
	return doc.ModifiedAt.Equal(modified) && doc.UNID > unid
}

func encodePageToken(modified time.Time, unid string) string {
	return modified.UTC().Format(time.RFC3339Nano) + tokenSeparator + unid
}

func decodePageToken(token string) (time.Time, string, error) {
	if token == "" {
		return time.Time{}, "", nil
	}
	parts := strings.SplitN(token, tokenSeparator, 2)
	if len(parts) != 2 {
		return time.Time{}, "", fmt.Errorf("malformed page token %q", token)
	}
	modified, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("malformed page token %q: %w", token, err)
	}
	return modified, parts[1], nil
}
