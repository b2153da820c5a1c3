package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

// Connector reaches one kind of source database. It is the engine's only
// window onto a source: the wire protocol behind it is out of scope here.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// Validate checks that the connector can reach the plan's source.
	// Returns nil if ready to scan, an error describing the problem otherwise.
	Validate(ctx context.Context, plan domain.Plan) error

	// ListViews returns the concrete view titles the source exposes,
	// in the source's own order. That order breaks matcher ties during
	// resolution, so it must be stable for a given source.
	ListViews(ctx context.Context, plan domain.Plan) ([]string, error)

	// FetchDocuments returns one bounded page of documents for a view,
	// restricted to ModifiedAt >= since, ordered by ModifiedAt ascending
	// with UNID as tie-break. Pass an empty pageToken for the first page;
	// an empty NextPageToken means the view is drained. Transient failures
	// are wrapped with domain.ErrConnector.
	FetchDocuments(ctx context.Context, plan domain.Plan, view string, since time.Time, pageToken string, pageSize int) (*domain.DocumentPage, error)

	// FetchAttachment returns an attachment's payload and its lowercase
	// hex SHA-256 digest.
	FetchAttachment(ctx context.Context, plan domain.Plan, unid, filename string) (data []byte, sha256 string, err error)

	// Close releases resources.
	Close() error
}

// ConnectorFactory creates connectors for plans.
type ConnectorFactory interface {
	// Create builds a connector able to reach the plan's source.
	Create(ctx context.Context, plan domain.Plan) (Connector, error)
}
