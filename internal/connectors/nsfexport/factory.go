package nsfexport

import (
	"context"
	"path/filepath"
	"strings"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ConnectorFactory = (*Factory)(nil)

// Factory creates export connectors under one export root. A plan
// (server_name, filepath) maps to <root>/<server_name>/<filepath>.
type Factory struct {
	root string
	pace rate.Limit
}

// NewFactory creates a connector factory for exports under root.
// A non-positive pace uses DefaultPace.
func NewFactory(root string, pace rate.Limit) *Factory {
	return &Factory{root: root, pace: pace}
}

// Create builds a connector for the plan's export directory.
func (f *Factory) Create(_ context.Context, plan domain.Plan) (driven.Connector, error) {
	// Source filepaths use forward slashes regardless of host OS.
	rel := filepath.FromSlash(strings.TrimPrefix(plan.Filepath, "/"))
	return New(filepath.Join(f.root, plan.ServerName, rel), f.pace), nil
}
