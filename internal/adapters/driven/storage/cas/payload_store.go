// Package cas stores attachment payloads content-addressed by SHA-256 on the
// local filesystem. Payloads are sharded by digest prefix so no directory
// grows unbounded; a digest already present is never rewritten.
package cas

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// PayloadStore writes payload bytes under <root>/<sha[:2]>/<sha>.
type PayloadStore struct {
	root string
}

var _ driven.PayloadStore = (*PayloadStore)(nil)

// NewPayloadStore creates a payload store rooted at dir. If dir is empty,
// defaults to ~/.docsync/data/payloads.
func NewPayloadStore(dir string) (*PayloadStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, ".docsync", "data", "payloads")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating payload directory: %w", err)
	}
	return &PayloadStore{root: dir}, nil
}

// Root returns the payload directory.
func (s *PayloadStore) Root() string {
	return s.root
}

// Write stores payload bytes under their digest and returns the storage path.
// An existing payload with the same digest is left untouched: content
// addressing makes the bytes immutable once written.
func (s *PayloadStore) Write(ctx context.Context, sha256 string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(sha256) < 2 {
		return "", fmt.Errorf("invalid payload digest %q", sha256)
	}

	dir := filepath.Join(s.root, sha256[:2])
	path := filepath.Join(dir, sha256)

	if _, err := os.Stat(path); err == nil {
		logger.Debug("Payload %s already stored", sha256)
		return path, nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating payload shard: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated
	// payload under its final digest path.
	tmp, err := os.CreateTemp(dir, "."+sha256+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating payload temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing payload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing payload temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("committing payload: %w", err)
	}

	logger.Debug("Stored payload %s (%d bytes)", sha256, len(data))
	return path, nil
}

// Read returns the payload bytes for a digest.
func (s *PayloadStore) Read(ctx context.Context, sha256 string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sha256) < 2 {
		return nil, fmt.Errorf("invalid payload digest %q", sha256)
	}
	data, err := os.ReadFile(filepath.Join(s.root, sha256[:2], sha256))
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return data, nil
}
