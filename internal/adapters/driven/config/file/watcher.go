package file

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// seedDebounce coalesces the burst of events editors emit per save.
const seedDebounce = 250 * time.Millisecond

// SeedWatcher watches a plans.toml file and re-applies the declarative seed
// whenever it changes. Apply is idempotent, so a spurious event at worst
// produces a no-op upsert pass.
type SeedWatcher struct {
	path    string
	service driving.PlanService
	watcher *fsnotify.Watcher
}

// NewSeedWatcher creates a watcher for the seed file at path. The parent
// directory is watched rather than the file itself so atomic-rename saves
// (the common editor behaviour) keep being observed.
func NewSeedWatcher(path string, service driving.PlanService) (*SeedWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}
	return &SeedWatcher{
		path:    path,
		service: service,
		watcher: w,
	}, nil
}

// Run blocks applying seed reloads until the context is cancelled.
func (s *SeedWatcher) Run(ctx context.Context) error {
	defer s.watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if !s.relevant(event) {
				continue
			}
			logger.Debug("Seed file event: %s", event)
			pending = time.After(seedDebounce)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Seed watcher error: %v", err)

		case <-pending:
			pending = nil
			if err := s.reload(ctx); err != nil {
				logger.Error("Reloading plan seed: %v", err)
			}
		}
	}
}

// relevant reports whether an event touches the seed file with an op that
// can change its contents.
func (s *SeedWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.path) {
		return false
	}
	return event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename)
}

// reload reads the seed file and applies it.
func (s *SeedWatcher) reload(ctx context.Context) error {
	seed, err := LoadSeed(s.path)
	if err != nil {
		return err
	}
	if err := s.service.Apply(ctx, *seed); err != nil {
		return err
	}
	logger.Info("Applied plan seed from %s (%d plans)", s.path, len(seed.Plans))
	return nil
}
