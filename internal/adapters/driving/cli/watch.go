package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/docsync-cli/internal/adapters/driven/config/file"
)

var watchSeedPath string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch plans.toml and apply changes as they land",
	Long: `Watches the declarative plan configuration and re-applies it whenever
the file changes. Applying is idempotent: plans keep their IDs and
watermarks across reloads. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSeedPath, "file", "", "plans.toml path (defaults to the config directory)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	path := watchSeedPath
	if path == "" {
		var err error
		path, err = configfile.DefaultSeedPath(os.Getenv("DOCSYNC_CONFIG_DIR"))
		if err != nil {
			return fmt.Errorf("resolving seed path: %w", err)
		}
	}

	watcher, err := configfile.NewSeedWatcher(path, planService)
	if err != nil {
		return fmt.Errorf("starting seed watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl-C to stop)...\n", path)
	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher failed: %w", err)
	}
	return nil
}
