// Command docsync is the incremental ingestion CLI. It wires the SQLite
// metadata store, the content-addressed payload store, the export connector
// factory and the core services, then hands control to the command tree.
package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/time/rate"

	configfile "github.com/custodia-labs/docsync-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsync-cli/internal/adapters/driven/storage/cas"
	"github.com/custodia-labs/docsync-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docsync-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/docsync-cli/internal/connectors/nsfexport"
	"github.com/custodia-labs/docsync-cli/internal/core/services"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := configfile.NewConfigStore(os.Getenv("DOCSYNC_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	dataDir := configStore.GetString("storage.data_dir")
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	payloads, err := cas.NewPayloadStore(configStore.GetString("storage.payload_dir"))
	if err != nil {
		return fmt.Errorf("opening payload store: %w", err)
	}

	exportRoot := configStore.GetString("export.root")
	if exportRoot == "" {
		exportRoot = "."
	}
	factory := nsfexport.NewFactory(exportRoot, rate.Limit(configStore.GetInt("export.pace")))

	catalog := services.NewItemCatalog(store.ItemStore())
	if err := catalog.Load(context.Background()); err != nil {
		return fmt.Errorf("loading item catalogue: %w", err)
	}

	planService := services.NewPlanRegistry(store.PlanStore(), store.ScanStateStore())

	opts := services.DefaultScanOptions()
	if pageSize := configStore.GetInt("scan.page_size"); pageSize > 0 {
		opts.PageSize = pageSize
	}
	if workers := configStore.GetInt("scan.workers"); workers > 0 {
		opts.Workers = workers
	}

	coordinator := services.NewScanCoordinator(
		store.PlanStore(),
		store.ScanStateStore(),
		store.RunStore(),
		store.DedupStore(),
		payloads,
		catalog,
		services.NewViewResolver(),
		factory,
		opts,
	)

	// Seed plans declaratively when a plans.toml sits next to config.toml.
	seedPath, err := configfile.DefaultSeedPath(os.Getenv("DOCSYNC_CONFIG_DIR"))
	if err == nil {
		seed, seedErr := configfile.LoadSeed(seedPath)
		if seedErr != nil {
			return fmt.Errorf("loading plan seed: %w", seedErr)
		}
		if len(seed.Plans) > 0 {
			if applyErr := planService.Apply(context.Background(), *seed); applyErr != nil {
				return fmt.Errorf("applying plan seed: %w", applyErr)
			}
		}
	}

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		PlanService:      planService,
		ScanOrchestrator: coordinator,
		ItemStore:        store.ItemStore(),
		RunStore:         store.RunStore(),
		ConfigStore:      configStore,
	})
	return cli.Execute()
}
