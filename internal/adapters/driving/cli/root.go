// Package cli provides the command-line interface for docsync.
// Commands are thin adapters over the driving ports; wiring of the stores,
// connectors and services happens in cmd/docsync.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
	"github.com/custodia-labs/docsync-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Injected services. Set by SetServices before Execute.
var (
	planService      driving.PlanService
	scanOrchestrator driving.ScanOrchestrator
	itemStore        driven.ItemStore
	runStore         driven.RunStore
	configStore      driven.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Incremental ingestion from legacy document-store databases",
	Long: `docsync resolves configured ingestion plans against their source
databases and scans them incrementally: documents stream per resolved view
in modification order, item values and attachment payloads deduplicate on
content, and per-view watermarks bound what a rerun has to revisit.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services bundles everything the commands need.
type Services struct {
	PlanService      driving.PlanService
	ScanOrchestrator driving.ScanOrchestrator
	ItemStore        driven.ItemStore
	RunStore         driven.RunStore
	ConfigStore      driven.ConfigStore
}

// SetServices injects the wired services into the command tree.
func SetServices(s Services) {
	planService = s.PlanService
	scanOrchestrator = s.ScanOrchestrator
	itemStore = s.ItemStore
	runStore = s.RunStore
	configStore = s.ConfigStore
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
