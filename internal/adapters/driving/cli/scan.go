package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
	"github.com/custodia-labs/docsync-cli/internal/core/ports/driving"
)

var scanCmd = &cobra.Command{
	Use:   "scan [plan-id]",
	Short: "Scan plans incrementally",
	Long: `Resolves a plan's configured views against its source database and
scans each resolved view from its watermark. If a plan ID is provided, only
that plan is scanned. Otherwise, all enabled plans are scanned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanOrchestrator == nil {
		return errors.New("scan service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) > 0 {
		planID := args[0]
		cmd.Printf("Scanning plan %s...\n", planID)

		result, err := scanWithProgress(ctx, cmd, scanOrchestrator, planID)
		if result != nil {
			printScanResult(cmd, result)
		}
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		return nil
	}

	cmd.Println("Scanning all enabled plans...")
	results, err := scanOrchestrator.ScanAll(ctx)
	for i := range results {
		printScanResult(cmd, &results[i])
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	cmd.Println("All plans scanned successfully.")
	return nil
}

// scanWithProgress runs one plan scan while displaying progress updates.
func scanWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	orch driving.ScanOrchestrator,
	planID string,
) (*domain.ScanResult, error) {
	type outcome struct {
		result *domain.ScanResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := orch.ScanPlan(ctx, planID)
		done <- outcome{result: result, err: err}
	}()

	// Poll status every 500ms
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	lastCount := 0
	for {
		select {
		case out := <-done:
			if lastCount > 0 {
				cmd.Println()
			}
			return out.result, out.err
		case <-ticker.C:
			// Best effort; a status error just skips one update.
			status, err := orch.Status(ctx, planID)
			if err == nil && status != nil && status.Documents > lastCount {
				cmd.Printf("\r%s %q: %d documents", status.Phase, status.View, status.Documents)
				lastCount = status.Documents
			}
		}
	}
}

func printScanResult(cmd *cobra.Command, result *domain.ScanResult) {
	cmd.Printf("Plan %s: %d document(s) across %d view(s) in %s\n",
		result.PlanID, result.Documents(), len(result.Views),
		result.EndedAt.Sub(result.StartedAt).Round(time.Millisecond))
	for _, view := range result.Views {
		if view.Err != nil {
			cmd.Printf("  %-30s FAILED: %v\n", view.ViewName, view.Err)
			continue
		}
		cmd.Printf("  %-30s %d doc(s), %d new value(s), %d new attachment(s), watermark %s\n",
			view.ViewName, view.Documents, view.ValuesNew, view.AttachmentsNew,
			formatWatermark(view.Watermark))
	}
	for _, canon := range result.Unresolved {
		cmd.Printf("  %-30s unresolved\n", canon)
	}
}

func formatWatermark(t time.Time) string {
	if t.IsZero() {
		return "(none)"
	}
	return t.Format(time.RFC3339)
}

var statusCmd = &cobra.Command{
	Use:   "status <plan-id>",
	Short: "Show the live status of a plan's scan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanOrchestrator == nil {
			return errors.New("scan service not configured")
		}
		status, err := scanOrchestrator.Status(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}
		cmd.Printf("Plan %s: %s\n", status.PlanID, status.Phase)
		if status.View != "" {
			cmd.Printf("  View: %s\n", status.View)
		}
		cmd.Printf("  Documents: %d\n", status.Documents)
		cmd.Printf("  Errors: %d\n", status.Errors)
		return nil
	},
}
