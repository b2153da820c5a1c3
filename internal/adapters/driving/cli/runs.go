package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs <plan-id>",
	Short: "Show recent scan runs for a plan",
	Args:  cobra.ExactArgs(1),
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "maximum runs to show")
	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	if runStore == nil {
		return errors.New("run store not configured")
	}

	runs, err := runStore.ListRuns(cmd.Context(), args[0], runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded for this plan.")
		return nil
	}

	for _, run := range runs {
		duration := "running"
		if !run.EndedAt.IsZero() {
			duration = run.EndedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		cmd.Printf("%s  %s  %8s  %5d doc(s)  %5d value(s)  %4d attachment(s)  %3d error(s)\n",
			run.StartedAt.Format(time.RFC3339), run.ID[:8], duration,
			run.DocsScanned, run.ValuesUpserted, run.AttachmentsSaved, run.Errors)
		if run.Notes != "" {
			cmd.Printf("    %s\n", run.Notes)
		}
	}
	return nil
}
