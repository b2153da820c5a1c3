package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/docsync-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage ingestion plans",
	Long: `View and configure ingestion plans. A plan names one source database
by (server name, file path) and carries the canonical views to scan from it.`,
	RunE: runPlanList,
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured plans",
	RunE:  runPlanList,
}

var planAddCmd = &cobra.Command{
	Use:   "add <server-name> <filepath>",
	Short: "Add or update a plan",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlanAdd,
}

var planRemoveCmd = &cobra.Command{
	Use:   "remove <plan-id>",
	Short: "Remove a plan, its views and its watermarks",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanRemove,
}

var planViewsCmd = &cobra.Command{
	Use:   "views <plan-id>",
	Short: "List a plan's views in resolution order",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlanViews,
}

var planViewAddCmd = &cobra.Command{
	Use:   "add-view <plan-id> <canon-name>",
	Short: "Add or update a plan view",
	Args:  cobra.ExactArgs(2),
	RunE:  runPlanAddView,
}

var planApplyCmd = &cobra.Command{
	Use:   "apply <plans.toml>",
	Short: "Apply a declarative plan configuration",
	Long: `Upserts every plan and view from a plans.toml file. Re-applying the
same file is a no-op: plans keep their IDs and watermarks.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlanApply,
}

var (
	planNotes    string
	planDisabled bool
	viewPriority int
	viewRegex    string
	viewDisabled bool
)

func init() {
	planAddCmd.Flags().StringVar(&planNotes, "notes", "", "free-form operator notes")
	planAddCmd.Flags().BoolVar(&planDisabled, "disabled", false, "create the plan disabled")

	planViewAddCmd.Flags().IntVar(&viewPriority, "priority", domain.DefaultViewPriority, "resolution priority (lower resolves first)")
	planViewAddCmd.Flags().StringVar(&viewRegex, "regex", "", "regex override for matching the source view title")
	planViewAddCmd.Flags().BoolVar(&viewDisabled, "disabled", false, "create the view disabled")

	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planAddCmd)
	planCmd.AddCommand(planRemoveCmd)
	planCmd.AddCommand(planViewsCmd)
	planCmd.AddCommand(planViewAddCmd)
	planCmd.AddCommand(planApplyCmd)
	rootCmd.AddCommand(planCmd)
}

func runPlanList(cmd *cobra.Command, _ []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	plans, err := planService.ListPlans(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list plans: %w", err)
	}
	if len(plans) == 0 {
		cmd.Println("No plans configured. Add one with 'docsync plan add' or 'docsync plan apply'.")
		return nil
	}

	for _, plan := range plans {
		state := "enabled"
		if !plan.Enabled {
			state = "disabled"
		}
		cmd.Printf("%s  %-40s %s\n", plan.ID, plan.DisplayName(), state)
		if plan.Notes != "" {
			cmd.Printf("    %s\n", plan.Notes)
		}
	}
	return nil
}

func runPlanAdd(cmd *cobra.Command, args []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	plan, err := planService.AddPlan(cmd.Context(), domain.Plan{
		ServerName: args[0],
		Filepath:   args[1],
		Enabled:    !planDisabled,
		Notes:      planNotes,
	})
	if err != nil {
		return fmt.Errorf("failed to add plan: %w", err)
	}
	cmd.Printf("Plan %s: %s\n", plan.ID, plan.DisplayName())
	return nil
}

func runPlanRemove(cmd *cobra.Command, args []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	if err := planService.RemovePlan(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to remove plan: %w", err)
	}
	cmd.Printf("Plan %s removed.\n", args[0])
	return nil
}

func runPlanViews(cmd *cobra.Command, args []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	views, err := planService.ListViews(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to list views: %w", err)
	}
	if len(views) == 0 {
		cmd.Println("No views configured for this plan.")
		return nil
	}

	for _, view := range views {
		state := "enabled"
		if !view.Enabled {
			state = "disabled"
		}
		cmd.Printf("%3d  %-40s %s\n", view.Priority, view.CanonName, state)
		if view.RegexOverride != "" {
			cmd.Printf("     regex: %s\n", view.RegexOverride)
		}
	}
	return nil
}

func runPlanAddView(cmd *cobra.Command, args []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	view, err := planService.AddView(cmd.Context(), domain.PlanView{
		PlanID:        args[0],
		CanonName:     args[1],
		Priority:      viewPriority,
		Enabled:       !viewDisabled,
		RegexOverride: viewRegex,
	})
	if err != nil {
		return fmt.Errorf("failed to add view: %w", err)
	}
	cmd.Printf("View %q added to plan %s (priority %d).\n", view.CanonName, view.PlanID, view.Priority)
	return nil
}

func runPlanApply(cmd *cobra.Command, args []string) error {
	if planService == nil {
		return errors.New("plan service not configured")
	}

	seed, err := configfile.LoadSeed(args[0])
	if err != nil {
		return fmt.Errorf("failed to load plan seed: %w", err)
	}
	if err := planService.Apply(cmd.Context(), *seed); err != nil {
		return fmt.Errorf("failed to apply plan seed: %w", err)
	}
	cmd.Printf("Applied %d plan(s) from %s.\n", len(seed.Plans), args[0])
	return nil
}
