package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docsync-cli/internal/core/domain"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the item catalogue",
	Long: `View and configure the item catalogue. Only catalogued item names are
ingested from scanned documents; everything else is skipped at scan time.`,
	RunE: runItemsList,
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalogued items",
	RunE:  runItemsList,
}

var itemsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an item to the catalogue",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsAdd,
}

var itemNotesFilter bool

func init() {
	itemsAddCmd.Flags().BoolVar(&itemNotesFilter, "notes-filter", false,
		"suppress this item's values from default read paths")

	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsAddCmd)
	rootCmd.AddCommand(itemsCmd)
}

func runItemsList(cmd *cobra.Command, _ []string) error {
	if itemStore == nil {
		return errors.New("item store not configured")
	}

	items, err := itemStore.ListItems(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	if len(items) == 0 {
		cmd.Println("No items catalogued. Add one with 'docsync items add'.")
		return nil
	}

	for _, item := range items {
		flag := ""
		if item.NotesFilter {
			flag = "  [notes-filter]"
		}
		cmd.Printf("%-30s%s\n", item.Name, flag)
	}
	return nil
}

func runItemsAdd(cmd *cobra.Command, args []string) error {
	if itemStore == nil {
		return errors.New("item store not configured")
	}

	item, err := itemStore.UpsertItem(cmd.Context(), domain.Item{
		Name:        args[0],
		NotesFilter: itemNotesFilter,
	})
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	cmd.Printf("Item %q catalogued.\n", item.Name)
	return nil
}
