package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tessera-ide/tessera/internal/domain/entity"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Run session recovery and report the outcome",
	Long: `Run the startup recovery chain against stored state and print what
would be restored: the recovery tier used, the resulting layout, and
any items that had to be dropped or rebuilt along the way.

This is a dry run from the storage side; nothing is written.`,
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(_ *cobra.Command, _ []string) error {
	app := GetApp()
	if app == nil {
		return fmt.Errorf("app not initialized")
	}

	out := app.RecoverUC.Execute(app.Ctx())
	app.SetWorkbench(out.Workbench)

	fmt.Printf("Tier: %s\n", out.Tier)
	fmt.Printf("Recovered: %v\n", out.Recovered)

	for _, warning := range out.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	for _, stateErr := range out.Errors {
		fmt.Fprintf(os.Stderr, "error (%s): %s\n", stateErr.Kind, stateErr.Message)
	}

	leaves := entity.Leaves(out.Workbench.Root)
	fmt.Printf("\nRestored %d panels:\n", len(leaves))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PANEL\tTABS\tACTIVE")
	for _, leaf := range leaves {
		active := ""
		for _, tab := range leaf.Tabs {
			if tab.ID == leaf.ActiveTabID {
				active = tab.Title
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\n", shortPanelID(leaf.ID), len(leaf.Tabs), active)
	}
	return w.Flush()
}

func shortPanelID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
