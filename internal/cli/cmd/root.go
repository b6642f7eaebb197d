// Package cmd provides Cobra CLI commands for tessera.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tessera-ide/tessera/internal/cli"
	"github.com/tessera-ide/tessera/internal/domain/build"
)

var (
	app       *cli.App
	buildInfo build.Info
	rootCmd   = &cobra.Command{
		Use:   "tessera",
		Short: "Split-panel workbench with tabbed documents and session recovery",
		Long: `Tessera - a split-panel document workbench.

Documents live in tabs, tabs live in panels, and panels nest into
arbitrary split layouts. The session is continuously snapshotted with
a backup ring, and recovery restores as much as it can after a crash:
the full layout when possible, salvaged tabs or auto-saved content
when not.

Use the subcommands to inspect and manage stored session state.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "version":
				return nil
			}

			var err error
			app, err = cli.NewApp()
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			app.BuildInfo = buildInfo
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if app != nil {
				_ = app.Close()
			}
		},
	}
)

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GetApp returns the initialized app (for use by subcommands).
func GetApp() *cli.App {
	return app
}

// SetBuildInfo sets the build information (called from main.go before Execute).
func SetBuildInfo(info build.Info) {
	buildInfo = info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("tessera %s (commit %s, built %s, %s)\n",
			orUnknown(buildInfo.Version),
			orUnknown(buildInfo.Commit),
			orUnknown(buildInfo.BuildDate),
			orUnknown(buildInfo.GoVersion),
		)
	},
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
