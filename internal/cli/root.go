// Package cli is the editor's command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-editor/internal/config"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "editor",
		Short: "Local overlay editing agent",
		Long: "Runs editing sessions for a preview client over a localhost API and exports\n" +
			"compositions through the remote renderer.",
		SilenceUsage: true,
	}

	rootCmd.Version = config.Version
	rootCmd.SetVersionTemplate(versionString() + "\n")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewHistoryCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func versionString() string {
	return fmt.Sprintf("heimdex-editor %s, commit %s, built at %s", config.Version, config.GitCommit, config.BuildTime)
}
