// Package cli builds the ratings command tree: scrape, try, serve, pending
// and migrate. Every command loads configuration the same way and shares one
// bootstrap for logging, tracing and the database.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// New returns the root `ratings` command.
func New(version string) *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "ratings",
		Short:         "Acquire critic and player ratings for catalogue games",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				return os.Setenv("RATINGS_CONFIG", cfgFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); env vars still win")

	root.AddCommand(newScrapeCmd(version))
	root.AddCommand(newTryCmd(version))
	root.AddCommand(newServeCmd(version))
	root.AddCommand(newPendingCmd(version))
	root.AddCommand(newMigrateCmd(version))
	return root
}
