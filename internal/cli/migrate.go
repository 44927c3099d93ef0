package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), version, true)
			if err != nil {
				return err
			}
			defer a.close()
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.cfg.DB.Driver)
			return nil
		},
	}
}
