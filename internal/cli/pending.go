package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-ratings-pipeline/internal/repo"
)

func newPendingCmd(version string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List games the next run would process, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), version, true)
			if err != nil {
				return err
			}
			defer a.close()

			total, err := repo.CountPendingGames(cmd.Context(), a.db)
			if err != nil {
				return err
			}
			games, err := repo.PendingGames(cmd.Context(), a.db, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEXTERNAL ID\tNAME")
			for _, g := range games {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", g.ID, g.ExternalID, g.Name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d pending\n", len(games), total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "rows to show (0 = all)")
	return cmd
}
