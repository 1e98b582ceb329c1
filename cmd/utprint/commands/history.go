package commands

import (
	"fmt"

	"utprint/lib/jobstore"
	"utprint/lib/report"

	"github.com/spf13/cobra"
)

func (c *cli) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [--limit N]",
		Short: "Lists the documents printed from this computer, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be at least 1 (got %d)", limit)
			}
			path := c.settings.HistoryPath(c.store.Dir())
			if path == "" {
				fmt.Fprintln(c.out, "Print history is disabled.")
				return nil
			}

			store, err := jobstore.Open(path)
			if err != nil {
				return fmt.Errorf("open print history: %w", err)
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			total, err := store.TotalSpent(cmd.Context())
			if err != nil {
				return err
			}
			report.New(c.out).History(entries, total)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries to show.")
	return cmd
}
