package commands

import (
	"fmt"

	"utprint/internal/workflow"

	"github.com/spf13/cobra"
)

func (c *cli) jobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "Lists the print jobs waiting to be released.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, closeDeps, err := c.deps(false)
			if err != nil {
				return err
			}
			defer closeDeps()

			_, err = workflow.Jobs(cmd.Context(), deps)
			return err
		},
	}
}

func (c *cli) balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Shows the balance available for printing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, closeDeps, err := c.deps(false)
			if err != nil {
				return err
			}
			defer closeDeps()

			_, err = workflow.Balance(cmd.Context(), deps)
			return err
		},
	}
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forgets the saved login session.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := workflow.Logout(workflow.Deps{Config: c.store})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, "Logged out.")
			return nil
		},
	}
}
