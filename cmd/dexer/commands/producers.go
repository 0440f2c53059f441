package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newProducersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "producers",
		Short: "Print the upstream tasks that must run before build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			refs, err := c.app.Producers(cmd.Context(), options(cmd))
			if err != nil {
				return err
			}
			for _, ref := range refs {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), ref.Path())
			}
			return nil
		},
	}
}
