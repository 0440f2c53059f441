package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "List the class input locations in resolution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			locs, err := c.app.Resolve(cmd.Context(), options(cmd))
			if err != nil {
				return err
			}
			for _, loc := range locs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", loc.Origin, loc.Path)
			}
			return nil
		},
	}
}
