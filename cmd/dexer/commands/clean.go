package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/dexer/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Forget the previous build so the next one converts again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outputs, _ := cmd.Flags().GetBool("outputs")
			all, _ := cmd.Flags().GetBool("all")
			return c.app.Clean(cmd.Context(), options(cmd), app.CleanOptions{Outputs: outputs, All: all})
		},
	}
	cmd.Flags().Bool("outputs", false, "Also remove the DEX artifact and plugin metadata")
	cmd.Flags().Bool("all", false, "Remove the build info of every artifact")
	return cmd
}
