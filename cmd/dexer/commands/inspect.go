package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [path]",
		Short: "Summarize a DEX file or per-class archive",
		Long:  "Summarize a DEX file or per-class archive. Without a path the configured output is read.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			summary, err := c.app.Inspect(cmd.Context(), options(cmd), path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "path:      %s\n", summary.Path)
			_, _ = fmt.Fprintf(out, "version:   %s\n", summary.Version)
			_, _ = fmt.Fprintf(out, "files:     %d\n", summary.Files)
			_, _ = fmt.Fprintf(out, "checksum:  %s\n", validity(summary.ChecksumValid))
			_, _ = fmt.Fprintf(out, "signature: %s\n", validity(summary.SignatureValid))
			_, _ = fmt.Fprintf(out, "classes:   %d\n", len(summary.Classes))
			if list, _ := cmd.Flags().GetBool("classes"); list {
				for _, class := range summary.Classes {
					_, _ = fmt.Fprintln(out, "  "+class)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolP("classes", "l", false, "List every class descriptor")
	return cmd
}

func validity(ok bool) string {
	if ok {
		return "valid"
	}
	return "INVALID"
}
