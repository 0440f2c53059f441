package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/dexer/internal/app"
	"go.trai.ch/dexer/internal/core/domain"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Convert the resolved class inputs into the DEX artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := options(cmd)
			opts.Overrides = buildOverrides(cmd)

			result, err := c.app.Build(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, app.Summary(result))
			if result.Metadata != nil {
				_, _ = fmt.Fprintf(out, "found %d plugin classes, listed in %s\n", len(result.Metadata.Classes), result.MetadataPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("min-sdk", domain.DefaultMinPlatformVersion, "Minimum Android API level")
	cmd.Flags().Bool("debuggable", true, "Emit debug information")
	cmd.Flags().Bool("detect-plugins", false, "Record the classes carrying the plugin annotation")
	cmd.Flags().StringArray("input", nil, "Class input directory or jar (repeatable)")
	cmd.Flags().Bool("detect-inputs", false, "Auto-detect class inputs from the project's compile tasks")
	cmd.Flags().StringP("output", "o", "", "DEX artifact path")
	cmd.Flags().String("plugin-class-file", "", "Plugin metadata file path")
	cmd.Flags().String("match-policy", "", "Plugin classes to record when several match: all, first or fail")
	cmd.Flags().String("engine", "", "Conversion engine: native or d8")
	cmd.Flags().String("archive-mode", "", "Output layout: merged or per-class")
	cmd.Flags().BoolP("no-cache", "n", false, "Bypass the up-to-date check and force conversion")
	return cmd
}

// buildOverrides returns the settings given explicitly on the command line.
func buildOverrides(cmd *cobra.Command) domain.Settings {
	var s domain.Settings
	flags := cmd.Flags()
	if flags.Changed("min-sdk") {
		v, _ := flags.GetInt("min-sdk")
		s.MinPlatformVersion = &v
	}
	if flags.Changed("debuggable") {
		v, _ := flags.GetBool("debuggable")
		s.Debuggable = &v
	}
	if flags.Changed("detect-plugins") {
		v, _ := flags.GetBool("detect-plugins")
		s.DetectMarkedClasses = &v
	}
	switch {
	case flags.Changed("input"):
		s.InputDirs, _ = flags.GetStringArray("input")
	case flags.Changed("detect-inputs"):
		if v, _ := flags.GetBool("detect-inputs"); v {
			s.InputDirs = []string{}
		}
	}
	s.OutputFile, _ = flags.GetString("output")
	s.PluginClassFile, _ = flags.GetString("plugin-class-file")
	s.MultipleMatchPolicy, _ = flags.GetString("match-policy")
	s.Engine, _ = flags.GetString("engine")
	s.ArchiveMode, _ = flags.GetString("archive-mode")
	s.NoCache, _ = flags.GetBool("no-cache")
	return s
}
