package cmd

import (
	"fmt"

	"github.com/origolabs/origo/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file and
ORIGO_ environment variables. Secrets are omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format == formatText {
				format = formatYAML
			}
			return render(cmd.OutOrStdout(), format, a.cfg, nil)
		},
	}
	show.Flags().StringVarP(&format, "format", "f", formatYAML, "Output format (json, yaml)")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report warnings",
		Long: `Load and validate the configuration. Invalid configuration fails while
loading; this command additionally prints warnings such as wildcard origins.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := config.ValidateConfigWithDetails(a.cfg)
			out := cmd.OutOrStdout()
			for i := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", result.Warnings[i].Error())
			}
			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(out, "Configuration %s is valid\n", used)
			} else {
				fmt.Fprintln(out, "Configuration is valid")
			}

			return nil
		},
	}

	cmd.AddCommand(show, validate)

	return cmd
}
