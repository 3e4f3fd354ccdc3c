package cmd

import (
	"fmt"
	"io"

	"github.com/origolabs/origo/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var (
		format   string
		short    bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the version, commit, build time, Go version and platform of
this binary.

Examples:
  origo version
  origo version --detailed
  origo version --format json`,
		Args: cobra.NoArgs,
		// Version output never needs configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			info := version.Get()

			return render(cmd.OutOrStdout(), format, info, func(w io.Writer) {
				switch {
				case short:
					fmt.Fprintln(w, info.Short())
				case detailed:
					fmt.Fprintln(w, info.String())
				default:
					fmt.Fprintf(w, "origo %s\n", info.Short())
				}
			})
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&short, "short", false, "Show the version only")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show detailed build information")

	return cmd
}
