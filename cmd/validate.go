package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/origolabs/origo/internal/project"
	"github.com/spf13/cobra"
)

// errFailed is returned after a report has been printed so the process
// exits non-zero without repeating the findings.
var errFailed = errors.New("checks failed")

func newValidateCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate <payload.json>",
		Short: "Validate a generated project payload",
		Long: `Validate a generated project payload against the structural rules:
frontend_files and backend_files must be non-empty objects, the required
files must be present and README must be a non-empty string.

Use "-" to read the payload from standard input.

Examples:
  origo validate payload.json
  origo validate - < payload.json
  origo validate payload.json --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			raw, err := project.Decode(data)
			if err != nil {
				return fmt.Errorf("failed to parse payload %s: %w", args[0], err)
			}

			svc, err := a.services()
			if err != nil {
				return err
			}
			result := svc.Validate(raw)

			err = render(cmd.OutOrStdout(), format, result, func(w io.Writer) {
				if result.OK {
					fmt.Fprintln(w, "Payload is valid")
					return
				}
				fmt.Fprintf(w, "Payload is invalid (%d issues):\n", len(result.Issues))
				writeIssues(w, "  ", result.Issues)
			})
			if err != nil {
				return err
			}
			if !result.OK {
				return errFailed
			}

			return nil
		},
	}
	addFormatFlag(cmd, &format)

	return cmd
}
