package cmd

import (
	"fmt"
	"io"

	"github.com/origolabs/origo/internal/archive"
	"github.com/spf13/cobra"
)

func newAuditCmd(a *app) *cobra.Command {
	var (
		format    string
		showFiles bool
	)

	cmd := &cobra.Command{
		Use:   "audit <archive.zip>",
		Short: "Audit a project archive",
		Long: `Audit a project archive: it must be a readable zip containing
frontend/package.json and backend/app/main.py.

Examples:
  origo audit project.zip
  origo audit project.zip --files
  origo audit project.zip --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			svc, err := a.services()
			if err != nil {
				return err
			}

			audit := svc.Audit(cmd.Context(), data)
			err = render(cmd.OutOrStdout(), format, audit, func(w io.Writer) {
				writeAudit(w, args[0], audit, showFiles)
			})
			if err != nil {
				return err
			}
			if !audit.OK {
				return errFailed
			}

			return nil
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().BoolVar(&showFiles, "files", false, "List the archive entries")

	return cmd
}

func writeAudit(w io.Writer, name string, audit archive.Audit, files bool) {
	fmt.Fprintf(w, "%s: %s\n", name, status(audit.OK))
	fmt.Fprintf(w, "  Files: %d\n", audit.Summary.TotalFiles)
	fmt.Fprintf(w, "  Frontend: %t\n", audit.Summary.HasFrontend)
	fmt.Fprintf(w, "  Backend: %t\n", audit.Summary.HasBackend)
	writeIssues(w, "  ", audit.Issues)
	if files {
		for _, f := range audit.Files {
			fmt.Fprintf(w, "    %s\n", f)
		}
	}
}
