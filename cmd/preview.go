package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/origolabs/origo/internal/errors"
	"github.com/origolabs/origo/internal/preview"
	"github.com/spf13/cobra"
)

type previewResult struct {
	ProjectID   string `json:"project_id" yaml:"project_id"`
	PreviewPath string `json:"preview_path" yaml:"preview_path"`
	Bytes       int    `json:"bytes" yaml:"bytes"`
}

func newPreviewCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "preview <project-id> <archive.zip>",
		Short: "Render a self-contained HTML preview of a project archive",
		Long: `Extract the archive, locate index.html, bundle its scripts, inline its
styles and images, and store the resulting document as previews/<id>.html
in the configured storage.

Examples:
  origo preview demo site.zip
  origo preview demo site.zip --output demo.html
  origo preview demo site.zip --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			projectID := args[0]
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			svc, err := a.services()
			if err != nil {
				return err
			}

			html, err := svc.Preview(cmd.Context(), projectID, data)
			if err != nil {
				return describePreviewError(err)
			}
			if output != "" {
				if err := os.WriteFile(output, []byte(html), 0o644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
			}

			result := previewResult{ProjectID: projectID, PreviewPath: preview.Key(projectID), Bytes: len(html)}
			return render(cmd.OutOrStdout(), format, result, func(w io.Writer) {
				fmt.Fprintf(w, "Preview %s written to %s (%d bytes)\n", projectID, result.PreviewPath, result.Bytes)
				if output != "" {
					fmt.Fprintf(w, "Copy written to %s\n", output)
				}
			})
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the HTML to this file")

	return cmd
}

// describePreviewError adds the error code and details to pipeline errors.
func describePreviewError(err error) error {
	e, ok := errors.As(err)
	if !ok {
		return err
	}
	if len(e.Details) == 0 {
		return fmt.Errorf("%s: %s", e.Code, e.Message)
	}

	return fmt.Errorf("%s: %s %v", e.Code, e.Message, e.Details)
}
