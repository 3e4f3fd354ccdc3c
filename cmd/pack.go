package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/origolabs/origo/internal/archive"
	"github.com/origolabs/origo/internal/validation"
	"github.com/spf13/cobra"
)

type packResult struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
	Path      string `json:"path" yaml:"path"`
	Bytes     int    `json:"bytes" yaml:"bytes"`
}

func newPackCmd(_ *app) *cobra.Command {
	var (
		format string
		id     string
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "pack <payload.json>",
		Short: "Pack a payload into a project archive",
		Long: `Write the payload as <id>.zip laid out as frontend/..., backend/... and
README.md. A random id is generated when --id is not given.

Examples:
  origo pack payload.json
  origo pack payload.json --id shop --out dist`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			if err := validation.ValidateStorageKey(id); err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}

			p, err := readPayload(cmd, args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := archive.Pack(&buf, p); err != nil {
				return fmt.Errorf("failed to pack payload: %w", err)
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", outDir, err)
			}
			path := filepath.Join(outDir, id+".zip")
			if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}

			result := packResult{ProjectID: id, Path: path, Bytes: buf.Len()}
			return render(cmd.OutOrStdout(), format, result, func(w io.Writer) {
				fmt.Fprintf(w, "Packed %s (%d bytes)\n", path, result.Bytes)
			})
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVar(&id, "id", "", "Project id used as the archive name")
	cmd.Flags().StringVar(&outDir, "out", ".", "Directory to write the archive to")

	return cmd
}
