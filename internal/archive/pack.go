package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
	"github.com/origolabs/origo/internal/project"
	"github.com/origolabs/origo/internal/validation"
)

// Pack writes p as an archive laid out as frontend/..., backend/... and
// README.md. Entries are written in sorted order so equal payloads produce
// equal archives. Non-string contents and unsafe paths are rejected.
func Pack(w io.Writer, p *project.Payload) error {
	zw := zip.NewWriter(w)

	if err := packSection(zw, "frontend", p.Frontend); err != nil {
		_ = zw.Close()
		return err
	}
	if err := packSection(zw, "backend", p.Backend); err != nil {
		_ = zw.Close()
		return err
	}
	if readme := p.READMEText(); readme != "" {
		if err := writeEntry(zw, "README.md", readme); err != nil {
			_ = zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	return nil
}

func packSection(zw *zip.Writer, prefix string, files project.Files) error {
	for _, name := range files.Paths() {
		if !validation.IsValidRelativeFile(name) {
			return fmt.Errorf("invalid %s filename: %s", prefix, name)
		}
		content, ok := files.Text(name)
		if !ok {
			return fmt.Errorf("invalid content for %s file: %s", prefix, name)
		}
		if err := writeEntry(zw, prefix+"/"+name, content); err != nil {
			return err
		}
	}

	return nil
}

func writeEntry(zw *zip.Writer, name, content string) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	return nil
}
