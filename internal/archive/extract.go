// Package archive reads, audits, extracts and writes project archives.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/origolabs/origo/internal/validation"
)

var (
	// ErrInvalidArchive is returned for bytes that are not a readable archive.
	ErrInvalidArchive = errors.New("invalid archive")
	// ErrUnsafeEntry is returned for entries that would land outside the
	// extraction directory.
	ErrUnsafeEntry = errors.New("unsafe archive entry")
	// ErrTooLarge is returned when the uncompressed content exceeds the limit.
	ErrTooLarge = errors.New("archive too large")
)

// Open parses archive bytes.
func Open(data []byte) (*zip.Reader, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidArchive)
	}
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	return r, nil
}

// Files lists the file entries of r in archive order, skipping directories.
func Files(r *zip.Reader) []string {
	files := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		files = append(files, f.Name)
	}

	return files
}

// ExtractTo writes every entry of r below dir. limit caps the total number of
// uncompressed bytes written; zero or less disables the cap.
func ExtractTo(r *zip.Reader, dir string, limit int64) error {
	remaining := limit
	for _, f := range r.File {
		target, err := entryPath(dir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", f.Name, err)
			}
			continue
		}

		written, err := extractFile(f, target, remaining, limit > 0)
		if err != nil {
			return err
		}
		remaining -= written
	}

	return nil
}

// Extract unpacks data into a new scratch directory. The caller must invoke
// cleanup on success; on failure the directory is already removed.
func Extract(data []byte, limit int64) (dir string, cleanup func(), err error) {
	r, err := Open(data)
	if err != nil {
		return "", nil, err
	}

	dir, err = os.MkdirTemp("", "origo-archive-")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	if err := ExtractTo(r, dir, limit); err != nil {
		cleanup()
		return "", nil, err
	}

	return dir, cleanup, nil
}

func entryPath(dir, name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafeEntry, name)
	}
	target, err := validation.ResolveWithin(dir, dir, name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsafeEntry, err)
	}

	return target, nil
}

func extractFile(f *zip.File, target string, remaining int64, capped bool) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory for %s: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", f.Name, err)
	}
	defer out.Close()

	var src io.Reader = rc
	if capped {
		src = io.LimitReader(rc, remaining+1)
	}

	n, err := io.Copy(out, src)
	if err != nil {
		return n, fmt.Errorf("%w: %s: %v", ErrInvalidArchive, f.Name, err)
	}
	if capped && n > remaining {
		return n, ErrTooLarge
	}

	return n, nil
}
