package preview

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/origolabs/origo/internal/validation"
)

// ErrNotFound is returned by stores for unknown previews.
var ErrNotFound = stderrors.New("preview not found")

// Store persists rendered previews keyed by project id.
type Store interface {
	Put(ctx context.Context, projectID, html string) error
	Get(ctx context.Context, projectID string) (string, error)
}

// Key is the storage-relative path of a preview.
func Key(projectID string) string {
	return "previews/" + projectID + ".html"
}

func checkID(projectID string) error {
	if err := validation.ValidateStorageKey(strings.TrimSpace(projectID)); err != nil {
		return fmt.Errorf("invalid project id: %w", err)
	}

	return nil
}

// FileStore keeps previews below a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a file store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	baseDir = strings.TrimSpace(baseDir)
	if baseDir == "" {
		return nil, fmt.Errorf("storage dir is required")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}

	return &FileStore{baseDir: abs}, nil
}

// Path is the file a preview is stored at.
func (s *FileStore) Path(projectID string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(Key(projectID)))
}

// Put writes html through a temporary file and a rename, so concurrent
// readers see either the old or the new document.
func (s *FileStore) Put(_ context.Context, projectID, html string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if err := checkID(projectID); err != nil {
		return err
	}

	target := s.Path(projectID)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create previews dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+projectID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp preview: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(html); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preview: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod preview: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("rename preview: %w", err)
	}

	return nil
}

// Get reads a stored preview.
func (s *FileStore) Get(_ context.Context, projectID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	if err := checkID(projectID); err != nil {
		return "", err
	}

	data, err := os.ReadFile(s.Path(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read preview: %w", err)
	}

	return string(data), nil
}
