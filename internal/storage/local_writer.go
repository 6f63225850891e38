package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// LocalWriter persists artifacts under a root directory on the local
// filesystem. Used for development and single-host deployments.
type LocalWriter struct {
	root string
}

func NewLocalWriter(root string) (*LocalWriter, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("local storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalWriter{root: root}, nil
}

func (w *LocalWriter) Mode() string {
	return ModeLocal
}

func (w *LocalWriter) Save(ctx context.Context, path string, content []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return &domain.StorageWriteError{Path: path, Err: err}
	}
	rel, err := w.resolve(path)
	if err != nil {
		return &domain.StorageWriteError{Path: path, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(rel), 0o755); err != nil {
		return &domain.StorageWriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(rel, content, 0o644); err != nil {
		return &domain.StorageWriteError{Path: path, Err: err}
	}
	return nil
}

// resolve rejects paths that would escape the storage root.
func (w *LocalWriter) resolve(path string) (string, error) {
	cleaned := filepath.Clean("/" + strings.ReplaceAll(path, "\\", "/"))
	if cleaned == "/" {
		return "", errors.New("empty artifact path")
	}
	return filepath.Join(w.root, cleaned), nil
}
