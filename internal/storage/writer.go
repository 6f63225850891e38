// Package storage is the write-only artifact sink for runs. Reads and
// retention are owned by the log server; this service only appends.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Storage backend modes.
const (
	ModeS3    = "s3"
	ModeLocal = "local"
)

// Writer persists run artifacts under relative paths rooted at
// runs/<run_id>/. Implementations report failures as
// *domain.StorageWriteError.
type Writer interface {
	Save(ctx context.Context, path string, content []byte, contentType string) error
	Mode() string
}

// SaveText persists a plain-text artifact.
func SaveText(ctx context.Context, w Writer, path, text string) error {
	return w.Save(ctx, path, []byte(text), "text/plain")
}

// SaveJSON persists a JSON artifact.
func SaveJSON(ctx context.Context, w Writer, path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json artifact: %w", err)
	}
	return w.Save(ctx, path, content, "application/json")
}
