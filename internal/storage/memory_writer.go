package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// MemoryWriter keeps artifacts in memory. Used by tests and throwaway local
// experimentation; never selected by New.
type MemoryWriter struct {
	mu      sync.Mutex
	objects map[string][]byte

	// FailPath, when set, makes writes to that exact path fail.
	FailPath string
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{objects: make(map[string][]byte)}
}

func (w *MemoryWriter) Mode() string {
	return "memory"
}

func (w *MemoryWriter) Save(ctx context.Context, path string, content []byte, contentType string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.FailPath != "" && w.FailPath == path {
		return &domain.StorageWriteError{Path: path, Err: errors.New("injected write failure")}
	}
	cp := make([]byte, len(content))
	copy(cp, content)
	w.objects[path] = cp
	return nil
}

// Object returns a stored artifact.
func (w *MemoryWriter) Object(path string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	content, ok := w.objects[path]
	return content, ok
}

// Paths returns every stored path.
func (w *MemoryWriter) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.objects))
	for path := range w.objects {
		out = append(out, path)
	}
	return out
}
