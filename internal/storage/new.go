package storage

import "fmt"

// New selects the backend for the configured mode.
func New(cfg Config) (Writer, error) {
	switch cfg.Mode {
	case ModeS3:
		return NewMinioWriter(cfg)
	case ModeLocal:
		return NewLocalWriter(cfg.LocalRoot)
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.Mode)
	}
}
