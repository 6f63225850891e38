package domain

import (
	"errors"
	"strings"
	"time"
)

// Run represents a single end-to-end execution of a protocol.
type Run struct {
	ID             string
	ProjectID      string
	UserID         string
	ProtocolName   string
	Checksum       string
	Status         RunStatus
	StartedAt      *time.Time
	FinishedAt     *time.Time
	StorageAddress string
	StorageMode    string
}

// StoragePrefix returns the root path for all artifacts of this run.
func (r Run) StoragePrefix() string {
	return "runs/" + r.ID + "/"
}

func (r Run) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(r.ProjectID) == "" {
		return errors.New("project id is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(r.Checksum) == "" {
		return errors.New("checksum is required")
	}
	return nil
}
