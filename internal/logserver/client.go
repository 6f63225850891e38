// Package logserver talks to the external run ledger. The log server owns
// durable identifiers and all persisted execution state; this service only
// creates entities and patches single attributes on them.
package logserver

import (
	"context"
	"time"
)

// EntityKind selects the collection a patch applies to.
type EntityKind string

const (
	KindRun       EntityKind = "runs"
	KindProcess   EntityKind = "processes"
	KindOperation EntityKind = "operations"
	KindEdge      EntityKind = "edges"
)

// Attribute names patched during a run lifecycle.
const (
	AttrStatus         = "status"
	AttrStartedAt      = "started_at"
	AttrFinishedAt     = "finished_at"
	AttrStorageAddress = "storage_address"
	AttrStorageMode    = "storage_mode"
	AttrLog            = "log"
)

type CreateRunInput struct {
	ProjectID      string
	FileName       string
	Checksum       string
	UserID         string
	StorageAddress string
}

type CreateProcessInput struct {
	Name           string
	RunID          string
	StorageAddress string
}

type CreateOperationInput struct {
	ProcessID      string
	Name           string
	Status         string
	StorageAddress string
	IsTransport    bool
	IsData         bool
}

type CreateEdgeInput struct {
	RunID  string
	FromID string
	ToID   string
}

// Client is the log-server collaborator. Every create returns the durable
// identifier the log server assigned. Implementations must report any
// non-success or malformed response as *domain.UpstreamError.
type Client interface {
	CreateRun(ctx context.Context, in CreateRunInput) (string, error)
	CreateProcess(ctx context.Context, in CreateProcessInput) (string, error)
	CreateOperation(ctx context.Context, in CreateOperationInput) (string, error)
	CreateEdge(ctx context.Context, in CreateEdgeInput) (string, error)
	PatchAttribute(ctx context.Context, kind EntityKind, id, attribute, value string) error
}

// FormatTime renders timestamps the way the log server stores them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
