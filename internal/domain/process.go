package domain

import (
	"errors"
	"strings"
)

// Sentinel process identifiers, always present in every protocol graph.
const (
	SentinelInput  = "input"
	SentinelOutput = "output"
)

// Process is a node in the protocol-level graph: either a declared logical
// step or one of the two synthetic sentinels. Immutable after construction
// except for the storage address assigned on registration.
type Process struct {
	ID             string
	RunID          string
	Type           string
	IDInProtocol   string
	StorageAddress string
}

// Sentinel reports whether the process is one of the synthetic endpoints.
func (p Process) Sentinel() bool {
	return p.IDInProtocol == SentinelInput || p.IDInProtocol == SentinelOutput
}

func (p Process) Validate() error {
	if strings.TrimSpace(p.RunID) == "" {
		return errors.New("process run id is required")
	}
	if strings.TrimSpace(p.Type) == "" {
		return errors.New("process type is required")
	}
	if strings.TrimSpace(p.IDInProtocol) == "" {
		return errors.New("process protocol id is required")
	}
	return nil
}
