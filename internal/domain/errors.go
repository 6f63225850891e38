package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProtocol marks malformed external input, surfaced before graph
// construction begins.
var ErrInvalidProtocol = errors.New("invalid protocol definition")

// NoMatchingOperatorError indicates graph construction found no operator
// whose capability type matches a declared process.
type NoMatchingOperatorError struct {
	ProcessID string
	Type      string
}

func (e *NoMatchingOperatorError) Error() string {
	return fmt.Sprintf("no operator of type %q matches process %q", e.Type, e.ProcessID)
}

// CycleError indicates the dependency edge set is not a DAG. Nodes carries
// the offending node set discovered during traversal.
type CycleError struct {
	Nodes []string
}

func (e *CycleError) Error() string {
	return "dependency graph contains a cycle: " + strings.Join(e.Nodes, " -> ")
}

// UpstreamError indicates a collaborator call returned a non-success or
// malformed response. Fatal to the calling step.
type UpstreamError struct {
	Op     string
	Status int
	Detail string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("log server %s failed: status %d: %s", e.Op, e.Status, e.Detail)
	}
	return fmt.Sprintf("log server %s failed: %s", e.Op, e.Detail)
}

// StorageWriteError indicates artifact persistence failed. Fatal to the
// current operation.
type StorageWriteError struct {
	Path string
	Err  error
}

func (e *StorageWriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("storage write failed for %s: %v", e.Path, e.Err)
	}
	return "storage write failed for " + e.Path
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}
