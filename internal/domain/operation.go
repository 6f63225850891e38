package domain

import (
	"errors"
	"strings"
	"time"
)

// Operation is the atomic schedulable unit. Step operations are derived 1:1
// from a Process; transport operations are synthesized from non-data
// connections and owned by the source process.
type Operation struct {
	ID             string
	ProcessID      string
	ProcessName    string
	Name           string
	Status         OperationStatus
	StartedAt      *time.Time
	FinishedAt     *time.Time
	StorageAddress string
	IsTransport    bool
	IsData         bool
}

// Transition applies a lifecycle transition, rejecting any move the state
// machine does not allow. Each operation passes through exactly one full
// transition sequence.
func (o *Operation) Transition(next OperationStatus, at time.Time) error {
	if !CanTransitionOperation(o.Status, next) {
		return errors.New("invalid operation transition: " + string(o.Status) + " -> " + string(next))
	}
	switch next {
	case OperationRunning:
		t := at
		o.StartedAt = &t
	case OperationCompleted, OperationFailed:
		t := at
		o.FinishedAt = &t
	}
	o.Status = next
	return nil
}

func (o Operation) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("operation name is required")
	}
	if strings.TrimSpace(o.ProcessName) == "" {
		return errors.New("operation process name is required")
	}
	return nil
}

// Edge is a directed precedence constraint between two operations: From must
// complete before To starts. The edge set over all operations of a run must
// form a DAG.
type Edge struct {
	From string
	To   string
}
