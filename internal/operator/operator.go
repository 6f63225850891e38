// Package operator models the simulated instruments available to a run.
package operator

import (
	"context"
	"time"

	"github.com/labwise-dev/labwise-go/internal/protocol"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

// Operator is a capability provider: one simulated instrument with a declared
// capability type and task ports. Selected, never mutated, during graph
// construction.
type Operator struct {
	ID             string
	Type           string
	TaskInputs     []string
	TaskOutputs    []string
	StorageAddress string
}

// New builds an operator scoped under a run's storage prefix. Task ports come
// from the manipulate entry matching the capability type, when one exists.
func New(id, capabilityType string, manipulates protocol.ManipulateDocument, runPrefix string) Operator {
	op := Operator{
		ID:             id,
		Type:           capabilityType,
		StorageAddress: runPrefix + "operators/" + id + "/",
	}
	if m, ok := manipulates.ByName(capabilityType); ok {
		for _, port := range m.Input {
			op.TaskInputs = append(op.TaskInputs, port.ID)
		}
		for _, port := range m.Output {
			op.TaskOutputs = append(op.TaskOutputs, port.ID)
		}
	}
	return op
}

// Metadata is the instrument-scoped record an operator can persist for one
// unit of simulated work.
type Metadata struct {
	OperatorID string `json:"operator_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Metadata   string `json:"metadata"`
}

// Run simulates one unit of instrument work and persists a metadata record
// under the operator's own storage path. This is an instrumentation side
// channel; the execution driver does not call it as part of the operation
// lifecycle.
func (o Operator) Run(ctx context.Context, store storage.Writer, workFor time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(workFor):
	}
	record := Metadata{
		OperatorID: o.ID,
		Type:       o.Type,
		Status:     "completed",
		Metadata:   "sample_metadata",
	}
	return storage.SaveJSON(ctx, store, o.StorageAddress+"metadata.json", record)
}
