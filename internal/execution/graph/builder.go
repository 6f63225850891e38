// Package graph compiles a protocol definition into the run-scoped
// dependency graph: processes, schedulable operations and precedence edges.
package graph

import (
	"context"
	"fmt"

	"github.com/labwise-dev/labwise-go/internal/domain"
	"github.com/labwise-dev/labwise-go/internal/logserver"
	"github.com/labwise-dev/labwise-go/internal/operator"
	"github.com/labwise-dev/labwise-go/internal/protocol"
)

// Result is the materialized graph. Operations holds step operations in
// process declaration order followed by transport operations in connection
// order; Edges reference operations by name.
type Result struct {
	Processes  []*domain.Process
	Operations []*domain.Operation
	Edges      []domain.Edge
}

// OperationByName returns the named operation, if present.
func (r Result) OperationByName(name string) (*domain.Operation, bool) {
	for _, op := range r.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return nil, false
}

// OperationNames returns all operation names in declaration order.
func (r Result) OperationNames() []string {
	out := make([]string, 0, len(r.Operations))
	for _, op := range r.Operations {
		out = append(out, op.Name)
	}
	return out
}

// Builder materializes the graph and registers every entity with the log
// server, which assigns durable identifiers and thereby storage paths.
type Builder struct {
	log    logserver.Client
	choose operator.Selector
}

func NewBuilder(log logserver.Client, choose operator.Selector) *Builder {
	return &Builder{log: log, choose: choose}
}

// Build compiles the protocol for one run. Registration is synchronous: any
// collaborator failure aborts construction.
func (b *Builder) Build(ctx context.Context, run domain.Run, doc protocol.Document, pool operator.Pool) (Result, error) {
	prefix := run.StoragePrefix()

	processes := make([]*domain.Process, 0, len(doc.Operations)+2)
	for _, step := range doc.Operations {
		processes = append(processes, &domain.Process{
			RunID:        run.ID,
			Type:         step.Type,
			IDInProtocol: step.ID,
		})
	}
	processes = append(processes,
		&domain.Process{RunID: run.ID, Type: domain.SentinelInput, IDInProtocol: domain.SentinelInput},
		&domain.Process{RunID: run.ID, Type: domain.SentinelOutput, IDInProtocol: domain.SentinelOutput},
	)

	for _, proc := range processes {
		if err := b.registerProcess(ctx, proc, prefix); err != nil {
			return Result{}, err
		}
	}

	operations := make([]*domain.Operation, 0, len(processes)+len(doc.Connections))
	stepOpByProcess := make(map[string]*domain.Operation, len(processes))
	for _, proc := range processes {
		op, err := b.stepOperation(proc, pool)
		if err != nil {
			return Result{}, err
		}
		operations = append(operations, op)
		stepOpByProcess[proc.IDInProtocol] = op
	}

	var edges []domain.Edge
	for _, conn := range doc.Connections {
		src, ok := stepOpByProcess[conn.Input.Process]
		if !ok {
			return Result{}, fmt.Errorf("%w: connection references unknown process %q", domain.ErrInvalidProtocol, conn.Input.Process)
		}
		dst, ok := stepOpByProcess[conn.Output.Process]
		if !ok {
			return Result{}, fmt.Errorf("%w: connection references unknown process %q", domain.ErrInvalidProtocol, conn.Output.Process)
		}

		if conn.IsData {
			// Data flows directly between the two step operations.
			edges = append(edges, domain.Edge{From: src.Name, To: dst.Name})
			continue
		}

		transport := &domain.Operation{
			ProcessID:   src.ProcessID,
			ProcessName: src.ProcessName,
			Name:        transportName(conn),
			Status:      domain.OperationNotStarted,
			IsTransport: true,
			IsData:      conn.IsData,
		}
		operations = append(operations, transport)
		edges = append(edges,
			domain.Edge{From: src.Name, To: transport.Name},
			domain.Edge{From: transport.Name, To: dst.Name},
		)
	}

	idByName := make(map[string]string, len(operations))
	for _, op := range operations {
		if err := b.registerOperation(ctx, op, prefix); err != nil {
			return Result{}, err
		}
		idByName[op.Name] = op.ID
	}

	for _, edge := range edges {
		_, err := b.log.CreateEdge(ctx, logserver.CreateEdgeInput{
			RunID:  run.ID,
			FromID: idByName[edge.From],
			ToID:   idByName[edge.To],
		})
		if err != nil {
			return Result{}, err
		}
	}

	return Result{Processes: processes, Operations: operations, Edges: edges}, nil
}

// stepOperation derives the 1:1 operation for a process. Sentinels pass
// through under their own name; declared processes are assigned a matching
// operator and named after it.
func (b *Builder) stepOperation(proc *domain.Process, pool operator.Pool) (*domain.Operation, error) {
	name := proc.IDInProtocol
	if !proc.Sentinel() {
		candidates := pool.Candidates(proc.Type)
		if len(candidates) == 0 {
			return nil, &domain.NoMatchingOperatorError{ProcessID: proc.IDInProtocol, Type: proc.Type}
		}
		name = b.choose(candidates).ID
	}
	return &domain.Operation{
		ProcessID:   proc.ID,
		ProcessName: proc.IDInProtocol,
		Name:        name,
		Status:      domain.OperationNotStarted,
	}, nil
}

func (b *Builder) registerProcess(ctx context.Context, proc *domain.Process, prefix string) error {
	id, err := b.log.CreateProcess(ctx, logserver.CreateProcessInput{
		Name:  proc.IDInProtocol,
		RunID: proc.RunID,
	})
	if err != nil {
		return err
	}
	proc.ID = id
	proc.StorageAddress = fmt.Sprintf("%sprocesses/%s/", prefix, id)
	return b.log.PatchAttribute(ctx, logserver.KindProcess, id, logserver.AttrStorageAddress, proc.StorageAddress)
}

func (b *Builder) registerOperation(ctx context.Context, op *domain.Operation, prefix string) error {
	id, err := b.log.CreateOperation(ctx, logserver.CreateOperationInput{
		ProcessID:   op.ProcessID,
		Name:        op.Name,
		Status:      string(op.Status),
		IsTransport: op.IsTransport,
		IsData:      op.IsData,
	})
	if err != nil {
		return err
	}
	op.ID = id
	op.StorageAddress = fmt.Sprintf("%soperations/%s/", prefix, id)
	return b.log.PatchAttribute(ctx, logserver.KindOperation, id, logserver.AttrStorageAddress, op.StorageAddress)
}

func transportName(conn protocol.Connection) string {
	return fmt.Sprintf("%s_%s_%s_%s", conn.Input.Process, conn.Input.Port, conn.Output.Process, conn.Output.Port)
}
