// Package logservertest provides an in-memory log-server double that records
// every call in order, for use in tests across the execution packages.
package logservertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/labwise-dev/labwise-go/internal/logserver"
)

// Call is one recorded client invocation.
type Call struct {
	Method    string
	Kind      logserver.EntityKind
	ID        string
	Name      string
	Attribute string
	Value     string
}

// Recorder implements logserver.Client in memory. The zero value is ready to
// use. CreateHook and PatchHook, when set, can inject failures.
type Recorder struct {
	mu      sync.Mutex
	counter map[logserver.EntityKind]int
	calls   []Call

	CreateHook func(kind logserver.EntityKind, name string) error
	PatchHook  func(kind logserver.EntityKind, id, attribute, value string) error
}

func NewRecorder() *Recorder {
	return &Recorder{counter: make(map[logserver.EntityKind]int)}
}

func (r *Recorder) CreateRun(ctx context.Context, in logserver.CreateRunInput) (string, error) {
	return r.create(logserver.KindRun, in.FileName)
}

func (r *Recorder) CreateProcess(ctx context.Context, in logserver.CreateProcessInput) (string, error) {
	return r.create(logserver.KindProcess, in.Name)
}

func (r *Recorder) CreateOperation(ctx context.Context, in logserver.CreateOperationInput) (string, error) {
	return r.create(logserver.KindOperation, in.Name)
}

func (r *Recorder) CreateEdge(ctx context.Context, in logserver.CreateEdgeInput) (string, error) {
	return r.create(logserver.KindEdge, in.FromID+"->"+in.ToID)
}

func (r *Recorder) PatchAttribute(ctx context.Context, kind logserver.EntityKind, id, attribute, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PatchHook != nil {
		if err := r.PatchHook(kind, id, attribute, value); err != nil {
			return err
		}
	}
	r.calls = append(r.calls, Call{
		Method:    "patch",
		Kind:      kind,
		ID:        id,
		Attribute: attribute,
		Value:     value,
	})
	return nil
}

func (r *Recorder) create(kind logserver.EntityKind, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateHook != nil {
		if err := r.CreateHook(kind, name); err != nil {
			return "", err
		}
	}
	r.counter[kind]++
	id := fmt.Sprintf("%s-%d", kind, r.counter[kind])
	r.calls = append(r.calls, Call{Method: "create", Kind: kind, ID: id, Name: name})
	return id, nil
}

// Calls returns a snapshot of everything recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Patches returns recorded patches of one attribute, in call order.
func (r *Recorder) Patches(kind logserver.EntityKind, attribute string) []Call {
	var out []Call
	for _, call := range r.Calls() {
		if call.Method == "patch" && call.Kind == kind && call.Attribute == attribute {
			out = append(out, call)
		}
	}
	return out
}

// Created returns recorded creates for one kind, in call order.
func (r *Recorder) Created(kind logserver.EntityKind) []Call {
	var out []Call
	for _, call := range r.Calls() {
		if call.Method == "create" && call.Kind == kind {
			out = append(out, call)
		}
	}
	return out
}

// NameOf resolves a created entity's name from its assigned id.
func (r *Recorder) NameOf(id string) string {
	for _, call := range r.Calls() {
		if call.Method == "create" && call.ID == id {
			return call.Name
		}
	}
	return ""
}
