package drive

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/labwise-dev/labwise-go/internal/domain"
	"github.com/labwise-dev/labwise-go/internal/logserver"
	"github.com/labwise-dev/labwise-go/internal/logserver/logservertest"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func instantSampler() Sampler {
	return func() time.Duration { return 0 }
}

func fixedClock() func() time.Time {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return base }
}

func newOp(name string) *domain.Operation {
	return &domain.Operation{
		ID:             "op-" + name,
		Name:           name,
		ProcessName:    name,
		Status:         domain.OperationNotStarted,
		StorageAddress: "runs/run-1/operations/" + name + "/",
	}
}

func newTestDriver(rec *logservertest.Recorder, store storage.Writer, opts ...Option) *Driver {
	base := []Option{WithSampler(instantSampler()), WithClock(fixedClock())}
	return New(rec, store, discardLogger(), append(base, opts...)...)
}

func runningOrder(rec *logservertest.Recorder) []string {
	var out []string
	for _, call := range rec.Patches(logserver.KindOperation, logserver.AttrStatus) {
		if call.Value == string(domain.OperationRunning) {
			out = append(out, strings.TrimPrefix(call.ID, "op-"))
		}
	}
	return out
}

func TestExecuteSequentialFollowsPlanOrder(t *testing.T) {
	rec := logservertest.NewRecorder()
	store := storage.NewMemoryWriter()
	driver := newTestDriver(rec, store)

	ops := []*domain.Operation{newOp("input"), newOp("t1"), newOp("mix"), newOp("t2"), newOp("output")}
	plan := []string{"input", "t1", "mix", "t2", "output"}
	run := domain.Run{ID: "run-1", ProjectID: "p", UserID: "u", Checksum: "c"}

	if err := driver.Execute(context.Background(), &run, plan, NewOperationSet(ops), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := runningOrder(rec); !equalStrings(got, plan) {
		t.Fatalf("expected start reports in plan order %v, got %v", plan, got)
	}
	for _, op := range ops {
		if op.Status != domain.OperationCompleted {
			t.Fatalf("operation %s status = %s", op.Name, op.Status)
		}
		if op.StartedAt == nil || op.FinishedAt == nil {
			t.Fatalf("operation %s missing timestamps", op.Name)
		}
	}
	if run.Status != domain.RunCompleted {
		t.Fatalf("run status = %s", run.Status)
	}
	if run.FinishedAt == nil {
		t.Fatal("run missing finish timestamp")
	}
}

func TestExecuteWritesCompletionLog(t *testing.T) {
	rec := logservertest.NewRecorder()
	store := storage.NewMemoryWriter()
	driver := newTestDriver(rec, store)

	op := newOp("mix")
	run := domain.Run{ID: "run-1", ProjectID: "p", UserID: "u", Checksum: "c"}
	if err := driver.Execute(context.Background(), &run, []string{"mix"}, NewOperationSet([]*domain.Operation{op}), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, ok := store.Object("runs/run-1/operations/mix/log.txt")
	if !ok {
		t.Fatalf("expected completion log, stored paths: %v", store.Paths())
	}
	if !strings.HasPrefix(string(content), "Operation mix completed at ") {
		t.Fatalf("unexpected log line %q", content)
	}

	patches := rec.Patches(logserver.KindOperation, logserver.AttrLog)
	if len(patches) != 1 || patches[0].Value != string(content) {
		t.Fatalf("expected log attribute patched with %q, got %v", content, patches)
	}
}

func TestExecuteFailFastOnStorageError(t *testing.T) {
	rec := logservertest.NewRecorder()
	store := storage.NewMemoryWriter()
	store.FailPath = "runs/run-1/operations/t1/log.txt"
	driver := newTestDriver(rec, store)

	ops := []*domain.Operation{newOp("input"), newOp("t1"), newOp("mix")}
	plan := []string{"input", "t1", "mix"}
	run := domain.Run{ID: "run-1", ProjectID: "p", UserID: "u", Checksum: "c"}

	err := driver.Execute(context.Background(), &run, plan, NewOperationSet(ops), nil)
	var writeErr *domain.StorageWriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected StorageWriteError, got %v", err)
	}

	if ops[0].Status != domain.OperationCompleted {
		t.Fatalf("completed predecessor must stay completed, got %s", ops[0].Status)
	}
	if ops[1].Status != domain.OperationFailed {
		t.Fatalf("failing operation status = %s", ops[1].Status)
	}
	if ops[2].Status != domain.OperationNotStarted {
		t.Fatalf("subsequent operation must not start, got %s", ops[2].Status)
	}
	if got := runningOrder(rec); !equalStrings(got, []string{"input", "t1"}) {
		t.Fatalf("expected aborted schedule after t1, got %v", got)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("run status = %s", run.Status)
	}
}

func TestExecuteFailFastOnUpstreamError(t *testing.T) {
	rec := logservertest.NewRecorder()
	rec.PatchHook = func(kind logserver.EntityKind, id, attribute, value string) error {
		if kind == logserver.KindOperation && id == "op-mix" && attribute == logserver.AttrFinishedAt {
			return &domain.UpstreamError{Op: "patch operations.finished_at", Status: 500, Detail: "boom"}
		}
		return nil
	}
	store := storage.NewMemoryWriter()
	driver := newTestDriver(rec, store)

	ops := []*domain.Operation{newOp("mix"), newOp("read")}
	run := domain.Run{ID: "run-1", ProjectID: "p", UserID: "u", Checksum: "c"}

	err := driver.Execute(context.Background(), &run, []string{"mix", "read"}, NewOperationSet(ops), nil)
	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ops[1].Status != domain.OperationNotStarted {
		t.Fatalf("remaining schedule must be aborted, got %s", ops[1].Status)
	}
	if run.Status != domain.RunFailed {
		t.Fatalf("run status = %s", run.Status)
	}
}

func TestExecuteUnknownPlanEntry(t *testing.T) {
	rec := logservertest.NewRecorder()
	driver := newTestDriver(rec, storage.NewMemoryWriter())
	run := domain.Run{ID: "run-1", ProjectID: "p", UserID: "u", Checksum: "c"}

	err := driver.Execute(context.Background(), &run, []string{"ghost"}, NewOperationSet(nil), nil)
	if err == nil || !strings.Contains(err.Error(), "unknown operation") {
		t.Fatalf("expected unknown operation error, got %v", err)
	}
}

func TestExecuteParallelRespectsEdges(t *testing.T) {
	rec := logservertest.NewRecorder()
	store := storage.NewMemoryWriter()
	driver := newTestDriver(rec, store, WithWorkers(4))

	ops := []*domain.Operation{newOp("a"), newOp("b"), newOp("c"), newOp("d")}
	plan := []string{"a", "b", "c", "d"}
	edges := []domain.Edge{
		{From: "a", To: "b"},
		{From: "b", To: "c"},
	}
	run := domain.Run{ID: "run-1", ProjectID: "p", UserID: "u", Checksum: "c"}

	if err := driver.Execute(context.Background(), &run, plan, NewOperationSet(ops), edges); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := runningOrder(rec)
	if len(order) != 4 {
		t.Fatalf("expected 4 start reports, got %v", order)
	}
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	if pos["a"] >= pos["b"] || pos["b"] >= pos["c"] {
		t.Fatalf("edge order violated: %v", order)
	}
	for _, op := range ops {
		if op.Status != domain.OperationCompleted {
			t.Fatalf("operation %s status = %s", op.Name, op.Status)
		}
	}
	if run.Status != domain.RunCompleted {
		t.Fatalf("run status = %s", run.Status)
	}
}

func TestUniformSamplerStaysInBounds(t *testing.T) {
	sampler := UniformSampler(newRand(t), 1*time.Millisecond, 3*time.Millisecond)
	for i := 0; i < 200; i++ {
		d := sampler()
		if d < 1*time.Millisecond || d > 3*time.Millisecond {
			t.Fatalf("sample %v out of bounds", d)
		}
	}
}

func newRand(t *testing.T) *rand.Rand {
	t.Helper()
	return rand.New(rand.NewSource(1))
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
