package operator

import (
	"context"
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"

	"github.com/labwise-dev/labwise-go/internal/protocol"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

func manipulates() protocol.ManipulateDocument {
	return protocol.ManipulateDocument{
		{
			Name:   "liquid_handler",
			Input:  []protocol.Port{{ID: "labware_in"}, {ID: "reagent"}},
			Output: []protocol.Port{{ID: "labware_out"}},
		},
	}
}

func TestNewReadsTaskPorts(t *testing.T) {
	op := New("tecan_fluent_480", "liquid_handler", manipulates(), "runs/7/")
	if want := []string{"labware_in", "reagent"}; !reflect.DeepEqual(op.TaskInputs, want) {
		t.Fatalf("expected inputs %v, got %v", want, op.TaskInputs)
	}
	if want := []string{"labware_out"}; !reflect.DeepEqual(op.TaskOutputs, want) {
		t.Fatalf("expected outputs %v, got %v", want, op.TaskOutputs)
	}
	if op.StorageAddress != "runs/7/operators/tecan_fluent_480/" {
		t.Fatalf("unexpected storage address %q", op.StorageAddress)
	}
}

func TestNewWithoutManipulateEntry(t *testing.T) {
	op := New("human_store_labware", "store_labware", manipulates(), "runs/7/")
	if op.TaskInputs != nil || op.TaskOutputs != nil {
		t.Fatalf("expected no ports, got %v / %v", op.TaskInputs, op.TaskOutputs)
	}
}

func TestDefaultPoolCandidates(t *testing.T) {
	pool := DefaultPool(manipulates(), "runs/7/")
	if len(pool) != 5 {
		t.Fatalf("expected 5 instruments, got %d", len(pool))
	}

	handlers := pool.Candidates("liquid_handler")
	if len(handlers) != 2 {
		t.Fatalf("expected 2 liquid handlers, got %d", len(handlers))
	}
	for _, op := range handlers {
		if op.Type != "liquid_handler" {
			t.Fatalf("candidate %q has type %q", op.ID, op.Type)
		}
	}

	readers := pool.Candidates("plate_reader")
	if len(readers) != 1 || readers[0].ID != "tecan_infinite_200_pro" {
		t.Fatalf("unexpected plate readers: %+v", readers)
	}

	if got := pool.Candidates("sequencer"); got != nil {
		t.Fatalf("expected no sequencer candidates, got %+v", got)
	}
}

func TestRandomSelectorStaysInCandidateSet(t *testing.T) {
	pool := DefaultPool(manipulates(), "runs/7/")
	candidates := pool.Candidates("liquid_handler")
	choose := RandomSelector(rand.New(rand.NewSource(42)))

	for i := 0; i < 50; i++ {
		picked := choose(candidates)
		if picked.Type != "liquid_handler" {
			t.Fatalf("selector escaped candidate set: %+v", picked)
		}
	}
}

func TestFirstSelectorDeterministic(t *testing.T) {
	pool := DefaultPool(manipulates(), "runs/7/")
	candidates := pool.Candidates("liquid_handler")
	choose := FirstSelector()
	if got := choose(candidates).ID; got != "tecan_fluent_480" {
		t.Fatalf("expected first candidate, got %q", got)
	}
}

func TestRunPersistsMetadata(t *testing.T) {
	store := storage.NewMemoryWriter()
	op := New("tecan_infinite_200_pro", "plate_reader", manipulates(), "runs/7/")

	if err := op.Run(context.Background(), store, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, ok := store.Object("runs/7/operators/tecan_infinite_200_pro/metadata.json")
	if !ok {
		t.Fatalf("expected metadata artifact, stored: %v", store.Paths())
	}
	var record Metadata
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("metadata is not valid json: %v", err)
	}
	if record.OperatorID != "tecan_infinite_200_pro" || record.Status != "completed" {
		t.Fatalf("unexpected metadata: %+v", record)
	}
}
