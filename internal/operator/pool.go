package operator

import (
	"math/rand"

	"github.com/labwise-dev/labwise-go/internal/protocol"
)

// Pool is the static set of capability providers available to a run.
type Pool []Operator

// Instrument fleet of the simulated laboratory. Two liquid handlers keep the
// selection policy honest: a liquid_handler process may land on either.
var defaultInstruments = []struct {
	ID   string
	Type string
}{
	{"human_plate_server", "plate_server"},
	{"tecan_fluent_480", "liquid_handler"},
	{"opentrons_ot2", "liquid_handler"},
	{"tecan_infinite_200_pro", "plate_reader"},
	{"human_store_labware", "store_labware"},
}

// DefaultPool builds the standard instrument fleet scoped to a run.
func DefaultPool(manipulates protocol.ManipulateDocument, runPrefix string) Pool {
	pool := make(Pool, 0, len(defaultInstruments))
	for _, inst := range defaultInstruments {
		pool = append(pool, New(inst.ID, inst.Type, manipulates, runPrefix))
	}
	return pool
}

// Candidates returns every operator whose capability type matches, in pool
// order.
func (p Pool) Candidates(capabilityType string) []Operator {
	var out []Operator
	for _, op := range p {
		if op.Type == capabilityType {
			out = append(out, op)
		}
	}
	return out
}

// Selector picks one operator from a non-empty candidate set. Injected so the
// graph builder stays deterministic under test.
type Selector func(candidates []Operator) Operator

// RandomSelector spreads load uniformly across matching operators.
func RandomSelector(r *rand.Rand) Selector {
	return func(candidates []Operator) Operator {
		return candidates[r.Intn(len(candidates))]
	}
}

// FirstSelector always picks the first candidate. Deterministic; used by
// tests and single-operator deployments.
func FirstSelector() Selector {
	return func(candidates []Operator) Operator {
		return candidates[0]
	}
}
