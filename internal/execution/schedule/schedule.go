// Package schedule linearizes the operation dependency graph.
package schedule

import (
	"github.com/labwise-dev/labwise-go/internal/domain"
)

const (
	white = iota // unvisited
	gray         // in progress
	black        // done
)

// Plan returns a total order of operation names such that for every edge
// (a -> b), a precedes b. declared fixes the tie-break: operations with no
// unresolved predecessor surface in their declaration order, and isolated
// operations keep their declaration order among themselves. Duplicate edges
// collapse. A cycle aborts the whole plan with *domain.CycleError.
//
// The traversal is an iterative depth-first search emitting reverse
// postorder. The explicit frame stack keeps large protocols from exhausting
// goroutine stack space, and the three-state marking distinguishes a cycle
// (an in-progress node reached again) from an already finished node.
func Plan(edges []domain.Edge, declared []string) ([]string, error) {
	nodes := make([]string, 0, len(declared))
	index := make(map[string]struct{}, len(declared))
	addNode := func(name string) {
		if _, ok := index[name]; ok {
			return
		}
		index[name] = struct{}{}
		nodes = append(nodes, name)
	}
	for _, name := range declared {
		addNode(name)
	}

	adj := make(map[string][]string, len(nodes))
	seenEdge := make(map[domain.Edge]struct{}, len(edges))
	for _, edge := range edges {
		if _, dup := seenEdge[edge]; dup {
			continue
		}
		seenEdge[edge] = struct{}{}
		addNode(edge.From)
		addNode(edge.To)
		adj[edge.From] = append(adj[edge.From], edge.To)
	}

	state := make(map[string]int, len(nodes))
	post := make([]string, 0, len(nodes))

	// Seeding in reverse declaration order makes the final reversal restore
	// declaration order among order-unconstrained nodes.
	for i := len(nodes) - 1; i >= 0; i-- {
		root := nodes[i]
		if state[root] != white {
			continue
		}
		stack := []frame{{node: root}}
		state[root] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := adj[top.node]
			if top.next < len(children) {
				child := children[top.next]
				top.next++
				switch state[child] {
				case white:
					state[child] = gray
					stack = append(stack, frame{node: child})
				case gray:
					return nil, &domain.CycleError{Nodes: cycleNodes(stack, child)}
				}
				continue
			}
			state[top.node] = black
			post = append(post, top.node)
			stack = stack[:len(stack)-1]
		}
	}

	for l, r := 0, len(post)-1; l < r; l, r = l+1, r-1 {
		post[l], post[r] = post[r], post[l]
	}
	return post, nil
}

type frame struct {
	node string
	next int
}

// cycleNodes extracts the in-progress path from the reentered node to the
// top of the traversal stack, closing the loop.
func cycleNodes(stack []frame, reentered string) []string {
	start := 0
	for i, f := range stack {
		if f.node == reentered {
			start = i
			break
		}
	}
	out := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		out = append(out, f.node)
	}
	return append(out, reentered)
}
