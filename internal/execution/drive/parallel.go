package drive

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/labwise-dev/labwise-go/internal/domain"
)

// executeParallel runs order-unconstrained operations concurrently while
// preserving every edge: an operation starts only after all its predecessors
// have completed. Lifecycle reports for a single operation stay ordered
// because each operation runs on exactly one goroutine. The first failure
// cancels everything not yet started.
func (d *Driver) executeParallel(ctx context.Context, plan []string, ops OperationSet, edges []domain.Edge) error {
	done := make(map[string]chan struct{}, len(plan))
	for _, name := range plan {
		if _, ok := ops[name]; !ok {
			return fmt.Errorf("plan references unknown operation %q", name)
		}
		done[name] = make(chan struct{})
	}

	preds := make(map[string][]string, len(plan))
	seen := make(map[domain.Edge]struct{}, len(edges))
	for _, edge := range edges {
		if _, dup := seen[edge]; dup {
			continue
		}
		seen[edge] = struct{}{}
		preds[edge.To] = append(preds[edge.To], edge.From)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(d.workers)

	for _, name := range plan {
		op := ops[name]
		signal := done[name]
		waitFor := preds[name]

		group.Go(func() error {
			for _, pred := range waitFor {
				select {
				case <-groupCtx.Done():
					return groupCtx.Err()
				case <-done[pred]:
				}
			}
			if err := d.runOperation(groupCtx, op); err != nil {
				return err
			}
			close(signal)
			return nil
		})
	}

	return group.Wait()
}
