// Package drive executes a scheduled operation sequence, walking each
// operation through its lifecycle and reporting to the log server and the
// artifact store.
package drive

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/labwise-dev/labwise-go/internal/domain"
	"github.com/labwise-dev/labwise-go/internal/logserver"
	"github.com/labwise-dev/labwise-go/internal/storage"
)

// Sampler yields the simulated duration of one unit of work.
type Sampler func() time.Duration

// UniformSampler draws uniformly from [min, max].
func UniformSampler(r *rand.Rand, min, max time.Duration) Sampler {
	if max < min {
		min, max = max, min
	}
	return func() time.Duration {
		if max == min {
			return min
		}
		return min + time.Duration(r.Int63n(int64(max-min)+1))
	}
}

// Driver trusts the schedule: operations run strictly in plan order and no
// dependency is re-checked at execution time. Any failure aborts the
// remaining schedule and marks the run failed.
type Driver struct {
	log     logserver.Client
	store   storage.Writer
	logger  *slog.Logger
	sample  Sampler
	now     func() time.Time
	wait    func(context.Context, time.Duration) error
	workers int
}

type Option func(*Driver)

// WithSampler replaces the work-duration source.
func WithSampler(s Sampler) Option {
	return func(d *Driver) { d.sample = s }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithWorkers enables parallel execution of order-unconstrained operations
// with at most n in flight. n <= 1 keeps the sequential baseline.
func WithWorkers(n int) Option {
	return func(d *Driver) { d.workers = n }
}

func New(log logserver.Client, store storage.Writer, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		log:     log,
		store:   store,
		logger:  logger,
		sample:  UniformSampler(rand.New(rand.NewSource(time.Now().UnixNano())), 1*time.Second, 3*time.Second),
		now:     time.Now,
		wait:    sleep,
		workers: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Execute drives every operation of the plan to a terminal state and settles
// the run. The returned error is nil only when the run completed.
func (d *Driver) Execute(ctx context.Context, run *domain.Run, plan []string, result OperationSet, edges []domain.Edge) error {
	if err := d.startRun(ctx, run); err != nil {
		return err
	}

	var execErr error
	if d.workers > 1 {
		execErr = d.executeParallel(ctx, plan, result, edges)
	} else {
		execErr = d.executeSequential(ctx, plan, result)
	}

	if execErr != nil {
		d.settleRun(ctx, run, domain.RunFailed)
		return execErr
	}
	return d.settleRunChecked(ctx, run, domain.RunCompleted)
}

// OperationSet resolves plan entries to operations.
type OperationSet map[string]*domain.Operation

// NewOperationSet indexes operations by name.
func NewOperationSet(ops []*domain.Operation) OperationSet {
	out := make(OperationSet, len(ops))
	for _, op := range ops {
		out[op.Name] = op
	}
	return out
}

func (d *Driver) executeSequential(ctx context.Context, plan []string, ops OperationSet) error {
	for _, name := range plan {
		op, ok := ops[name]
		if !ok {
			return fmt.Errorf("plan references unknown operation %q", name)
		}
		if err := d.runOperation(ctx, op); err != nil {
			return err
		}
	}
	return nil
}

// runOperation is one full lifecycle: start report, simulated work, artifact
// write, finish report. All reports for one operation are fully ordered.
func (d *Driver) runOperation(ctx context.Context, op *domain.Operation) error {
	started := d.now()
	if err := op.Transition(domain.OperationRunning, started); err != nil {
		return err
	}
	if err := d.log.PatchAttribute(ctx, logserver.KindOperation, op.ID, logserver.AttrStartedAt, logserver.FormatTime(started)); err != nil {
		return d.failOperation(ctx, op, err)
	}
	if err := d.log.PatchAttribute(ctx, logserver.KindOperation, op.ID, logserver.AttrStatus, string(domain.OperationRunning)); err != nil {
		return d.failOperation(ctx, op, err)
	}

	if err := d.wait(ctx, d.sample()); err != nil {
		return d.failOperation(ctx, op, err)
	}

	finished := d.now()
	logLine := fmt.Sprintf("Operation %s completed at %s", op.Name, logserver.FormatTime(finished))

	if err := storage.SaveText(ctx, d.store, op.StorageAddress+"log.txt", logLine); err != nil {
		return d.failOperation(ctx, op, err)
	}
	d.logger.Info("operation log saved", "operation", op.Name, "path", op.StorageAddress+"log.txt")

	if err := d.log.PatchAttribute(ctx, logserver.KindOperation, op.ID, logserver.AttrLog, logLine); err != nil {
		return d.failOperation(ctx, op, err)
	}
	if err := d.log.PatchAttribute(ctx, logserver.KindOperation, op.ID, logserver.AttrFinishedAt, logserver.FormatTime(finished)); err != nil {
		return d.failOperation(ctx, op, err)
	}
	if err := op.Transition(domain.OperationCompleted, finished); err != nil {
		return err
	}
	return d.log.PatchAttribute(ctx, logserver.KindOperation, op.ID, logserver.AttrStatus, string(domain.OperationCompleted))
}

// failOperation marks the in-flight operation failed. The status report is
// best effort: the original error always wins.
func (d *Driver) failOperation(ctx context.Context, op *domain.Operation, cause error) error {
	if op.Status == domain.OperationRunning {
		_ = op.Transition(domain.OperationFailed, d.now())
	}
	if err := d.log.PatchAttribute(ctx, logserver.KindOperation, op.ID, logserver.AttrStatus, string(domain.OperationFailed)); err != nil {
		d.logger.Error("failed to report operation failure", "operation", op.Name, "error", err)
	}
	return fmt.Errorf("operation %s: %w", op.Name, cause)
}

func (d *Driver) startRun(ctx context.Context, run *domain.Run) error {
	started := d.now()
	run.Status = domain.RunRunning
	run.StartedAt = &started
	if err := d.log.PatchAttribute(ctx, logserver.KindRun, run.ID, logserver.AttrStartedAt, logserver.FormatTime(started)); err != nil {
		return err
	}
	return d.log.PatchAttribute(ctx, logserver.KindRun, run.ID, logserver.AttrStatus, string(domain.RunRunning))
}

// settleRun records a terminal run state, best effort. Used on the failure
// path where the execution error must propagate regardless.
func (d *Driver) settleRun(ctx context.Context, run *domain.Run, status domain.RunStatus) {
	if err := d.settleRunChecked(ctx, run, status); err != nil {
		d.logger.Error("failed to settle run", "run_id", run.ID, "status", status, "error", err)
	}
}

func (d *Driver) settleRunChecked(ctx context.Context, run *domain.Run, status domain.RunStatus) error {
	finished := d.now()
	run.Status = status
	run.FinishedAt = &finished
	if err := d.log.PatchAttribute(ctx, logserver.KindRun, run.ID, logserver.AttrFinishedAt, logserver.FormatTime(finished)); err != nil {
		return err
	}
	return d.log.PatchAttribute(ctx, logserver.KindRun, run.ID, logserver.AttrStatus, string(status))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
