package bucket

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/grafast-dev/grafast/plan"
)

// Executor runs one LayerPlan's steps against a Bucket, respecting
// dependency order within the layer. Steps whose dependencies are already
// satisfied form a wave, run together (errgroup-parallel for batch-form
// steps, a tight per-row loop for sync-and-safe ones). Grounded on the
// teacher's wave-based executeSteps/findReadySteps
// (federation/executor/executor_v2.go), adapted from cross-subgraph
// dependency waves to within-layer step dependency waves (spec.md §4.5).
type Executor struct{}

// NewExecutor creates a stateless Executor.
func NewExecutor() *Executor { return &Executor{} }

// ExtraFunc builds the ExecutionExtra for row r of the bucket being run.
type ExtraFunc func(row int) plan.ExecutionExtra

// RunLayer executes every step owned by bucket.Layer against bucket, wave
// by wave.
func (e *Executor) RunLayer(ctx context.Context, op *plan.OperationPlan, b *Bucket, extra ExtraFunc) error {
	waves, err := e.buildWaves(op, b.Layer)
	if err != nil {
		return err
	}
	for _, wave := range waves {
		if err := ctx.Err(); err != nil {
			return &CancellationError{Cause: err}
		}
		if err := e.runWave(ctx, op, b, wave, extra); err != nil {
			return err
		}
	}
	return nil
}

// buildWaves groups layer's steps (already topologically ordered by
// OperationPlan.Finalize) into dependency waves via Kahn's algorithm
// restricted to within-layer edges; cross-layer dependencies are assumed
// already available via Broadcast.
func (e *Executor) buildWaves(op *plan.OperationPlan, layer *plan.LayerPlan) ([][]plan.StepID, error) {
	ids := layer.Steps()
	inLayer := make(map[plan.StepID]bool, len(ids))
	for _, id := range ids {
		inLayer[id] = true
	}

	indegree := make(map[plan.StepID]int, len(ids))
	dependents := make(map[plan.StepID][]plan.StepID, len(ids))
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, id := range ids {
		for _, dep := range op.Step(id).Dependencies() {
			if !inLayer[dep] || dep == id {
				continue
			}
			dependents[dep] = append(dependents[dep], id)
			indegree[id]++
		}
	}

	var frontier []plan.StepID
	for _, id := range ids {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	var waves [][]plan.StepID
	remaining := len(ids)
	for remaining > 0 {
		if len(frontier) == 0 {
			return nil, fmt.Errorf("cycle detected among steps in layer %d", layer.ID())
		}
		waves = append(waves, frontier)
		remaining -= len(frontier)
		var next []plan.StepID
		for _, id := range frontier {
			for _, dep := range dependents[id] {
				indegree[dep]--
				if indegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}
	return waves, nil
}

func (e *Executor) runWave(ctx context.Context, op *plan.OperationPlan, b *Bucket, wave []plan.StepID, extra ExtraFunc) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range wave {
		id := id
		g.Go(func() error {
			return e.runStep(gctx, op, b, id, extra)
		})
	}
	return g.Wait()
}

func (e *Executor) runStep(ctx context.Context, op *plan.OperationPlan, b *Bucket, id plan.StepID, extra ExtraFunc) error {
	step := op.Step(id)
	deps := step.Dependencies()
	values := make([]*plan.ValueVector, len(deps))
	for i, dep := range deps {
		values[i] = e.vectorFor(b, dep)
	}
	out := b.Vector(id)

	if safe, ok := step.(plan.SyncAndSafeStep); ok && step.Flags().Has(plan.FlagSyncAndSafe) {
		row := make([]any, len(deps))
		for r := 0; r < b.Size; r++ {
			if !allAlive(values, r) {
				out.Kill(r)
				continue
			}
			for i, v := range values {
				row[i] = v.Values[r]
			}
			out.Set(r, safe.ExecuteOne(row, extra(r)))
		}
		return nil
	}

	results, err := step.Execute(ctx, values, extra(0))
	if err != nil {
		return &ExecutionError{StepID: id, LayerID: b.Layer.ID(), Cause: err}
	}
	// A step with no dependencies that is not sync-and-safe (e.g. a
	// parentless lambda) produces one template result rather than one per row, since it has no
	// per-row input to vary on; broadcast it across the whole bucket.
	if len(deps) == 0 && len(results) == 1 && b.Size != 1 {
		for r := 0; r < b.Size; r++ {
			out.Set(r, results[0])
		}
		return nil
	}
	for r, res := range results {
		out.Set(r, res)
	}
	return nil
}

func (e *Executor) vectorFor(b *Bucket, id plan.StepID) *plan.ValueVector {
	return b.ResolveVector(id)
}

func allAlive(values []*plan.ValueVector, row int) bool {
	for _, v := range values {
		if !v.Alive[row] {
			return false
		}
	}
	return true
}
