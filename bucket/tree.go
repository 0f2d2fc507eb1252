package bucket

import (
	"context"
	"fmt"

	"github.com/grafast-dev/grafast/plan"
)

// TypeResolver determines the concrete type name backing a polymorphic
// field's runtime value, used to route a row into the matching
// LayerPolymorphic branch bucket.
type TypeResolver func(value any) (string, error)

// Runner drives a complete OperationPlan's bucket tree to completion,
// starting from a single-row root bucket, running each layer, and fanning
// out + recursing into every child layer (spec.md §4.4, §4.5).
type Runner struct {
	Plan    *plan.OperationPlan
	Exec    *Executor
	Request *plan.RequestContext
	Resolve TypeResolver
}

// NewRunner creates a Runner for op. resolveType may be nil if op has no
// polymorphic fields.
func NewRunner(op *plan.OperationPlan, request *plan.RequestContext, resolveType TypeResolver) *Runner {
	return &Runner{Plan: op, Exec: NewExecutor(), Request: request, Resolve: resolveType}
}

// Run executes the whole plan and returns the populated root bucket, ready
// for the output package to render a response against.
func (r *Runner) Run(ctx context.Context) (*Bucket, error) {
	if err := r.Plan.BeginExecuting(); err != nil {
		return nil, err
	}
	root := NewBucket(r.Plan.RootLayer(), 1, nil, nil)
	if err := r.runBucket(ctx, root); err != nil {
		r.Plan.Fail()
		return nil, err
	}
	if err := r.Plan.Complete(); err != nil {
		return nil, err
	}
	return root, nil
}

func (r *Runner) extraFor(b *Bucket) ExtraFunc {
	return func(row int) plan.ExecutionExtra {
		return plan.ExecutionExtra{Context: context.Background(), RequestCx: r.Request}
	}
}

func (r *Runner) runBucket(ctx context.Context, b *Bucket) error {
	if err := r.Exec.RunLayer(ctx, r.Plan, b, r.extraFor(b)); err != nil {
		return err
	}
	if err := r.fanOutChildren(b); err != nil {
		return err
	}
	return RunChildren(ctx, b, r.runBucket)
}

func (r *Runner) fanOutChildren(b *Bucket) error {
	for _, child := range b.Layer.Children() {
		switch child.Kind() {
		case plan.LayerListItem:
			if err := r.fanOutListItem(b, child); err != nil {
				return err
			}
		case plan.LayerPolymorphic:
			if err := r.fanOutPolymorphic(b, child); err != nil {
				return err
			}
		case plan.LayerMutationField, plan.LayerDeferStream, plan.LayerSubscription:
			r.fanOut1to1(b, child)
		}
	}
	return nil
}

// fanOutListItem flattens every live parent row's list value into one
// child bucket, recording which parent row each resulting row descends
// from; the child layer's driving step id is repurposed, within the child
// bucket, to mean "this row's item value" rather than "the whole list"
// (spec.md §4.4, list-item layers).
func (r *Runner) fanOutListItem(b *Bucket, child *plan.LayerPlan) error {
	vec := b.ResolveVector(child.ParentStep())

	var parentRowMap []int
	var values []any
	var errs []error
	for parentRow := 0; parentRow < b.Size; parentRow++ {
		if !vec.Alive[parentRow] || vec.Errs[parentRow] != nil {
			continue
		}
		if vec.Values[parentRow] == nil {
			continue
		}
		list, ok := vec.Values[parentRow].([]any)
		if !ok {
			return fmt.Errorf("list field in layer %d: expected []any row value, got %T", child.ID(), vec.Values[parentRow])
		}
		for _, item := range list {
			parentRowMap = append(parentRowMap, parentRow)
			values = append(values, item)
			errs = append(errs, nil)
		}
	}

	childBucket := NewBucket(child, len(parentRowMap), b, parentRowMap)
	childBucket.vectors[child.ParentStep()] = &plan.ValueVector{Values: values, Errs: errs, Alive: allTrue(len(values))}
	b.AddChild(child.ID(), childBucket)
	return nil
}

// fanOutPolymorphic builds one child bucket per concrete-type branch,
// containing only the parent rows whose resolved runtime type matches that
// branch's single TypeSet entry (spec.md §4.4, polymorphic layers).
func (r *Runner) fanOutPolymorphic(b *Bucket, child *plan.LayerPlan) error {
	if r.Resolve == nil {
		return fmt.Errorf("polymorphic layer %d: no type resolver configured", child.ID())
	}
	vec := b.ResolveVector(child.ParentStep())
	wantType := ""
	if len(child.TypeSet()) > 0 {
		wantType = child.TypeSet()[0]
	}

	var parentRowMap []int
	var values []any
	var errs []error
	for parentRow := 0; parentRow < b.Size; parentRow++ {
		if !vec.Alive[parentRow] || vec.Errs[parentRow] != nil {
			continue
		}
		actualType, err := r.Resolve(vec.Values[parentRow])
		if err != nil {
			return fmt.Errorf("resolving concrete type for layer %d: %w", child.ID(), err)
		}
		if actualType != wantType {
			continue
		}
		parentRowMap = append(parentRowMap, parentRow)
		values = append(values, vec.Values[parentRow])
		errs = append(errs, nil)
	}

	childBucket := NewBucket(child, len(parentRowMap), b, parentRowMap)
	childBucket.vectors[child.ParentStep()] = &plan.ValueVector{Values: values, Errs: errs, Alive: allTrue(len(values))}
	b.AddChild(child.ID(), childBucket)
	return nil
}

// fanOut1to1 is used by layer kinds whose rows map identically onto their
// parent's (mutation-field, defer-stream, subscription): the child bucket
// has the same size and an identity (nil) ParentRowMap.
func (r *Runner) fanOut1to1(b *Bucket, child *plan.LayerPlan) {
	childBucket := NewBucket(child, b.Size, b, nil)
	b.AddChild(child.ID(), childBucket)
}

func allTrue(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}
