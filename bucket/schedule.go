package bucket

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/grafast-dev/grafast/plan"
)

// RunLayerFunc executes one child bucket end to end (its own RunLayer call
// plus recursing into its own children); supplied by the caller so this
// package doesn't need to own the whole-tree recursion.
type RunLayerFunc func(ctx context.Context, b *Bucket) error

// RunChildren executes every child bucket fanned out from parent.
// Sibling mutation-field layers run serially in ascending MutationIndex
// order, since a later mutation field's side effects may depend on an
// earlier one having already committed (spec.md §4.5, "Mutation
// serialization"); every other sibling layer kind runs concurrently.
func RunChildren(ctx context.Context, parent *Bucket, run RunLayerFunc) error {
	children := parent.Layer.Children()

	var mutationLayers []*plan.LayerPlan
	var concurrentLayers []*plan.LayerPlan
	for _, child := range children {
		if child.Kind() == plan.LayerMutationField {
			mutationLayers = append(mutationLayers, child)
		} else {
			concurrentLayers = append(concurrentLayers, child)
		}
	}
	sort.Slice(mutationLayers, func(i, j int) bool {
		return mutationLayers[i].MutationIndex() < mutationLayers[j].MutationIndex()
	})

	for _, layer := range mutationLayers {
		for _, child := range parent.ChildrenOf(layer.ID()) {
			if err := run(ctx, child); err != nil {
				return err
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, layer := range concurrentLayers {
		for _, child := range parent.ChildrenOf(layer.ID()) {
			child := child
			g.Go(func() error { return run(gctx, child) })
		}
	}
	return g.Wait()
}
