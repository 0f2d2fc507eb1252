package bucket

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafast-dev/grafast/plan"
)

func TestListFieldFansOutAcrossAllParentRows(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	listID, _ := op.AddStep(plan.NewConstantStep(root, []any{"a", "b", "c"}))
	list, err := op.NewLayer(plan.LayerListItem, root, listID, nil, "items")
	require.NoError(t, err)
	nameID, _ := op.AddStep(plan.NewAccessStep(list, listID, "unused"))
	_ = nameID

	op.Output = &plan.OutputTemplate{Root: &plan.OutputNode{Shape: plan.ShapeObject, Children: []*plan.OutputNode{
		{Name: "items", Shape: plan.ShapeList, StepID: listID, Layer: root, ListElem: &plan.OutputNode{
			Shape: plan.ShapeScalar, StepID: listID, Layer: list,
		}},
	}}}
	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	runner := NewRunner(op, nil, nil)
	root2 := NewBucket(root, 1, nil, nil)
	require.NoError(t, runner.Exec.RunLayer(context.Background(), op, root2, runner.extraFor(root2)))
	require.NoError(t, runner.fanOutChildren(root2))

	children := root2.ChildrenOf(list.ID())
	require.Len(t, children, 1)
	require.Equal(t, 3, children[0].Size, "one child row per list item, batched into a single bucket")
}

func TestMutationFieldsRunInDocumentOrder(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()

	var mu sync.Mutex
	var order []int

	layers := make([]*plan.LayerPlan, 3)
	for i := 0; i < 3; i++ {
		l, err := op.NewMutationFieldLayer(root, i, "field")
		require.NoError(t, err)
		layers[i] = l
	}
	op.Output = &plan.OutputTemplate{Root: &plan.OutputNode{Shape: plan.ShapeObject, StepID: plan.InvalidStepID, TypenameStepID: plan.InvalidStepID}}
	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	parent := NewBucket(root, 1, nil, nil)
	for _, l := range layers {
		parent.AddChild(l.ID(), NewBucket(l, 1, parent, nil))
	}

	err := RunChildren(context.Background(), parent, func(ctx context.Context, b *Bucket) error {
		mu.Lock()
		order = append(order, b.Layer.MutationIndex())
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, order, "mutation-field siblings must run in ascending MutationIndex order")
}
