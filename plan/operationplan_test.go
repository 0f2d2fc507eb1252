package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperationPlanLifecycle(t *testing.T) {
	op := NewOperationPlan()
	require.Equal(t, StatePlanning, op.State())

	root := op.RootLayer()
	id, err := op.AddStep(NewConstantStep(root, 42))
	require.NoError(t, err)
	require.Equal(t, 42, op.Step(id).(*ConstantStep).Value)

	require.NoError(t, op.BeginOptimizing())
	_, err = op.AddStep(NewConstantStep(root, 7))
	require.Error(t, err, "AddStep must be rejected once optimizing has begun")

	require.NoError(t, op.Finalize())
	require.Equal(t, StateFinalized, op.State())

	require.NoError(t, op.BeginExecuting())
	require.NoError(t, op.Complete())
	require.Equal(t, StateComplete, op.State())
}

func TestUnionFindDeduplication(t *testing.T) {
	op := NewOperationPlan()
	root := op.RootLayer()
	a, _ := op.AddStep(NewConstantStep(root, "x"))
	b, _ := op.AddStep(NewConstantStep(root, "x"))

	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Union(a, b))

	require.True(t, op.IsRepresentative(a))
	require.False(t, op.IsRepresentative(b))
	require.Same(t, op.Step(a), op.Step(b))
}

func TestLayerAncestryInvariant(t *testing.T) {
	op := NewOperationPlan()
	root := op.RootLayer()
	list, err := op.NewLayer(LayerListItem, root, InvalidStepID, nil, "items")
	require.NoError(t, err)
	poly, err := op.NewLayer(LayerPolymorphic, list, InvalidStepID, []string{"Cat"}, "as Cat")
	require.NoError(t, err)

	require.True(t, poly.IsDescendantOf(list))
	require.True(t, poly.IsDescendantOf(root))
	require.False(t, root.IsDescendantOf(list))
	require.Equal(t, root, CommonAncestor(poly, root))
	require.Equal(t, list, CommonAncestor(poly, list))
}

func TestFinalizeComputesLayerBoundaries(t *testing.T) {
	op := NewOperationPlan()
	root := op.RootLayer()
	cID, _ := op.AddStep(NewConstantStep(root, "shared"))
	list, _ := op.NewLayer(LayerListItem, root, InvalidStepID, nil, "items")
	aID, _ := op.AddStep(NewAccessStep(list, cID, "name"))

	op.Output = &OutputTemplate{Root: &OutputNode{
		Shape: ShapeObject,
		Children: []*OutputNode{
			{Name: "items", Shape: ShapeList, StepID: InvalidStepID, Layer: root, ListElem: &OutputNode{
				Shape: ShapeObject, Layer: list,
				Children: []*OutputNode{{Name: "name", Shape: ShapeScalar, StepID: aID, Layer: list}},
			}},
		},
	}}

	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	require.Contains(t, list.InputSteps(), cID)
	require.Contains(t, root.OutputSteps(), cID)
}
