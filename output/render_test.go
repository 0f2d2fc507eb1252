package output_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/grafast-dev/grafast/bucket"
	"github.com/grafast-dev/grafast/output"
	"github.com/grafast-dev/grafast/plan"
)

func TestRenderScalarField(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	id, _ := op.AddStep(plan.NewConstantStep(root, "hello"))
	op.Output = &plan.OutputTemplate{Root: &plan.OutputNode{Shape: plan.ShapeObject, Children: []*plan.OutputNode{
		{Name: "greeting", Shape: plan.ShapeScalar, StepID: id, Layer: root},
	}}}
	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	runner := bucket.NewRunner(op, nil, nil)
	root2, err := runner.Run(context.Background())
	require.NoError(t, err)

	result := output.NewRenderer().Render(op.Output, root2)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]any{"greeting": "hello"}, result.Data)
}

func TestRenderListBatchesAcrossItems(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	listID, _ := op.AddStep(plan.NewConstantStep(root, []any{"a", "b", "c"}))
	list, err := op.NewLayer(plan.LayerListItem, root, listID, nil, "items")
	require.NoError(t, err)

	op.Output = &plan.OutputTemplate{Root: &plan.OutputNode{Shape: plan.ShapeObject, Children: []*plan.OutputNode{
		{Name: "items", Shape: plan.ShapeList, StepID: listID, Layer: root, ListElem: &plan.OutputNode{
			Shape: plan.ShapeScalar, StepID: listID, Layer: list,
		}},
	}}}
	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	runner := bucket.NewRunner(op, nil, nil)
	root2, err := runner.Run(context.Background())
	require.NoError(t, err)

	result := output.NewRenderer().Render(op.Output, root2)
	require.Empty(t, result.Errors)
	require.Equal(t, map[string]any{"items": []any{"a", "b", "c"}}, result.Data)
}

func TestRenderNullPropagatesToNonNullableAncestor(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	failing := plan.NewLambdaStep(root, nil, func(values []any) (any, error) {
		return nil, assertErr{}
	})
	id, _ := op.AddStep(failing)

	op.Output = &plan.OutputTemplate{Root: &plan.OutputNode{Shape: plan.ShapeObject, Children: []*plan.OutputNode{
		{Name: "wrapper", Shape: plan.ShapeObject, Layer: root, Nullable: false, Children: []*plan.OutputNode{
			{Name: "value", Shape: plan.ShapeScalar, StepID: id, Layer: root, Nullable: false},
		}},
	}}}
	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	runner := bucket.NewRunner(op, nil, nil)
	root2, err := runner.Run(context.Background())
	require.NoError(t, err)

	result := output.NewRenderer().Render(op.Output, root2)
	require.NotEmpty(t, result.Errors)
	require.Nil(t, result.Data["wrapper"], "a non-nullable leaf error must null out its non-nullable containing object")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestRenderNestedObjectListMatchesExactShape(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	listID, _ := op.AddStep(plan.NewConstantStep(root, []any{
		map[string]any{"id": "1", "name": "Ada"},
		map[string]any{"id": "2", "name": "Grace"},
	}))
	list, err := op.NewLayer(plan.LayerListItem, root, listID, nil, "users")
	require.NoError(t, err)

	idStep, _ := op.AddStep(plan.NewAccessStep(list, listID, "id"))
	nameStep, _ := op.AddStep(plan.NewAccessStep(list, listID, "name"))

	op.Output = &plan.OutputTemplate{Root: &plan.OutputNode{Shape: plan.ShapeObject, Children: []*plan.OutputNode{
		{Name: "users", Shape: plan.ShapeList, StepID: listID, Layer: root, ListElem: &plan.OutputNode{
			Shape: plan.ShapeObject, Layer: list, Children: []*plan.OutputNode{
				{Name: "id", Shape: plan.ShapeScalar, StepID: idStep, Layer: list},
				{Name: "name", Shape: plan.ShapeScalar, StepID: nameStep, Layer: list},
			},
		}},
	}}}
	require.NoError(t, op.BeginOptimizing())
	require.NoError(t, op.Finalize())

	runner := bucket.NewRunner(op, nil, nil)
	root2, err := runner.Run(context.Background())
	require.NoError(t, err)

	result := output.NewRenderer().Render(op.Output, root2)
	require.Empty(t, result.Errors)

	want := map[string]any{
		"users": []any{
			map[string]any{"id": "1", "name": "Ada"},
			map[string]any{"id": "2", "name": "Grace"},
		},
	}
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("rendered output mismatch (-want +got):\n%s", diff)
	}
}
