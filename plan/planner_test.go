package plan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type mapResolverTable map[string]PlanResolver

func (m mapResolverTable) Lookup(typeName, fieldName string) (PlanResolver, bool) {
	r, ok := m[typeName+"."+fieldName]
	return r, ok
}

func constResolver(v any) PlanResolver {
	return func(rc *ResolveContext) (Step, error) {
		return NewConstantStep(rc.Layer, v), nil
	}
}

func TestPlannerBuildsScalarField(t *testing.T) {
	table := mapResolverTable{
		"Query.greeting": constResolver("hello"),
	}
	doc := &OperationDocument{
		Type:         OperationQuery,
		RootTypeName: "Query",
		SelectionSet: []FieldSelection{
			{ResponseKey: "greeting", ParentTypeName: "Query", FieldName: "greeting"},
		},
	}
	op, err := NewPlanner(table).Plan(doc)
	require.NoError(t, err)
	require.NoError(t, NewOptimizer().Run(op))

	require.Len(t, op.Output.Root.Children, 1)
	node := op.Output.Root.Children[0]
	require.Equal(t, "greeting", node.Name)
	require.Equal(t, ShapeScalar, node.Shape)

	step := op.Step(node.StepID).(*ConstantStep)
	require.Equal(t, "hello", step.Value)
}

func TestPlannerMissingResolverReturnsPlannerError(t *testing.T) {
	doc := &OperationDocument{
		Type: OperationQuery,
		SelectionSet: []FieldSelection{
			{ResponseKey: "x", ParentTypeName: "Query", FieldName: "x"},
		},
	}
	_, err := NewPlanner(mapResolverTable{}).Plan(doc)
	require.Error(t, err)
	var perr *PlannerError
	require.ErrorAs(t, err, &perr)
}

func TestPlannerSerializesMutationFieldsIntoOrderedLayers(t *testing.T) {
	table := mapResolverTable{
		"Mutation.a": constResolver("a"),
		"Mutation.b": constResolver("b"),
		"Mutation.c": constResolver("c"),
	}
	doc := &OperationDocument{
		Type: OperationMutation,
		SelectionSet: []FieldSelection{
			{ResponseKey: "a", ParentTypeName: "Mutation", FieldName: "a"},
			{ResponseKey: "b", ParentTypeName: "Mutation", FieldName: "b"},
			{ResponseKey: "c", ParentTypeName: "Mutation", FieldName: "c"},
		},
	}
	op, err := NewPlanner(table).Plan(doc)
	require.NoError(t, err)

	var mutationLayers []*LayerPlan
	for _, l := range op.Layers() {
		if l.Kind() == LayerMutationField {
			mutationLayers = append(mutationLayers, l)
		}
	}
	require.Len(t, mutationLayers, 3)
	for i, l := range mutationLayers {
		require.Equal(t, i, l.MutationIndex())
	}
}

func TestPlannerListFieldGetsListItemLayer(t *testing.T) {
	table := mapResolverTable{
		"Query.items":      constResolver([]any{1, 2, 3}),
		"Item.name":        constResolver("n"),
	}
	doc := &OperationDocument{
		Type: OperationQuery,
		SelectionSet: []FieldSelection{
			{
				ResponseKey: "items", ParentTypeName: "Query", FieldName: "items",
				IsList: true, ReturnTypeName: "Item",
				SelectionSet: []FieldSelection{
					{ResponseKey: "name", ParentTypeName: "Item", FieldName: "name"},
				},
			},
		},
	}
	op, err := NewPlanner(table).Plan(doc)
	require.NoError(t, err)

	node := op.Output.Root.Children[0]
	require.Equal(t, ShapeList, node.Shape)
	require.NotNil(t, node.ListElem)
	require.Equal(t, LayerListItem, node.ListElem.Layer.Kind())
	require.True(t, node.ListElem.Layer.IsDescendantOf(op.RootLayer()))

	_ = context.Background()
}
