package bucket

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafast-dev/grafast/plan"
)

func TestBroadcastRoutesThroughParentRowMap(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	viewerID, _ := op.AddStep(plan.NewConstantStep(root, "viewer-1"))

	parent := NewBucket(root, 2, nil, nil)
	parent.Vector(viewerID).Values[0] = "viewer-1"
	parent.Vector(viewerID).Values[1] = "viewer-1"

	list, _ := op.NewLayer(plan.LayerListItem, root, viewerID, nil, "items")
	child := NewBucket(list, 5, parent, []int{0, 0, 0, 1, 1})

	child.Broadcast(viewerID, parent)
	for i, wantParentRow := range []int{0, 0, 0, 1, 1} {
		require.Equal(t, parent.Vector(viewerID).Values[wantParentRow], child.Vector(viewerID).Values[i])
	}
}

func TestResolveVectorWalksPastImmediateParent(t *testing.T) {
	op := plan.NewOperationPlan()
	root := op.RootLayer()
	id, _ := op.AddStep(plan.NewConstantStep(root, "deep"))

	grandparent := NewBucket(root, 1, nil, nil)
	grandparent.Vector(id).Values[0] = "deep"

	mid, _ := op.NewLayer(plan.LayerPolymorphic, root, plan.InvalidStepID, []string{"Foo"}, "mid")
	parent := NewBucket(mid, 1, grandparent, nil)

	inner, _ := op.NewLayer(plan.LayerPolymorphic, mid, plan.InvalidStepID, []string{"Bar"}, "inner")
	child := NewBucket(inner, 1, parent, nil)

	got := child.ResolveVector(id)
	require.Equal(t, "deep", got.Values[0])
}
