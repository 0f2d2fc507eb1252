package bucket

import "github.com/grafast-dev/grafast/plan"

// Bucket holds one LayerPlan instance's batched per-row runtime state: a
// parallel value vector for every step owned by the layer, a back-reference
// to the parent bucket it fanned out from, and the row-index mapping needed
// to broadcast an ancestor layer's values down into this one (spec.md §3,
// §4.5).
type Bucket struct {
	Layer *plan.LayerPlan
	Size  int

	vectors map[plan.StepID]*plan.ValueVector

	Parent *Bucket
	// ParentRowMap[i] is the row index in Parent that row i of this bucket
	// descends from. nil for the operation's root bucket, and for any
	// bucket whose rows map 1:1 onto its parent's (e.g. a mutation-field
	// layer).
	ParentRowMap []int

	// children holds, for each direct child LayerPlan (keyed by its
	// LayerID), the bucket(s) fanned out from this bucket for that layer.
	// A list-item layer has exactly one child bucket per parent bucket
	// (holding every item across every live parent row); a polymorphic
	// layer has one child bucket per concrete type branch; a
	// mutation-field or defer-stream layer has exactly one.
	children map[plan.LayerID][]*Bucket
}

// NewBucket allocates an empty bucket of size rows for layer, optionally
// chained to parent via parentRowMap.
func NewBucket(layer *plan.LayerPlan, size int, parent *Bucket, parentRowMap []int) *Bucket {
	return &Bucket{
		Layer:        layer,
		Size:         size,
		vectors:      make(map[plan.StepID]*plan.ValueVector, len(layer.Steps())),
		Parent:       parent,
		ParentRowMap: parentRowMap,
		children:     make(map[plan.LayerID][]*Bucket),
	}
}

// Vector returns this bucket's vector for step id, allocating an empty one
// (all rows alive, nil values) on first access.
func (b *Bucket) Vector(id plan.StepID) *plan.ValueVector {
	v, ok := b.vectors[id]
	if !ok {
		v = plan.NewValueVector(b.Size)
		b.vectors[id] = v
	}
	return v
}

// HasVector reports whether this bucket (not an ancestor) already holds a
// vector for id.
func (b *Bucket) HasVector(id plan.StepID) bool {
	_, ok := b.vectors[id]
	return ok
}

// Broadcast copies ancestor's vector for id down into this bucket, routed
// through ParentRowMap, so steps planned above this layer can be read here
// without recomputing them (spec.md §3, layer input steps).
func (b *Bucket) Broadcast(id plan.StepID, ancestor *Bucket) {
	src := ancestor.Vector(id)
	dst := plan.NewValueVector(b.Size)
	for i := 0; i < b.Size; i++ {
		parentRow := i
		if b.ParentRowMap != nil {
			parentRow = b.ParentRowMap[i]
		}
		dst.Values[i] = src.Values[parentRow]
		dst.Errs[i] = src.Errs[parentRow]
		dst.Alive[i] = src.Alive[parentRow]
	}
	b.vectors[id] = dst
}

// ResolveVector returns b's vector for id, walking up the parent chain and
// broadcasting it down (caching the result in b) if no ancestor closer than
// b already holds it. Used both by the executor (a step may depend on
// something hoisted above its immediate parent layer) and by fan-out, which
// needs to read the step driving a child layer before that layer exists.
func (b *Bucket) ResolveVector(id plan.StepID) *plan.ValueVector {
	for cur := b; cur != nil; cur = cur.Parent {
		if cur.HasVector(id) {
			if cur != b {
				b.Broadcast(id, cur)
			}
			return b.Vector(id)
		}
	}
	return b.Vector(id)
}

// AddChild records child as the bucket fanned out from this one for
// layerID.
func (b *Bucket) AddChild(layerID plan.LayerID, child *Bucket) {
	b.children[layerID] = append(b.children[layerID], child)
}

// ChildrenOf returns the buckets fanned out from this one for layerID.
func (b *Bucket) ChildrenOf(layerID plan.LayerID) []*Bucket {
	return b.children[layerID]
}

// LiveRows returns the row indices still alive in this bucket.
func (b *Bucket) LiveRows() []int {
	out := make([]int, 0, b.Size)
	for i := 0; i < b.Size; i++ {
		if b.isRowAlive(i) {
			out = append(out, i)
		}
	}
	return out
}

// isRowAlive reports a row dead if any step vector in this bucket marked it
// dead; a fresh bucket with no vectors yet has every row alive.
func (b *Bucket) isRowAlive(row int) bool {
	for _, v := range b.vectors {
		if !v.Alive[row] {
			return false
		}
	}
	return true
}
