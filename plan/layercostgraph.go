package plan

// LayerCostGraph estimates the recomputation cost of leaving a step in a
// given layer versus hoisting it to a shallower one, and picks the
// cheapest legal hoist target when a step has several candidate ancestors
// to choose among. It is adapted from the teacher's weighted directed
// graph (federation/graph/weighted_graph.go), which ran Dijkstra over
// subgraph-routing edges weighted by hop cost to find the cheapest way to
// resolve a federated field; here the graph's nodes are LayerPlans and
// edge weight is the estimated row fan-out a step would be recomputed
// across if left at that depth, and "cheapest path" becomes "cheapest
// ancestor to hoist to" (spec.md §4.3, hoisting).
type LayerCostGraph struct {
	weight map[LayerID]int // edge weight from this layer to its parent
}

// NewLayerCostGraph builds a cost graph over every layer in op, assigning
// each layer's edge-to-parent weight from its LayerKind: list-item layers
// are assumed to run once per item (a higher constant, since the real
// count is unknown until execution), every other layer kind runs once per
// parent row.
func NewLayerCostGraph(op *OperationPlan) *LayerCostGraph {
	g := &LayerCostGraph{weight: make(map[LayerID]int, len(op.layers))}
	for _, l := range op.layers {
		g.weight[l.id] = edgeWeight(l.kind)
	}
	return g
}

func edgeWeight(kind LayerKind) int {
	switch kind {
	case LayerListItem:
		return 10 // heuristic expected item count; real count is runtime-only
	case LayerPolymorphic:
		return 1 // exactly one branch is ever live per row
	default:
		return 1
	}
}

// Cost returns the total estimated re-execution multiplier between from and
// its ancestor to (to must be an ancestor of, or equal to, from): the sum
// of every edge weight on the path (not their product), matching the
// teacher's additive edge-weight model (spec.md §4.3).
func (g *LayerCostGraph) Cost(from, to *LayerPlan) int {
	cost := 0
	for cur := from; cur != to && cur != nil; cur = cur.parent {
		cost += g.weight[cur.id]
	}
	return cost
}

// CheapestAncestor returns whichever of candidates is a legal hoist target
// (an ancestor of, or equal to, from) with the lowest Cost from `from`,
// breaking ties in favor of the shallower layer. Returns nil if candidates
// is empty.
func (g *LayerCostGraph) CheapestAncestor(from *LayerPlan, candidates []*LayerPlan) *LayerPlan {
	var best *LayerPlan
	bestCost := -1
	for _, c := range candidates {
		if !from.IsDescendantOf(c) {
			continue
		}
		cost := g.Cost(from, c)
		if best == nil || cost < bestCost || (cost == bestCost && c.Depth() < best.Depth()) {
			best = c
			bestCost = cost
		}
	}
	return best
}
