package plan

import "fmt"

// topoSortLayers orders each LayerPlan's step list so that every step comes
// after its same-layer dependencies, detecting cycles with Kahn's algorithm
// (grounded on the teacher's executor_v2.go validateDAG, which runs the same
// check over the whole step graph before execution begins).
func (op *OperationPlan) topoSortLayers() error {
	for _, layer := range op.layers {
		sorted, err := kahnSort(layer.steps, op)
		if err != nil {
			return fmt.Errorf("layer %d (%s): %w", layer.id, layer.kind, err)
		}
		layer.steps = sorted
	}
	return nil
}

func kahnSort(ids []StepID, op *OperationPlan) ([]StepID, error) {
	inLayer := make(map[StepID]bool, len(ids))
	for _, id := range ids {
		inLayer[op.find(id)] = true
	}

	indegree := make(map[StepID]int, len(ids))
	dependents := make(map[StepID][]StepID, len(ids))
	for _, id := range ids {
		r := op.find(id)
		if _, seen := indegree[r]; seen {
			continue
		}
		indegree[r] = 0
	}
	for _, id := range ids {
		r := op.find(id)
		for _, depRaw := range op.Step(r).Dependencies() {
			dep := op.find(depRaw)
			if !inLayer[dep] || dep == r {
				continue
			}
			dependents[dep] = append(dependents[dep], r)
			indegree[r]++
		}
	}

	var queue []StepID
	seen := make(map[StepID]bool, len(ids))
	for _, id := range ids {
		r := op.find(id)
		if seen[r] {
			continue
		}
		seen[r] = true
		if indegree[r] == 0 {
			queue = append(queue, r)
		}
	}

	var out []StepID
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, dep := range dependents[n] {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if len(out) != len(seen) {
		return nil, fmt.Errorf("cycle detected among steps %v", ids)
	}
	return out, nil
}

// computeLayerBoundaries fills in each LayerPlan's inputSteps (dependencies
// read from an ancestor layer) and outputSteps (steps read by the output
// template or by a descendant layer), per spec.md §4.4.
func (op *OperationPlan) computeLayerBoundaries() {
	for _, layer := range op.layers {
		inputSet := map[StepID]bool{}
		for _, id := range layer.steps {
			step := op.Step(id)
			for _, depRaw := range step.Dependencies() {
				dep := op.find(depRaw)
				depLayer := op.Step(dep).Layer()
				if depLayer != layer {
					inputSet[dep] = true
				}
			}
		}
		layer.inputSteps = setToSortedSlice(inputSet)
	}

	outputSet := make(map[*LayerPlan]map[StepID]bool, len(op.layers))
	for _, layer := range op.layers {
		outputSet[layer] = map[StepID]bool{}
	}
	markOutput := func(id StepID) {
		r := op.find(id)
		outputSet[op.Step(r).Layer()][r] = true
	}
	if op.Output != nil && op.Output.Root != nil {
		walkOutputTemplate(op.Output.Root, markOutput)
	}
	for _, layer := range op.layers {
		for _, id := range layer.inputSteps {
			markOutput(id)
		}
	}
	for _, layer := range op.layers {
		layer.outputSteps = setToSortedSlice(outputSet[layer])
	}
}

func walkOutputTemplate(n *OutputNode, mark func(StepID)) {
	walkOutputTemplateNodes(n, func(node *OutputNode) {
		if node.StepID != InvalidStepID {
			mark(node.StepID)
		}
		if node.TypenameStepID != InvalidStepID {
			mark(node.TypenameStepID)
		}
	})
}

// walkOutputTemplateNodes visits every node of an output template tree,
// including its own layer-scoped references, so callers can correlate a
// step reference with the layer it's consumed from (e.g. for hoisting).
func walkOutputTemplateNodes(n *OutputNode, visit func(*OutputNode)) {
	if n == nil {
		return
	}
	visit(n)
	for _, c := range n.Children {
		walkOutputTemplateNodes(c, visit)
	}
	walkOutputTemplateNodes(n.ListElem, visit)
	for _, branch := range n.TypeBranches {
		walkOutputTemplateNodes(branch, visit)
	}
}

func setToSortedSlice(set map[StepID]bool) []StepID {
	out := make([]StepID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	// simple insertion sort: layer step-sets are small (tens of entries)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
