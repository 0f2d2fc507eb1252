package plan

import "fmt"

// Optimizer runs the passes that transform a freshly planned step graph
// into one safe and efficient to execute: deduplication, hoisting, step
// self-optimization (inlining/fusion), and tree-shaking, followed by
// finalization (spec.md §4.3).
type Optimizer struct{}

// NewOptimizer creates an Optimizer. It is stateless; one instance may run
// any number of plans.
func NewOptimizer() *Optimizer { return &Optimizer{} }

// Run drives op from StatePlanning through StateOptimizing to
// StateFinalized, applying every optimizer pass in order.
func (o *Optimizer) Run(op *OperationPlan) error {
	if err := op.BeginOptimizing(); err != nil {
		return err
	}
	if err := o.deduplicate(op); err != nil {
		return err
	}
	if err := o.hoist(op); err != nil {
		return err
	}
	if err := o.inline(op); err != nil {
		return err
	}
	if err := o.runStepOptimize(op); err != nil {
		return err
	}
	o.treeShake(op)
	return op.Finalize()
}

// deduplicate repeatedly groups live, same-layer Deduplicatable steps by
// (kind, fingerprint, canonicalized dependency ids) and unions every
// duplicate into the group's first member, until a fixed point (merging one
// group can make a previously-distinct pair of dependents identical too).
// Grounded on the teacher's stepKey-based grouping in
// federation/planner/planner_v2.go (findAndBuildEntitySteps), which
// deduplicates entity steps by a composite key instead of a fingerprint.
func (o *Optimizer) deduplicate(op *OperationPlan) error {
	for {
		groups := make(map[string][]StepID)
		for _, id := range op.LiveSteps() {
			step := op.Step(id)
			dd, ok := step.(Deduplicatable)
			if !ok || !step.Flags().Has(FlagDeduplicatable) {
				continue
			}
			key := fmt.Sprintf("%d|%s|%s", step.Layer().id, step.Kind(), dd.Fingerprint())
			for _, dep := range step.Dependencies() {
				key += fmt.Sprintf("|%d", op.find(dep))
			}
			groups[key] = append(groups[key], id)
		}

		changed := false
		for _, ids := range groups {
			if len(ids) < 2 {
				continue
			}
			winner := ids[0]
			for _, loser := range ids[1:] {
				if op.find(loser) == op.find(winner) {
					continue
				}
				if err := op.Union(winner, loser); err != nil {
					return err
				}
				changed = true
			}
		}
		if !changed {
			return nil
		}
	}
}

// hoist repeatedly moves steps up to the deepest layer that is an ancestor
// of every layer consuming the step, provided that layer is also a
// descendant of every one of the step's own dependencies' layers. A step is
// never lifted above the common ancestor of its consumers, even when its
// dependencies would allow a shallower layer. Side-effecting steps are
// skipped, since their position also fixes their execution order (spec.md
// §4.3).
func (o *Optimizer) hoist(op *OperationPlan) error {
	for {
		consumerLayers := o.buildConsumerLayers(op)
		changed := false
		for _, id := range op.LiveSteps() {
			step := op.Step(id)
			if step.Flags().Has(FlagSideEffecting) {
				continue
			}
			consumers := consumerLayers[id]
			if len(consumers) == 0 {
				continue
			}

			target := consumers[0]
			for _, c := range consumers[1:] {
				target = CommonAncestor(target, c)
			}
			if !step.Layer().IsDescendantOf(target) {
				target = CommonAncestor(step.Layer(), target)
			}
			if target == step.Layer() {
				continue
			}

			legal := true
			for _, depRaw := range step.Dependencies() {
				dep := op.find(depRaw)
				if !target.IsDescendantOf(op.Step(dep).Layer()) {
					legal = false
					break
				}
			}
			if !legal || target.Depth() >= step.Layer().Depth() {
				continue
			}

			o.moveStep(step, target)
			changed = true
		}
		if !changed {
			return nil
		}
	}
}

func (o *Optimizer) buildDependents(op *OperationPlan) map[StepID][]StepID {
	out := make(map[StepID][]StepID)
	for _, id := range op.LiveSteps() {
		step := op.Step(id)
		for _, dep := range step.Dependencies() {
			r := op.find(dep)
			out[r] = append(out[r], id)
		}
	}
	return out
}

// buildConsumerLayers maps each live step to the layers it is consumed
// from: every dependent step's own layer, plus any output-template node
// that reads the step directly (a step can be the terminal value of a
// response field with no further step depending on it).
func (o *Optimizer) buildConsumerLayers(op *OperationPlan) map[StepID][]*LayerPlan {
	out := make(map[StepID][]*LayerPlan)
	add := func(id StepID, layer *LayerPlan) {
		if layer == nil {
			return
		}
		r := op.find(id)
		out[r] = append(out[r], layer)
	}
	for _, id := range op.LiveSteps() {
		step := op.Step(id)
		for _, dep := range step.Dependencies() {
			add(dep, step.Layer())
		}
	}
	if op.Output != nil {
		walkOutputTemplateNodes(op.Output.Root, func(n *OutputNode) {
			if n.StepID != InvalidStepID {
				add(n.StepID, n.Layer)
			}
			if n.TypenameStepID != InvalidStepID {
				add(n.TypenameStepID, n.Layer)
			}
		})
	}
	return out
}

type layerMover interface {
	setLayer(*LayerPlan)
}

func (o *Optimizer) moveStep(step Step, target *LayerPlan) {
	old := step.Layer()
	id := step.ID()
	for i, sid := range old.steps {
		if sid == id {
			old.steps = append(old.steps[:i], old.steps[i+1:]...)
			break
		}
	}
	target.steps = append(target.steps, id)
	if mover, ok := step.(layerMover); ok {
		mover.setLayer(target)
	}
}

// inline folds single-consumer Inlineable steps into their consumer when
// the consumer accepts the fold (spec.md §4.3, §4.8 key-projection fast
// path). Currently wired for KeyProjectionStep folding into any
// PgSelectStepColumnAcceptor; other inlineable kinds rely solely on their
// own Optimizable.Optimize to fold themselves in, since the shape of a fold
// is inherently specific to the consumer's kind.
func (o *Optimizer) inline(op *OperationPlan) error {
	dependents := o.buildDependents(op)
	for _, id := range op.LiveSteps() {
		step := op.Step(id)
		inl, ok := step.(Inlineable)
		if !ok || !step.Flags().Has(FlagInlineable) {
			continue
		}
		consumers := dependents[id]
		if len(consumers) != 1 {
			continue
		}
		consumer := op.Step(consumers[0])
		if !inl.CanInlineInto(consumer) {
			continue
		}
		kp, ok := step.(*KeyProjectionStep)
		if !ok {
			continue
		}
		acceptor, ok := consumer.(PgSelectStepColumnAcceptor)
		if !ok {
			continue
		}
		acceptor.AcceptProjectedColumns(kp.Keys)
	}
	return nil
}

// runStepOptimize calls Optimize on every Optimizable step, in dependency
// order so a step can inspect its (already-optimized) dependencies.
func (o *Optimizer) runStepOptimize(op *OperationPlan) error {
	order, err := o.globalTopoOrder(op)
	if err != nil {
		return err
	}
	for _, id := range order {
		if !op.IsRepresentative(id) {
			continue
		}
		step := op.Step(id)
		opt, ok := step.(Optimizable)
		if !ok {
			continue
		}
		replacement, err := opt.Optimize(&OptimizeContext{Plan: op})
		if err != nil {
			return fmt.Errorf("optimizing step %d (%s): %w", id, step.Kind(), err)
		}
		if replacement != step {
			if err := op.Replace(id, replacement); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Optimizer) globalTopoOrder(op *OperationPlan) ([]StepID, error) {
	live := op.LiveSteps()
	return kahnSort(live, op)
}

// treeShake drops every live step not transitively reachable from the
// output template or from a side-effecting step, grounded on the teacher's
// response pruning (federation/executor/executor_v2.go pruneObject), which
// strips response fields not present in the original query; tree-shaking
// performs the analogous prune one level earlier, over the step graph
// instead of the response (spec.md §4.3).
func (o *Optimizer) treeShake(op *OperationPlan) {
	required := make(map[StepID]bool)
	var mark func(id StepID)
	mark = func(id StepID) {
		r := op.find(id)
		if required[r] {
			return
		}
		required[r] = true
		for _, dep := range op.Step(r).Dependencies() {
			mark(dep)
		}
	}

	if op.Output != nil {
		walkOutputTemplate(op.Output.Root, mark)
	}
	for _, layer := range op.layers {
		for _, id := range layer.steps {
			if op.Step(id).Flags().Has(FlagSideEffecting) {
				mark(id)
			}
		}
	}

	for _, layer := range op.layers {
		kept := layer.steps[:0]
		seen := make(map[StepID]bool, len(layer.steps))
		for _, id := range layer.steps {
			r := op.find(id)
			if required[r] && !seen[r] {
				kept = append(kept, id)
				seen[r] = true
			}
		}
		layer.steps = kept
	}
}
