package plan

// BaseStep is embedded by every concrete step to supply the bookkeeping
// fields ID/Kind/Layer/Dependencies/Flags share, mirroring the teacher's
// StepV2 struct of common fields (federation/planner/planner_v2.go) adapted
// from a federation-routing record to a dataflow-node record.
type BaseStep struct {
	id    StepID
	kind  StepKind
	layer *LayerPlan
	deps  []StepID
	flags StepFlag
}

func NewBaseStep(kind StepKind, layer *LayerPlan, flags StepFlag, deps ...StepID) BaseStep {
	return BaseStep{kind: kind, layer: layer, flags: flags, deps: deps, id: InvalidStepID}
}

func (b *BaseStep) ID() StepID              { return b.id }
func (b *BaseStep) setID(id StepID)         { b.id = id }
func (b *BaseStep) Kind() StepKind          { return b.kind }
func (b *BaseStep) Layer() *LayerPlan       { return b.layer }
func (b *BaseStep) Dependencies() []StepID  { return b.deps }
func (b *BaseStep) Flags() StepFlag         { return b.flags }

// setLayer reassigns the layer a step belongs to. It's unexported so only
// the plan package (the optimizer's hoist pass, via the layerMover
// interface) can move a step between layers.
func (b *BaseStep) setLayer(l *LayerPlan) { b.layer = l }

// SetDependencies replaces a step's dependency list. Exported for step
// implementations living outside the plan package (e.g. pgsource) whose
// Optimize rewrites its own dependency edges, such as dropping a
// KeyProjectionStep dependency once its columns have been folded directly
// into the step's own query (spec.md §4.3, §4.8 key-projection fast path).
func (b *BaseStep) SetDependencies(deps []StepID) { b.deps = deps }
