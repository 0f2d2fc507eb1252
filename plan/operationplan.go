package plan

import (
	"github.com/google/uuid"
)

// PlanState is the lifecycle phase of an OperationPlan (spec.md §3,
// "planning -> optimizing -> finalized -> executing -> complete/failed").
type PlanState int

const (
	StatePlanning PlanState = iota
	StateOptimizing
	StateFinalized
	StateExecuting
	StateComplete
	StateFailed
)

func (s PlanState) String() string {
	switch s {
	case StatePlanning:
		return "planning"
	case StateOptimizing:
		return "optimizing"
	case StateFinalized:
		return "finalized"
	case StateExecuting:
		return "executing"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// OperationPlan owns every step and LayerPlan created for one GraphQL
// operation, the output template describing its response shape, and the
// union-find structure backing the deduplication optimizer pass (spec.md
// §3, §9).
type OperationPlan struct {
	RequestID uuid.UUID

	steps []Step

	// parent/rank back a union-find over StepID: after deduplication,
	// Step(id) resolves id to its equivalence class's representative
	// (spec.md §9, "keep a parallel parent-array for union-find").
	parent []int
	rank   []int

	layers []*LayerPlan
	root   *LayerPlan

	Output *OutputTemplate

	// constants interns ConstantStep values so repeated literals in one
	// operation share a single step.
	constants map[any]StepID

	state PlanState
}

// NewOperationPlan creates an empty plan in StatePlanning with a root
// LayerPlan already attached.
func NewOperationPlan() *OperationPlan {
	op := &OperationPlan{
		RequestID: uuid.New(),
		constants: make(map[any]StepID),
		state:     StatePlanning,
	}
	op.root = &LayerPlan{id: 0, kind: LayerRoot, parentStep: InvalidStepID, reason: "operation root"}
	op.layers = append(op.layers, op.root)
	return op
}

// RootLayer returns the operation's top-level LayerPlan.
func (op *OperationPlan) RootLayer() *LayerPlan { return op.root }

// State returns the plan's current lifecycle phase.
func (op *OperationPlan) State() PlanState { return op.state }

func (op *OperationPlan) requireState(operation string, want PlanState) error {
	if op.state != want {
		return &StateError{Operation: operation, Want: want, Got: op.state}
	}
	return nil
}

// BeginOptimizing transitions planning -> optimizing. Only legal once every
// step the planner will add has been added.
func (op *OperationPlan) BeginOptimizing() error {
	if err := op.requireState("BeginOptimizing", StatePlanning); err != nil {
		return err
	}
	op.state = StateOptimizing
	return nil
}

// Finalize transitions optimizing -> finalized, computing each LayerPlan's
// input/output step sets and topologically sorting each layer's step order
// (spec.md §4.3, "finalization").
func (op *OperationPlan) Finalize() error {
	if err := op.requireState("Finalize", StateOptimizing); err != nil {
		return err
	}
	if err := op.topoSortLayers(); err != nil {
		return err
	}
	op.computeLayerBoundaries()
	op.state = StateFinalized
	return nil
}

// BeginExecuting transitions finalized -> executing.
func (op *OperationPlan) BeginExecuting() error {
	if err := op.requireState("BeginExecuting", StateFinalized); err != nil {
		return err
	}
	op.state = StateExecuting
	return nil
}

// Complete transitions executing -> complete.
func (op *OperationPlan) Complete() error {
	if err := op.requireState("Complete", StateExecuting); err != nil {
		return err
	}
	op.state = StateComplete
	return nil
}

// Fail transitions the plan to StateFailed from any non-terminal state.
func (op *OperationPlan) Fail() {
	if op.state != StateComplete {
		op.state = StateFailed
	}
}

// NewLayer creates a child LayerPlan of parent. kind, parentStep, and
// typeSet carry the fan-out semantics described by LayerKind; reason is a
// short diagnostic string (e.g. the field name that caused the fan-out).
// Only legal during StatePlanning.
func (op *OperationPlan) NewLayer(kind LayerKind, parent *LayerPlan, parentStep StepID, typeSet []string, reason string) (*LayerPlan, error) {
	if err := op.requireState("NewLayer", StatePlanning); err != nil {
		return nil, err
	}
	l := &LayerPlan{
		id:         LayerID(len(op.layers)),
		kind:       kind,
		parent:     parent,
		parentStep: parentStep,
		typeSet:    typeSet,
		reason:     reason,
	}
	op.layers = append(op.layers, l)
	if parent != nil {
		parent.children = append(parent.children, l)
	}
	return l, nil
}

// NewMutationFieldLayer additionally records this layer's serialization
// index among its mutation-field siblings (spec.md §4.5, mutation
// serialization).
func (op *OperationPlan) NewMutationFieldLayer(parent *LayerPlan, index int, reason string) (*LayerPlan, error) {
	l, err := op.NewLayer(LayerMutationField, parent, InvalidStepID, nil, reason)
	if err != nil {
		return nil, err
	}
	l.mutationIndex = index
	return l, nil
}

// NewDeferStreamLayer additionally records the @defer/@stream label and,
// for @stream, the initial synchronously-delivered item count.
func (op *OperationPlan) NewDeferStreamLayer(parent *LayerPlan, parentStep StepID, label string, streamInitialCount int, reason string) (*LayerPlan, error) {
	l, err := op.NewLayer(LayerDeferStream, parent, parentStep, nil, reason)
	if err != nil {
		return nil, err
	}
	l.deferLabel = label
	l.streamInitialCount = streamInitialCount
	return l, nil
}

// SetStreamMeta records a @stream directive's label and initial
// synchronously-delivered item count against a LayerListItem layer. Only
// legal during StatePlanning.
func (op *OperationPlan) SetStreamMeta(layer *LayerPlan, label string, initialCount int) error {
	if err := op.requireState("SetStreamMeta", StatePlanning); err != nil {
		return err
	}
	layer.deferLabel = label
	layer.streamInitialCount = initialCount
	return nil
}

// Layers returns every LayerPlan in creation order (root first).
func (op *OperationPlan) Layers() []*LayerPlan { return op.layers }

// Layer looks up a LayerPlan by id.
func (op *OperationPlan) Layer(id LayerID) *LayerPlan { return op.layers[id] }

// AddStep appends s to the plan's step arena and to its LayerPlan's step
// list, assigning it a fresh StepID. Only legal during StatePlanning.
func (op *OperationPlan) AddStep(s Step) (StepID, error) {
	if err := op.requireState("AddStep", StatePlanning); err != nil {
		return InvalidStepID, err
	}
	id := StepID(len(op.steps))
	s.setID(id)
	op.steps = append(op.steps, s)
	op.parent = append(op.parent, int(id))
	op.rank = append(op.rank, 0)
	s.Layer().steps = append(s.Layer().steps, id)
	return id, nil
}

// InternConstant returns the StepID of an existing ConstantStep in the
// operation's root layer holding value, creating one if none exists yet.
// key must be a comparable representation of value (e.g. the literal
// itself, for scalars).
func (op *OperationPlan) InternConstant(key any, newStep func() Step) (StepID, error) {
	if id, ok := op.constants[key]; ok {
		return id, nil
	}
	id, err := op.AddStep(newStep())
	if err != nil {
		return InvalidStepID, err
	}
	op.constants[key] = id
	return id, nil
}

// find returns the union-find representative of id, with path compression.
func (op *OperationPlan) find(id StepID) StepID {
	i := int(id)
	for op.parent[i] != i {
		op.parent[i] = op.parent[op.parent[i]]
		i = op.parent[i]
	}
	return StepID(i)
}

// Union merges loser's equivalence class into winner's: future calls to
// Step(loser) return Step(winner)'s step. Only legal during StateOptimizing
// (spec.md §4.3, deduplication).
func (op *OperationPlan) Union(winner, loser StepID) error {
	if err := op.requireState("Union", StateOptimizing); err != nil {
		return err
	}
	w, l := op.find(winner), op.find(loser)
	if w == l {
		return nil
	}
	if op.rank[w] < op.rank[l] {
		w, l = l, w
	}
	op.parent[int(l)] = int(w)
	if op.rank[w] == op.rank[l] {
		op.rank[w]++
	}
	return nil
}

// Replace installs replacement as the step resolved for id's equivalence
// class, for use by the inlining/fusion optimizer pass which needs to swap
// a step's implementation without changing its identity. Only legal during
// StateOptimizing.
func (op *OperationPlan) Replace(id StepID, replacement Step) error {
	if err := op.requireState("Replace", StateOptimizing); err != nil {
		return err
	}
	r := op.find(id)
	replacement.setID(r)
	op.steps[r] = replacement
	return nil
}

// IsRepresentative reports whether id is the representative of its own
// equivalence class (i.e. survived deduplication).
func (op *OperationPlan) IsRepresentative(id StepID) bool { return op.find(id) == id }

// Step resolves id through the union-find structure and returns the live
// step for its equivalence class.
func (op *OperationPlan) Step(id StepID) Step {
	return op.steps[op.find(id)]
}

// RawStep returns the step stored at id without resolving union-find,
// primarily for diagnostics.
func (op *OperationPlan) RawStep(id StepID) Step { return op.steps[id] }

// StepCount returns the number of steps ever added (including ones later
// merged away by dedup).
func (op *OperationPlan) StepCount() int { return len(op.steps) }

// LiveSteps returns the ids that are still their own equivalence class
// representative, in ascending id order.
func (op *OperationPlan) LiveSteps() []StepID {
	out := make([]StepID, 0, len(op.steps))
	for i := range op.steps {
		if op.find(StepID(i)) == StepID(i) {
			out = append(out, StepID(i))
		}
	}
	return out
}
