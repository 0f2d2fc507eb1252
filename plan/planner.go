package plan

import "fmt"

// Planner walks a normalized GraphQL operation document and a plan
// resolver table to build an OperationPlan's step graph and LayerPlan tree
// (spec.md §4.2). It is grounded on the teacher's PlannerV2.Plan
// (federation/planner/planner_v2.go): both recursively walk a selection
// set, build one step per field, and fan children out into their own
// scope when a field's value isn't a 1:1 row mapping of its parent's rows
// — the teacher fans out across subgraph boundaries and entity lookups,
// this planner fans out across list items, polymorphic branches, mutation
// fields, and defer/stream boundaries instead.
type Planner struct {
	resolvers ResolverLookup
}

// NewPlanner creates a Planner that looks up field resolvers in resolvers.
func NewPlanner(resolvers ResolverLookup) *Planner {
	return &Planner{resolvers: resolvers}
}

// Plan builds a complete step graph and output template for doc, leaving
// the returned OperationPlan in StatePlanning so the caller can run
// optimizer passes before finalizing.
func (p *Planner) Plan(doc *OperationDocument) (*OperationPlan, error) {
	op := NewOperationPlan()
	root := op.RootLayer()

	var rootNodes []*OutputNode
	if doc.Type == OperationMutation {
		for i, field := range doc.SelectionSet {
			mutLayer, err := op.NewMutationFieldLayer(root, i, field.ResponseKey)
			if err != nil {
				return nil, err
			}
			_, node, err := p.planField(op, mutLayer, nil, field)
			if err != nil {
				return nil, err
			}
			rootNodes = append(rootNodes, node)
		}
	} else {
		nodes, err := p.planSelectionSet(op, root, nil, doc.SelectionSet)
		if err != nil {
			return nil, err
		}
		rootNodes = nodes
	}

	op.Output = &OutputTemplate{Root: &OutputNode{
		Shape:    ShapeObject,
		Children: rootNodes,
		Layer:    root,
		StepID:   InvalidStepID,
	}}
	return op, nil
}

func (p *Planner) planSelectionSet(op *OperationPlan, layer *LayerPlan, parent Step, fields []FieldSelection) ([]*OutputNode, error) {
	nodes := make([]*OutputNode, 0, len(fields))
	for _, field := range fields {
		_, node, err := p.planField(op, layer, parent, field)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// planField plans one field, honoring @defer before building its step so a
// deferred field's entire subtree (including its own step) lives in the
// defer-stream layer.
func (p *Planner) planField(op *OperationPlan, layer *LayerPlan, parent Step, field FieldSelection) (StepID, *OutputNode, error) {
	if dargs, deferred := field.Directives["defer"]; deferred {
		label, _ := dargs["label"].(string)
		ifArg, hasIf := dargs["if"].(bool)
		if !hasIf || ifArg {
			deferLayer, err := op.NewDeferStreamLayer(layer, InvalidStepID, label, 0, field.ResponseKey+" @defer")
			if err != nil {
				return InvalidStepID, nil, err
			}
			return p.planFieldIn(op, deferLayer, parent, field)
		}
	}
	return p.planFieldIn(op, layer, parent, field)
}

func (p *Planner) planFieldIn(op *OperationPlan, layer *LayerPlan, parent Step, field FieldSelection) (StepID, *OutputNode, error) {
	resolver, ok := p.resolvers.Lookup(field.ParentTypeName, field.FieldName)
	if !ok {
		return InvalidStepID, nil, &PlannerError{
			Path:    []string{field.ResponseKey},
			Message: fmt.Sprintf("no plan resolver registered for %s.%s", field.ParentTypeName, field.FieldName),
		}
	}

	args := NewFieldArgs(field.Args)
	rc := &ResolveContext{Plan: op, Layer: layer, Parent: parent, Field: field, Args: args}
	step, err := resolver(rc)
	if err != nil {
		return InvalidStepID, nil, &PlannerError{Path: []string{field.ResponseKey}, Message: "resolver failed", Cause: err}
	}
	id, err := op.AddStep(step)
	if err != nil {
		return InvalidStepID, nil, err
	}
	if err := args.ApplyAll(step); err != nil {
		return InvalidStepID, nil, err
	}

	node := &OutputNode{
		Name:     field.ResponseKey,
		StepID:   id,
		Nullable: field.IsNullable,
		Layer:    layer,
	}

	switch {
	case len(field.PossibleTypes) > 0:
		if err := p.planPolymorphic(op, layer, step, field, id, node); err != nil {
			return InvalidStepID, nil, err
		}
	case field.IsList:
		if err := p.planList(op, layer, step, field, id, node); err != nil {
			return InvalidStepID, nil, err
		}
	case len(field.SelectionSet) > 0:
		node.Shape = ShapeObject
		children, err := p.planSelectionSet(op, layer, step, field.SelectionSet)
		if err != nil {
			return InvalidStepID, nil, err
		}
		node.Children = children
	default:
		node.Shape = ShapeScalar
	}

	return id, node, nil
}

func (p *Planner) planList(op *OperationPlan, layer *LayerPlan, step Step, field FieldSelection, id StepID, node *OutputNode) error {
	node.Shape = ShapeList
	itemLayer, err := op.NewLayer(LayerListItem, layer, id, nil, field.ResponseKey+" items")
	if err != nil {
		return err
	}
	if sargs, streamed := field.Directives["stream"]; streamed {
		label, _ := sargs["label"].(string)
		initialCount, _ := sargs["initialCount"].(int)
		if err := op.SetStreamMeta(itemLayer, label, initialCount); err != nil {
			return err
		}
	}
	if len(field.SelectionSet) == 0 {
		// A scalar list has no per-item step of its own: the item layer's
		// driving step id is reused, within that layer's bucket, to mean
		// "this row's item value" (see bucket.Runner.fanOutListItem).
		node.ListElem = &OutputNode{Shape: ShapeScalar, Layer: itemLayer, StepID: id}
		return nil
	}
	children, err := p.planSelectionSet(op, itemLayer, step, field.SelectionSet)
	if err != nil {
		return err
	}
	node.ListElem = &OutputNode{Shape: ShapeObject, Children: children, Layer: itemLayer, StepID: InvalidStepID}
	return nil
}

func (p *Planner) planPolymorphic(op *OperationPlan, layer *LayerPlan, step Step, field FieldSelection, id StepID, node *OutputNode) error {
	node.Shape = ShapePolymorphic
	node.TypeBranches = make(map[string]*OutputNode, len(field.PossibleTypes))

	typenameResolver, ok := p.resolvers.Lookup(field.ReturnTypeName, "__typename")
	if !ok {
		return &PlannerError{Path: []string{field.ResponseKey}, Message: "no __typename resolver registered for " + field.ReturnTypeName}
	}
	tnStep, err := typenameResolver(&ResolveContext{Plan: op, Layer: layer, Parent: step, Field: field, Args: NewFieldArgs(nil)})
	if err != nil {
		return &PlannerError{Path: []string{field.ResponseKey}, Message: "__typename resolver failed", Cause: err}
	}
	tnID, err := op.AddStep(tnStep)
	if err != nil {
		return err
	}
	node.TypenameStepID = tnID

	for _, typeName := range field.PossibleTypes {
		branchLayer, err := op.NewLayer(LayerPolymorphic, layer, id, []string{typeName}, field.ResponseKey+" as "+typeName)
		if err != nil {
			return err
		}
		var branchFields []FieldSelection
		for _, f := range field.SelectionSet {
			if f.ParentTypeName == typeName || f.ParentTypeName == field.ReturnTypeName {
				branchFields = append(branchFields, f)
			}
		}
		children, err := p.planSelectionSet(op, branchLayer, step, branchFields)
		if err != nil {
			return err
		}
		node.TypeBranches[typeName] = &OutputNode{Shape: ShapeObject, Children: children, Layer: branchLayer, StepID: InvalidStepID}
	}
	return nil
}
