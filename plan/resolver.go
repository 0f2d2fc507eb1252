package plan

// FieldSelection is one field the planner must build a step for, already
// normalized against the schema (fragments flattened, variables resolved)
// by the gql package (spec.md §4.2).
type FieldSelection struct {
	ResponseKey string
	// ParentTypeName is the concrete type that owns this field, used
	// together with FieldName as the resolver table key.
	ParentTypeName string
	FieldName      string
	// ReturnTypeName is the type this field returns: an object type name,
	// or the abstract interface/union name for polymorphic fields.
	ReturnTypeName string
	Args           map[string]any
	SelectionSet   []FieldSelection
	IsList         bool
	IsNullable     bool
	// PossibleTypes holds the concrete type names a polymorphic field may
	// resolve to at runtime; empty for monomorphic fields.
	PossibleTypes []string
	// Directives holds coerced directive argument maps keyed by directive
	// name, e.g. Directives["stream"] = {"label": "...", "initialCount": 2}.
	Directives map[string]map[string]any
}

// OperationType distinguishes a query, mutation, or subscription document.
type OperationType int

const (
	OperationQuery OperationType = iota
	OperationMutation
	OperationSubscription
)

func (t OperationType) String() string {
	switch t {
	case OperationMutation:
		return "mutation"
	case OperationSubscription:
		return "subscription"
	default:
		return "query"
	}
}

// OperationDocument is the planner's input: one GraphQL operation's root
// selection set, already normalized by the gql package.
type OperationDocument struct {
	Type         OperationType
	RootTypeName string
	SelectionSet []FieldSelection
}

// ResolveContext is passed to a PlanResolver: the operation being built,
// the layer the resolver's step should be added to, the parent field's
// step (nil for root fields), the field being planned, and its arguments.
type ResolveContext struct {
	Plan   *OperationPlan
	Layer  *LayerPlan
	Parent Step
	Field  FieldSelection
	Args   *FieldArgs
}

// PlanResolver builds (but does not register) the step for one field given
// its parent step and arguments. The planner calls OperationPlan.AddStep
// and FieldArgs.ApplyAll on the returned step.
type PlanResolver func(rc *ResolveContext) (Step, error)

// ResolverLookup is implemented by a plan resolver table: (type, field) ->
// PlanResolver (spec.md §4.2, §6 "To field authors").
type ResolverLookup interface {
	Lookup(typeName, fieldName string) (PlanResolver, bool)
}
