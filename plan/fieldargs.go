package plan

// FieldArgs gives a plan resolver structured access to one field's already
// GraphQL-coerced argument values, plus a way to defer applying an argument
// to the step it builds until after that step exists (spec.md §4.7).
type FieldArgs struct {
	raw     map[string]any
	pending []pendingApply
}

type pendingApply struct {
	name string
	fn   func(step Step, value any) error
}

// NewFieldArgs wraps a field's coerced argument map.
func NewFieldArgs(raw map[string]any) *FieldArgs {
	if raw == nil {
		raw = map[string]any{}
	}
	return &FieldArgs{raw: raw}
}

// Get returns argument name's coerced value and whether it was present in
// the request (a present-but-null argument reports ok=true, value=nil).
func (a *FieldArgs) Get(name string) (any, bool) {
	v, ok := a.raw[name]
	return v, ok
}

// GetString is a convenience accessor for string-typed arguments.
func (a *FieldArgs) GetString(name string) (string, bool) {
	v, ok := a.Get(name)
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt is a convenience accessor for integer-typed arguments.
func (a *FieldArgs) GetInt(name string) (int, bool) {
	v, ok := a.Get(name)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Apply registers fn to run once the field's step has been built, against
// argument name's raw value. Resolvers use this when an argument's effect
// depends on the step already existing, e.g. a filter argument applied to a
// PgSelectStep instance after construction ("autoApplyAfterParentPlan",
// spec.md §4.7).
func (a *FieldArgs) Apply(name string, fn func(step Step, value any) error) {
	a.pending = append(a.pending, pendingApply{name: name, fn: fn})
}

// ApplyAll runs every registered Apply closure against step in registration
// order, skipping arguments that were not supplied and stopping at the
// first error. The planner calls this immediately after a resolver returns
// the step it built.
func (a *FieldArgs) ApplyAll(step Step) error {
	for _, p := range a.pending {
		v, ok := a.raw[p.name]
		if !ok {
			continue
		}
		if err := p.fn(step, v); err != nil {
			return &StepBuildError{StepKind: step.Kind(), Message: "applying argument " + p.name, Cause: err}
		}
	}
	return nil
}
