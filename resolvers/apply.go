package resolvers

import "github.com/grafast-dev/grafast/plan"

// AccessResolver builds a PlanResolver that reads key off the parent step's
// value with plan.AccessStep — the common case of a field that just reads
// one property of its parent's already-fetched value.
func AccessResolver(key string) plan.PlanResolver {
	return func(rc *plan.ResolveContext) (plan.Step, error) {
		parentID := plan.InvalidStepID
		if rc.Parent != nil {
			parentID = rc.Parent.ID()
		}
		return plan.NewAccessStep(rc.Layer, parentID, key), nil
	}
}

// ConstantResolver builds a PlanResolver that always returns value,
// independent of its parent — useful for synthetic fields (e.g. a
// computed __typename branch with a statically-known type name).
func ConstantResolver(value any) plan.PlanResolver {
	return func(rc *plan.ResolveContext) (plan.Step, error) {
		return plan.NewConstantStep(rc.Layer, value), nil
	}
}

// LambdaResolver builds a PlanResolver whose step computes its value by
// calling fn against the parent step's value (fn receives a one-element
// slice: [parentValue], or an empty slice for a root field with no parent
// step).
func LambdaResolver(fn plan.LambdaFn) plan.PlanResolver {
	return func(rc *plan.ResolveContext) (plan.Step, error) {
		deps := []plan.StepID(nil)
		if rc.Parent != nil {
			deps = []plan.StepID{rc.Parent.ID()}
		}
		return plan.NewLambdaStep(rc.Layer, deps, fn), nil
	}
}

// ArgSetter describes a step type whose behavior an argument can configure
// after construction, the shape plan.FieldArgs.Apply's callback expects.
type ArgSetter func(step plan.Step, value any) error

// WithArg registers fn on args to run against name's value once the field's
// step exists, forwarding to FieldArgs.Apply. A thin helper so resolver
// authors can write WithArg(rc.Args, "limit", setLimit) instead of the
// closure boilerplate Apply otherwise requires inline.
func WithArg(args *plan.FieldArgs, name string, fn ArgSetter) {
	args.Apply(name, func(step plan.Step, value any) error {
		return fn(step, value)
	})
}
