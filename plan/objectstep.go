package plan

import "context"

// ObjectStep assembles a map[string]any row from a fixed set of named
// dependencies, the Go analogue of the original implementation's "object"
// step used to build GraphQL response objects out of their fields' steps
// (spec.md §4.1, §4.6). Sync-and-safe.
type ObjectStep struct {
	BaseStep
	FieldNames []string // parallel to Dependencies()
}

// NewObjectStep creates an ObjectStep in layer with one dependency per
// (name, step) pair in fields, preserving the given order.
func NewObjectStep(layer *LayerPlan, fields []ObjectField) *ObjectStep {
	names := make([]string, len(fields))
	deps := make([]StepID, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		deps[i] = f.Dep
	}
	return &ObjectStep{
		BaseStep:   NewBaseStep(StepKindObject, layer, FlagSyncAndSafe, deps...),
		FieldNames: names,
	}
}

// ObjectField pairs a response key with the step supplying its value.
type ObjectField struct {
	Name string
	Dep  StepID
}

func (s *ObjectStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	n := 0
	if len(values) > 0 {
		n = values[0].Len()
	}
	out := make([]StepResult, n)
	for i := 0; i < n; i++ {
		out[i] = s.buildRow(values, i)
	}
	return out, nil
}

func (s *ObjectStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	obj := make(map[string]any, len(s.FieldNames))
	for i, name := range s.FieldNames {
		obj[name] = values[i]
	}
	return ValueResult(obj)
}

func (s *ObjectStep) buildRow(values []*ValueVector, row int) StepResult {
	obj := make(map[string]any, len(s.FieldNames))
	for i, name := range s.FieldNames {
		vec := values[i]
		if !vec.Alive[row] {
			return FlaggedResult(vec.Errs[row])
		}
		if vec.Errs[row] != nil {
			return ErrorResult(vec.Errs[row])
		}
		obj[name] = vec.Values[row]
	}
	return ValueResult(obj)
}
