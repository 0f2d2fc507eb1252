package plan

import "context"

// ListStep assembles a []any row from an ordered set of dependencies, used
// for GraphQL list-type fields whose items are each plan steps in their own
// right (as opposed to a LayerListItem fan-out, which is used when a single
// step yields a runtime-length list) (spec.md §4.1).
type ListStep struct {
	BaseStep
}

// NewListStep creates a ListStep in layer over deps, in order.
func NewListStep(layer *LayerPlan, deps []StepID) *ListStep {
	return &ListStep{BaseStep: NewBaseStep(StepKindList, layer, FlagSyncAndSafe, deps...)}
}

func (s *ListStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	n := 0
	if len(values) > 0 {
		n = values[0].Len()
	}
	out := make([]StepResult, n)
	for row := 0; row < n; row++ {
		out[row] = s.buildRow(values, row)
	}
	return out, nil
}

func (s *ListStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	list := make([]any, len(values))
	copy(list, values)
	return ValueResult(list)
}

func (s *ListStep) buildRow(values []*ValueVector, row int) StepResult {
	list := make([]any, len(values))
	for i, vec := range values {
		if !vec.Alive[row] {
			return FlaggedResult(vec.Errs[row])
		}
		if vec.Errs[row] != nil {
			return ErrorResult(vec.Errs[row])
		}
		list[i] = vec.Values[row]
	}
	return ValueResult(list)
}
