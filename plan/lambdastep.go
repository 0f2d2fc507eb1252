package plan

import "context"

// LambdaFn is a user-supplied pure function from a row's dependency values
// to a result, the building block plan resolvers use for derived scalar
// computations (spec.md §4.1, "lambda").
type LambdaFn func(values []any) (any, error)

// LambdaStep applies fn independently to each row's dependency values. It
// is sync-and-safe only if the author asserts the function is side-effect
// free and cheap, via NewSyncLambdaStep.
type LambdaStep struct {
	BaseStep
	fn LambdaFn
}

// NewLambdaStep creates a LambdaStep that the executor dispatches via the
// batch Execute path (one goroutine-scheduled wave call, not a tight
// per-row loop).
func NewLambdaStep(layer *LayerPlan, deps []StepID, fn LambdaFn) *LambdaStep {
	return &LambdaStep{BaseStep: NewBaseStep(StepKindLambda, layer, FlagInlineable, deps...), fn: fn}
}

// NewSyncLambdaStep creates a LambdaStep flagged sync-and-safe: fn must be
// pure, synchronous, and cheap enough to run per-row without batching
// (spec.md §5).
func NewSyncLambdaStep(layer *LayerPlan, deps []StepID, fn LambdaFn) *LambdaStep {
	return &LambdaStep{BaseStep: NewBaseStep(StepKindLambda, layer, FlagSyncAndSafe|FlagInlineable, deps...), fn: fn}
}

func (s *LambdaStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	n := 1
	if len(values) > 0 {
		n = values[0].Len()
	}
	out := make([]StepResult, n)
	row := make([]any, len(values))
	for i := 0; i < n; i++ {
		dead := false
		for d, vec := range values {
			if !vec.Alive[i] {
				out[i] = FlaggedResult(vec.Errs[i])
				dead = true
				break
			}
			row[d] = vec.Values[i]
		}
		if dead {
			continue
		}
		v, err := s.fn(row)
		if err != nil {
			out[i] = ErrorResult(err)
			continue
		}
		out[i] = ValueResult(v)
	}
	return out, nil
}

func (s *LambdaStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	v, err := s.fn(values)
	if err != nil {
		return ErrorResult(err)
	}
	return ValueResult(v)
}

func (s *LambdaStep) CanInlineInto(consumer Step) bool { return true }
