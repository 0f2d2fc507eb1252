package plan

import (
	"context"
	"fmt"
)

// ConstantStep yields the same value on every row: a literal argument value,
// or a value baked in by the optimizer (spec.md §4.1). It is sync-and-safe,
// deduplicatable, and inlineable into any consumer that can accept a
// precomputed column/argument value.
type ConstantStep struct {
	BaseStep
	Value any
}

// NewConstantStep creates a ConstantStep in layer holding value.
func NewConstantStep(layer *LayerPlan, value any) *ConstantStep {
	return &ConstantStep{
		BaseStep: NewBaseStep(StepKindConstant, layer, FlagSyncAndSafe|FlagDeduplicatable|FlagInlineable),
		Value:    value,
	}
}

func (s *ConstantStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	n := 1
	if len(values) > 0 {
		n = values[0].Len()
	}
	out := make([]StepResult, n)
	for i := range out {
		out[i] = ValueResult(s.Value)
	}
	return out, nil
}

func (s *ConstantStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	return ValueResult(s.Value)
}

func (s *ConstantStep) Fingerprint() string {
	return fmt.Sprintf("constant:%#v", s.Value)
}

func (s *ConstantStep) CanInlineInto(consumer Step) bool { return true }

// ContextStep reads a single named value out of the request context, e.g.
// the authenticated viewer id. It is sync-and-safe and deduplicatable by
// key, since two reads of the same context key are interchangeable.
type ContextStep struct {
	BaseStep
	Key string
}

// NewContextStep creates a ContextStep in layer reading key.
func NewContextStep(layer *LayerPlan, key string) *ContextStep {
	return &ContextStep{
		BaseStep: NewBaseStep(StepKindContext, layer, FlagSyncAndSafe|FlagDeduplicatable),
		Key:      key,
	}
}

func (s *ContextStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	v, _ := extra.RequestCx.Value(s.Key)
	n := 1
	if len(values) > 0 {
		n = values[0].Len()
	}
	out := make([]StepResult, n)
	for i := range out {
		out[i] = ValueResult(v)
	}
	return out, nil
}

func (s *ContextStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	v, _ := extra.RequestCx.Value(s.Key)
	return ValueResult(v)
}

func (s *ContextStep) Fingerprint() string { return "context:" + s.Key }
