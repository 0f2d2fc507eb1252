package plan

import (
	"context"
	"fmt"
)

// AccessStep reads one named property out of its single dependency's row
// value, which must be a map[string]any (indexing into a slice is not
// supported; any non-map value yields an error), the Go analogue of the original
// implementation's "access" step used to pick fields out of composite plan
// results (spec.md §4.1). Sync-and-safe and deduplicatable by (dependency,
// key).
type AccessStep struct {
	BaseStep
	Key string
}

// NewAccessStep creates an AccessStep in layer reading field key off dep's
// row value.
func NewAccessStep(layer *LayerPlan, dep StepID, key string) *AccessStep {
	return &AccessStep{
		BaseStep: NewBaseStep(StepKindAccess, layer, FlagSyncAndSafe|FlagDeduplicatable, dep),
		Key:      key,
	}
}

func (s *AccessStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	in := values[0]
	out := make([]StepResult, in.Len())
	for i := 0; i < in.Len(); i++ {
		if !in.Alive[i] {
			continue
		}
		out[i] = s.access(in.Values[i])
	}
	return out, nil
}

func (s *AccessStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	return s.access(values[0])
}

func (s *AccessStep) access(v any) StepResult {
	if v == nil {
		return FlaggedResult(nil)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ErrorResult(fmt.Errorf("access %q: value is not an object (%T)", s.Key, v))
	}
	field, ok := m[s.Key]
	if !ok {
		return FlaggedResult(nil)
	}
	return ValueResult(field)
}

func (s *AccessStep) Fingerprint() string {
	return fmt.Sprintf("access:%d:%s", s.deps[0], s.Key)
}
