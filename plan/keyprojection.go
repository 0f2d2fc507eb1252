package plan

import (
	"context"
	"fmt"
	"strings"
)

// isUnsafeIdentifier reports whether key could be used to reach outside a
// plain object's own properties if it were spliced into generated code or
// used to index a prototype-carrying structure. Go maps don't have this
// hazard at runtime the way the JavaScript original's generated-accessor
// fast path does, but the disallow-list is kept anyway: the fast path below
// exists precisely to mirror that code-generation strategy, and a
// KeyProjectionStep may be compiled down to other backends (e.g. a
// generated SQL column list) where the same names are unsafe to splice
// in unescaped (spec.md open question, resolved in SPEC_FULL.md: keep the
// disallow-list).
func isUnsafeIdentifier(key string) bool {
	if strings.HasPrefix(key, "__") {
		return true
	}
	switch key {
	case "__proto__", "constructor", "prototype":
		return true
	}
	return false
}

// KeyProjectionStep projects a fixed set of named keys out of its single
// dependency's row value. It illustrates the dual fast-path/slow-path
// strategy the original implementation uses for hot accessor code: a safe
// identifier set is projected with a flat allocation, an unsafe set falls
// back to a defensive per-key reduce (spec.md §4.8).
type KeyProjectionStep struct {
	BaseStep
	Keys []string

	allSafe bool
}

// NewKeyProjectionStep creates a KeyProjectionStep in layer projecting keys
// out of dep's row value.
func NewKeyProjectionStep(layer *LayerPlan, dep StepID, keys []string) *KeyProjectionStep {
	allSafe := true
	for _, k := range keys {
		if isUnsafeIdentifier(k) {
			allSafe = false
			break
		}
	}
	return &KeyProjectionStep{
		BaseStep: NewBaseStep(StepKindKeyProjection, layer, FlagSyncAndSafe|FlagDeduplicatable|FlagInlineable, dep),
		Keys:     keys,
		allSafe:  allSafe,
	}
}

func (s *KeyProjectionStep) Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error) {
	in := values[0]
	out := make([]StepResult, in.Len())
	for i := 0; i < in.Len(); i++ {
		if !in.Alive[i] {
			continue
		}
		out[i] = s.project(in.Values[i])
	}
	return out, nil
}

func (s *KeyProjectionStep) ExecuteOne(values []any, extra ExecutionExtra) StepResult {
	return s.project(values[0])
}

func (s *KeyProjectionStep) project(v any) StepResult {
	if v == nil {
		return FlaggedResult(nil)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return ErrorResult(fmt.Errorf("key projection: value is not an object (%T)", v))
	}
	if s.allSafe {
		return ValueResult(s.fastPath(m))
	}
	return ValueResult(s.slowPath(m))
}

// fastPath allocates the result map once and writes every key directly: the
// equivalent of the original implementation generating a flat accessor
// function for an all-safe key set.
func (s *KeyProjectionStep) fastPath(m map[string]any) map[string]any {
	out := make(map[string]any, len(s.Keys))
	for _, k := range s.Keys {
		out[k] = m[k]
	}
	return out
}

// slowPath folds over the key set defensively, skipping any key that is
// itself unsafe to copy rather than trusting it came from the declared
// object shape.
func (s *KeyProjectionStep) slowPath(m map[string]any) map[string]any {
	out := make(map[string]any, len(s.Keys))
	for _, k := range s.Keys {
		if isUnsafeIdentifier(k) {
			continue
		}
		out[k] = m[k]
	}
	return out
}

func (s *KeyProjectionStep) Fingerprint() string {
	return fmt.Sprintf("keyProjection:%d:%s", s.deps[0], strings.Join(s.Keys, ","))
}

func (s *KeyProjectionStep) CanInlineInto(consumer Step) bool {
	_, ok := consumer.(PgSelectStepColumnAcceptor)
	return ok
}

// PgSelectStepColumnAcceptor is implemented by steps (e.g. pgsource's
// PgSelectStep) that can accept a KeyProjectionStep's key set as a column
// list rather than reading a whole row and projecting afterwards.
type PgSelectStepColumnAcceptor interface {
	Step
	AcceptProjectedColumns(keys []string)
}
