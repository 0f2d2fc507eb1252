package plan

import "context"

// StepID is a dense integer identifier for a Step within one OperationPlan's
// arena (spec.md §9, "Model dependencies as dense integer ids over an
// arena").
type StepID int

// InvalidStepID marks the absence of a step reference (e.g. a LayerPlan with
// no driving step).
const InvalidStepID StepID = -1

// RequestContext carries request-scoped values steps may read during
// execution (the GraphQL "context" value of the original implementation),
// e.g. the authenticated viewer or a request-scoped database connection.
type RequestContext struct {
	Values map[string]any
}

// Value looks up a request-scoped value by key.
func (c *RequestContext) Value(key string) (any, bool) {
	if c == nil || c.Values == nil {
		return nil, false
	}
	v, ok := c.Values[key]
	return v, ok
}

// ExecutionExtra is passed to every Step.Execute/ExecuteOne call: the
// ambient context for cancellation plus request-scoped state (spec.md §4.1).
type ExecutionExtra struct {
	Context   context.Context
	RequestCx *RequestContext
}

// StepResult is one row's output from a step's batch execution: either a
// value, a hard error, or an intentional null carrying a non-fatal cause
// (spec.md §4.1 edge cases, §8 error locality).
type StepResult struct {
	Value   any
	Err     error
	Flagged bool
}

// ValueResult wraps a plain value with no error.
func ValueResult(v any) StepResult { return StepResult{Value: v} }

// ErrorResult marks a row as failed; the executor will null the row out to
// its nearest nullable ancestor and record err against that row's path.
func ErrorResult(err error) StepResult { return StepResult{Err: err} }

// FlaggedResult marks a row as an intentional null, distinct from a hard
// error: cause is recorded for diagnostics but does not fail the bucket.
func FlaggedResult(cause error) StepResult { return StepResult{Flagged: true, Err: cause} }

// Step is the core unit of computation in a plan graph: a dataflow node
// that reads its dependencies' per-row values and produces its own per-row
// values (spec.md §3, §4.1).
type Step interface {
	// ID returns this step's id within its OperationPlan's step arena.
	ID() StepID
	// setID is called exactly once by OperationPlan.AddStep.
	setID(StepID)
	// Kind returns the tagged variant identifying this step's class.
	Kind() StepKind
	// Layer returns the LayerPlan this step is scoped to. Fixed at creation.
	Layer() *LayerPlan
	// Dependencies returns, in order, the step ids this step reads from.
	Dependencies() []StepID
	// Flags returns this step's behavioral flags.
	Flags() StepFlag
	// Execute runs this step in batch form. values[i] is dependency i's
	// parallel vector (length N, one slot per row, dead rows included and
	// marked in Alive); the result is a parallel vector of the same length
	// N, except that a step with no dependencies may return a single result,
	// which the executor copies into every row.
	Execute(ctx context.Context, values []*ValueVector, extra ExecutionExtra) ([]StepResult, error)
}

// SyncAndSafeStep is implemented by steps flagged FlagSyncAndSafe: the
// executor calls ExecuteOne per row in a tight loop rather than batching,
// skipping goroutine dispatch overhead for steps cheap enough not to need it
// (spec.md §5, "sync-and-safe fast path").
type SyncAndSafeStep interface {
	Step
	ExecuteOne(values []any, extra ExecutionExtra) StepResult
}

// Deduplicatable is implemented by steps that participate in the
// deduplication optimizer pass (spec.md §4.3).
type Deduplicatable interface {
	Step
	// Fingerprint returns a string such that two steps with equal
	// fingerprints, equal dependencies (post-dedup), and equal kind are
	// interchangeable.
	Fingerprint() string
}

// OptimizeContext is passed to Step.Optimize; it exposes the surrounding
// OperationPlan read-only except for the rewrite operations it exposes.
type OptimizeContext struct {
	Plan *OperationPlan
}

// Optimizable is implemented by steps that rewrite themselves during the
// optimize pass, e.g. to fold in an inlineable dependency (spec.md §4.3).
type Optimizable interface {
	Step
	// Optimize returns a replacement step (possibly itself, unchanged) given
	// the current state of the plan. Called once per optimize pass, in
	// dependency order (dependencies optimize before dependents).
	Optimize(octx *OptimizeContext) (Step, error)
}

// Finalizable is implemented by steps with derived, immutable data that
// should be computed once the graph is stable, after optimize (spec.md
// §4.1.4, §4.3 "finalization").
type Finalizable interface {
	Step
	Finalize() error
}

// Inlineable is implemented by steps that can be folded into a single
// consumer during the optimize pass's inlining/fusion step (spec.md §4.3,
// §4.8 key-projection fast path).
type Inlineable interface {
	Step
	// CanInlineInto reports whether this step can be folded directly into
	// consumer's implementation (e.g. a column projection folding into the
	// SQL SELECT that would otherwise read a whole row).
	CanInlineInto(consumer Step) bool
}
