// Package pgsource implements a Postgres-backed Step using pgx: the plan
// graph's leaf that actually talks to a database, as opposed to the pure
// in-memory steps in the plan package. Grounded on the teacher's
// QueryBuilder (federation/executor/query_builder.go), which assembles a
// subgraph GraphQL query string plus a variables map from a planner.Step's
// selections; PgSelectStep follows the same "assemble a query string plus
// a parameter list from a declarative description, then dispatch it to one
// backend" shape, substituting a SQL SELECT for a federated GraphQL query
// and pgx for the federation package's http.Client.
package pgsource

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/grafast-dev/grafast/plan"
)

// Queryer is the slice of *pgxpool.Pool (or *pgx.Conn) PgSelectStep needs,
// kept as an interface so tests can fake it without a live database.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgSelectStep selects Columns from Table for each row's key value (read
// off its single dependency), producing one row value per input row: a
// map[string]any keyed by column name, or nil for a key with no matching
// row. It is not sync-and-safe (it issues a batched SQL query per wave, not
// per row) and is Inlineable only as a *consumer*: see
// AcceptProjectedColumns.
// PgSelectStep embeds plan.BaseStep rather than reimplementing Step's
// bookkeeping methods: plan.Step requires an unexported setID method only a
// type embedding something from the plan package can promote, the same
// restriction the plan package's own step types rely on to keep ID
// assignment the sole responsibility of OperationPlan.AddStep.
type PgSelectStep struct {
	plan.BaseStep
	pool    Queryer
	table   string
	keyCol  string
	columns []string
	keyDep  plan.StepID

	// projectionDep is the StepID of a folded-in KeyProjectionStep, set by
	// DependOnProjection; Optimize drops it from Dependencies() once folding is
	// complete, since its columns are now read directly off s.columns
	// instead of computed as a separate upstream step.
	projectionDep plan.StepID
}

// NewPgSelectStep creates a PgSelectStep reading table's rows where keyCol
// equals the value produced by keyDep, initially projecting columns (which
// the optimizer may later replace via AcceptProjectedColumns if a
// KeyProjectionStep folds into this step).
func NewPgSelectStep(layer *plan.LayerPlan, pool Queryer, table, keyCol string, columns []string, keyDep plan.StepID) *PgSelectStep {
	var deps []plan.StepID
	if keyDep != plan.InvalidStepID {
		deps = append(deps, keyDep)
	}
	return &PgSelectStep{
		BaseStep:      plan.NewBaseStep(plan.StepKindPgSelect, layer, plan.FlagInlineable, deps...),
		pool:          pool,
		table:         table,
		keyCol:        keyCol,
		columns:       columns,
		keyDep:        keyDep,
		projectionDep: plan.InvalidStepID,
	}
}

// AcceptProjectedColumns implements plan.PgSelectStepColumnAcceptor: the
// inline optimizer pass calls this when a single-consumer KeyProjectionStep
// folds into this step, handing over the exact column list the response
// actually needs instead of this step having to SELECT * or a
// statically-configured column set.
func (s *PgSelectStep) AcceptProjectedColumns(keys []string) {
	s.columns = keys
}

// DependOnProjection wires projection as an additional dependency of s: the
// resolver that builds both steps calls this once, right after building
// the KeyProjectionStep that computes the response's required column set,
// so the planner sees s depend on it. If that dependency turns out to be
// this step's sole consumer, the optimizer's inline pass later folds it
// straight into s via AcceptProjectedColumns, and s.Optimize drops the now
// unnecessary dependency edge (spec.md §4.3, §4.8).
func (s *PgSelectStep) DependOnProjection(projection *plan.KeyProjectionStep) {
	s.projectionDep = projection.ID()
	s.SetDependencies(append(s.Dependencies(), projection.ID()))
}

func (s *PgSelectStep) Execute(ctx context.Context, values []*plan.ValueVector, extra plan.ExecutionExtra) ([]plan.StepResult, error) {
	keys := values[0]
	out := make([]plan.StepResult, keys.Len())

	live := make([]int, 0, keys.Len())
	keyValues := make([]any, 0, keys.Len())
	for i := 0; i < keys.Len(); i++ {
		if !keys.Alive[i] || keys.Values[i] == nil {
			continue
		}
		live = append(live, i)
		keyValues = append(keyValues, keys.Values[i])
	}
	if len(live) == 0 {
		return out, nil
	}

	sql, args := s.buildQuery(keyValues)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgsource: querying %s: %w", s.table, err)
	}
	defer rows.Close()

	byKey := make(map[any]map[string]any, len(live))
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("pgsource: reading row from %s: %w", s.table, err)
		}
		row := make(map[string]any, len(s.columns))
		for i, col := range s.columns {
			row[col] = vals[i]
		}
		byKey[row[s.keyCol]] = row
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgsource: iterating rows from %s: %w", s.table, err)
	}

	for idx, row := range live {
		if match, ok := byKey[keyValues[idx]]; ok {
			out[row] = plan.ValueResult(match)
		} else {
			out[row] = plan.FlaggedResult(nil)
		}
	}
	return out, nil
}

func (s *PgSelectStep) buildQuery(keys []any) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(s.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(s.table)
	b.WriteString(" WHERE ")
	b.WriteString(s.keyCol)
	b.WriteString(" = ANY($1)")
	return b.String(), []any{keys}
}

// Optimize drops the now-redundant KeyProjectionStep dependency edge once
// its columns have been folded in, so the executor doesn't waste a wave
// computing a projection this step's SQL already performs (spec.md §4.3,
// §4.8).
func (s *PgSelectStep) Optimize(octx *plan.OptimizeContext) (plan.Step, error) {
	if s.projectionDep == plan.InvalidStepID {
		return s, nil
	}
	deps := s.Dependencies()
	next := make([]plan.StepID, 0, len(deps)-1)
	for _, d := range deps {
		if d == s.projectionDep {
			continue
		}
		next = append(next, d)
	}
	s.SetDependencies(next)
	s.projectionDep = plan.InvalidStepID
	return s, nil
}

// PgSelectSingleStep is a PgSelectStep scoped to exactly one key, for
// fields that resolve a single entity by id (e.g. a "node(id: ID!)" root
// field) rather than a batched list of parents. It reuses PgSelectStep's
// query machinery unchanged; only its StepKind differs, since the
// optimizer and any diagnostics treat single-entity lookups as a distinct
// case worth naming (spec.md §4.1, stepKindRegistry).
type PgSelectSingleStep struct {
	*PgSelectStep
}

// NewPgSelectSingleStep creates a PgSelectSingleStep. keyDep must produce
// exactly one live row per execution.
func NewPgSelectSingleStep(layer *plan.LayerPlan, pool Queryer, table, keyCol string, columns []string, keyDep plan.StepID) *PgSelectSingleStep {
	inner := NewPgSelectStep(layer, pool, table, keyCol, columns, keyDep)
	inner.BaseStep = plan.NewBaseStep(plan.StepKindPgSelectSingle, layer, plan.FlagInlineable, keyDep)
	return &PgSelectSingleStep{PgSelectStep: inner}
}

// NewResolver builds a plan.PlanResolver that resolves a field by looking
// up table's row matching the value ResolveContext.Parent produces under
// keyCol, demonstrating the full projection-folding wiring end to end: the
// resolver also builds the KeyProjectionStep describing the fields the
// current selection set will read, and links it to the PgSelectStep via
// DependOnProjection so the optimizer can fold one into the other.
func NewResolver(pool Queryer, table, keyCol string, defaultColumns []string) plan.PlanResolver {
	return func(rc *plan.ResolveContext) (plan.Step, error) {
		keyDep := plan.InvalidStepID
		if rc.Parent != nil {
			keyDep = rc.Parent.ID()
		}
		step := NewPgSelectStep(rc.Layer, pool, table, keyCol, defaultColumns, keyDep)

		fieldNames := make([]string, 0, len(rc.Field.SelectionSet))
		for _, f := range rc.Field.SelectionSet {
			fieldNames = append(fieldNames, f.FieldName)
		}
		if len(fieldNames) > 0 {
			projection := plan.NewKeyProjectionStep(rc.Layer, keyDep, fieldNames)
			if _, err := rc.Plan.AddStep(projection); err != nil {
				return nil, err
			}
			step.DependOnProjection(projection)
		}
		return step, nil
	}
}
