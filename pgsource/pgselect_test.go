package pgsource_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/grafast-dev/grafast/plan"
	"github.com/grafast-dev/grafast/pgsource"
)

// fakeRows implements pgx.Rows over an in-memory row set, letting these
// tests exercise PgSelectStep.Execute without a live database.
type fakeRows struct {
	cols []string
	rows [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                               { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	return nil
}

// fakeQueryer records the SQL/args it was called with and replies with the
// same fixed row set whatever columns the caller asked to SELECT.
type fakeQueryer struct {
	cols  []string
	rows  [][]any
	sql   string
	args  []any
}

func (q *fakeQueryer) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = sql
	q.args = args
	return &fakeRows{cols: q.cols, rows: q.rows}, nil
}

func newLayer() *plan.LayerPlan {
	return plan.NewOperationPlan().RootLayer()
}

func TestPgSelectStepExecuteBatchesKeysAndFlagsMisses(t *testing.T) {
	layer := newLayer()
	q := &fakeQueryer{
		cols: []string{"id", "name"},
		rows: [][]any{
			{1, "alice"},
			{3, "carol"},
		},
	}
	step := pgsource.NewPgSelectStep(layer, q, "users", "id", []string{"id", "name"}, plan.InvalidStepID)

	keys := plan.NewValueVector(3)
	keys.Values[0] = 1
	keys.Values[1] = 2
	keys.Values[2] = 3

	results, err := step.Execute(context.Background(), []*plan.ValueVector{keys}, plan.ExecutionExtra{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Nil(t, results[0].Err)
	require.Equal(t, map[string]any{"id": 1, "name": "alice"}, results[0].Value)

	require.True(t, results[1].Flagged, "key 2 has no matching row")

	require.Equal(t, map[string]any{"id": 3, "name": "carol"}, results[2].Value)

	require.Contains(t, q.sql, "SELECT id, name FROM users WHERE id = ANY($1)")
	require.Len(t, q.args, 1)
}

func TestPgSelectStepExecuteSkipsDeadAndNilKeys(t *testing.T) {
	layer := newLayer()
	q := &fakeQueryer{cols: []string{"id"}, rows: nil}
	step := pgsource.NewPgSelectStep(layer, q, "users", "id", []string{"id"}, plan.InvalidStepID)

	keys := plan.NewValueVector(2)
	keys.Alive[0] = false
	keys.Values[1] = nil

	results, err := step.Execute(context.Background(), []*plan.ValueVector{keys}, plan.ExecutionExtra{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Empty(t, q.sql, "no live, non-nil keys means no query is issued")
}

func TestAcceptProjectedColumnsOverridesColumnList(t *testing.T) {
	layer := newLayer()
	q := &fakeQueryer{cols: []string{"id", "name", "email"}, rows: [][]any{{1, "alice", "alice@example.com"}}}
	step := pgsource.NewPgSelectStep(layer, q, "users", "id", []string{"id", "name", "email"}, plan.InvalidStepID)

	step.AcceptProjectedColumns([]string{"id", "name"})

	keys := plan.NewValueVector(1)
	keys.Values[0] = 1
	q.rows = [][]any{{1, "alice"}}

	results, err := step.Execute(context.Background(), []*plan.ValueVector{keys}, plan.ExecutionExtra{})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": 1, "name": "alice"}, results[0].Value)
	require.Contains(t, q.sql, "SELECT id, name FROM users")
}

func TestOptimizeDropsFoldedProjectionDependency(t *testing.T) {
	layer := newLayer()
	q := &fakeQueryer{}
	op := plan.NewOperationPlan()

	parentID, err := op.AddStep(plan.NewConstantStep(layer, map[string]any{"id": 1}))
	require.NoError(t, err)

	projStep := plan.NewKeyProjectionStep(layer, parentID, []string{"id", "name"})
	projID, err := op.AddStep(projStep)
	require.NoError(t, err)

	selectStep := pgsource.NewPgSelectStep(layer, q, "users", "id", []string{"id"}, parentID)
	selectStep.DependOnProjection(projStep)
	_, err = op.AddStep(selectStep)
	require.NoError(t, err)

	require.Contains(t, selectStep.Dependencies(), projID)

	next, err := selectStep.Optimize(&plan.OptimizeContext{Plan: op})
	require.NoError(t, err)
	optimized := next.(*pgsource.PgSelectStep)
	require.NotContains(t, optimized.Dependencies(), projID)
	require.Contains(t, optimized.Dependencies(), parentID)
}

func TestNewResolverWiresKeyProjectionWhenSelectionSetIsNonEmpty(t *testing.T) {
	layer := newLayer()
	op := plan.NewOperationPlan()
	q := &fakeQueryer{cols: []string{"id", "name"}, rows: [][]any{{1, "alice"}}}

	resolver := pgsource.NewResolver(q, "users", "id", []string{"id", "name"})

	rc := &plan.ResolveContext{
		Plan:  op,
		Layer: layer,
		Field: plan.FieldSelection{
			FieldName: "viewer",
			SelectionSet: []plan.FieldSelection{
				{FieldName: "id"},
				{FieldName: "name"},
			},
		},
	}

	s, err := resolver(rc)
	require.NoError(t, err)
	selectStep, ok := s.(*pgsource.PgSelectStep)
	require.True(t, ok)
	require.Len(t, selectStep.Dependencies(), 1, "the KeyProjectionStep dependency, since there was no parent step")
}

func TestNewResolverWithNoSelectionSetLeavesStepUnwired(t *testing.T) {
	layer := newLayer()
	op := plan.NewOperationPlan()
	q := &fakeQueryer{cols: []string{"id"}, rows: nil}

	resolver := pgsource.NewResolver(q, "users", "id", []string{"id"})
	rc := &plan.ResolveContext{
		Plan:  op,
		Layer: layer,
		Field: plan.FieldSelection{FieldName: "count"},
	}

	s, err := resolver(rc)
	require.NoError(t, err)
	selectStep, ok := s.(*pgsource.PgSelectStep)
	require.True(t, ok)
	require.Empty(t, selectStep.Dependencies())
}
