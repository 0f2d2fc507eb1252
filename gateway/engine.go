package gateway

import (
	"context"

	"github.com/grafast-dev/grafast/bucket"
	"github.com/grafast-dev/grafast/gql"
	"github.com/grafast-dev/grafast/output"
	"github.com/grafast-dev/grafast/plan"
	"github.com/grafast-dev/grafast/resolvers"
)

// Engine bundles the read-only components required to serve GraphQL
// requests against one schema: a loaded gql.Schema, a resolver table, and
// the planner/optimizer/renderer pipeline shared by every request. Grounded
// on the teacher's executionEngine (gateway/engine.go), which bundled a
// PlannerV2, an ExecutorV2, and a composed SuperGraphV2; here there is no
// subgraph composition step, so the engine instead bundles the planner with
// the optimizer and renderer stages a single-schema pipeline actually runs.
type Engine struct {
	schema      *gql.Schema
	resolvers   *resolvers.Table
	planner     *plan.Planner
	optimizer   *plan.Optimizer
	renderer    *output.Renderer
	resolveType bucket.TypeResolver
}

// NewEngine builds an Engine serving schema with fields resolved from
// table. resolveType may be nil if the schema has no polymorphic
// (interface/union) fields.
func NewEngine(schema *gql.Schema, table *resolvers.Table, resolveType bucket.TypeResolver) *Engine {
	return &Engine{
		schema:      schema,
		resolvers:   table,
		planner:     plan.NewPlanner(table),
		optimizer:   plan.NewOptimizer(),
		renderer:    output.NewRenderer(),
		resolveType: resolveType,
	}
}

// Request is one GraphQL request's input: a query document, an optional
// operation name (required when query defines more than one operation),
// coerced variables, and request-scoped values steps may read during
// execution (e.g. the authenticated viewer).
type Request struct {
	Query         string
	OperationName string
	Variables     map[string]any
	Context       *plan.RequestContext
}

// Execute runs one request through the full parse -> plan -> optimize ->
// execute -> render pipeline and returns the rendered response.
func (e *Engine) Execute(ctx context.Context, req Request) (output.Result, error) {
	doc, err := gql.Parse(e.schema, req.Query, req.OperationName, req.Variables)
	if err != nil {
		return output.Result{}, err
	}

	op, err := e.planner.Plan(doc)
	if err != nil {
		return output.Result{}, err
	}

	if err := e.optimizer.Run(op); err != nil {
		return output.Result{}, err
	}

	runner := bucket.NewRunner(op, req.Context, e.resolveType)
	root, err := runner.Run(ctx)
	if err != nil {
		return output.Result{}, err
	}

	return e.renderer.Render(op.Output, root), nil
}
