// Package resolvers provides a concurrency-safe lookup table of plan
// resolvers keyed by (parent type, field name), the table a Planner
// consults to turn a field selection into a step (spec.md §4.2).
//
// Grounded on the teacher's Registry (registry/registry.go): that type
// holds a live, mutating set of registered subgraphs behind an
// atomic.Value so concurrent HTTP registration requests never race a
// concurrent read of the current set. Table applies the same
// swap-the-whole-map-on-write pattern to a field-resolver table instead of
// a subgraph set — registrations are rare (schema load, hot-reload) and
// lookups are constant and on every request's hot path, which is exactly
// the read-mostly shape atomic.Value is for.
package resolvers

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/grafast-dev/grafast/plan"
)

type key struct {
	typeName  string
	fieldName string
}

// Table is a plan.ResolverLookup whose contents can be registered
// incrementally and safely read from concurrent planning goroutines.
type Table struct {
	mu sync.Mutex // serializes writers; readers never block
	m  atomic.Value
}

// NewTable creates an empty Table.
func NewTable() *Table {
	t := &Table{}
	t.store(make(map[key]plan.PlanResolver))
	return t
}

func (t *Table) store(m map[key]plan.PlanResolver) { t.m.Store(m) }

// Register binds resolver to (typeName, fieldName), replacing any existing
// binding. Safe to call concurrently with Lookup and with other Register
// calls.
func (t *Table) Register(typeName, fieldName string, resolver plan.PlanResolver) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := t.m.Load().(map[key]plan.PlanResolver)
	next := make(map[key]plan.PlanResolver, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[key{typeName, fieldName}] = resolver
	t.store(next)
}

// RegisterTypename is a convenience for Register(typeName, "__typename",
// resolver): the planner looks up this exact field name to discover a
// polymorphic field's runtime type (plan.Planner.planPolymorphic).
func (t *Table) RegisterTypename(typeName string, resolver plan.PlanResolver) {
	t.Register(typeName, "__typename", resolver)
}

// Lookup implements plan.ResolverLookup.
func (t *Table) Lookup(typeName, fieldName string) (plan.PlanResolver, bool) {
	m := t.m.Load().(map[key]plan.PlanResolver)
	r, ok := m[key{typeName, fieldName}]
	return r, ok
}

// MustRegister panics if a resolver is already registered for
// (typeName, fieldName); useful during static table construction at
// program startup where a duplicate registration is a programming error.
func (t *Table) MustRegister(typeName, fieldName string, resolver plan.PlanResolver) {
	if _, exists := t.Lookup(typeName, fieldName); exists {
		panic(fmt.Sprintf("resolvers: duplicate registration for %s.%s", typeName, fieldName))
	}
	t.Register(typeName, fieldName, resolver)
}
