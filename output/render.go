// Package output walks an OperationPlan's response-shaped OutputTemplate
// against its populated bucket tree to produce a JSON-shaped response,
// applying GraphQL null-propagation on the way (spec.md §4.6). It is
// grounded on the teacher's response assembly in
// federation/executor/executor_v2.go (mergeEntityResults/Merge and
// pruneResponse/pruneObject), adapted from "merge several subgraphs'
// partial JSON responses into one" to "render one template tree against
// one bucket tree".
package output

import (
	"github.com/grafast-dev/grafast/bucket"
	"github.com/grafast-dev/grafast/plan"
)

// FieldError is one entry of a GraphQL response's top-level "errors" array.
type FieldError struct {
	Path    []any
	Message string
}

// Result is a rendered GraphQL response: Data is nil only when the
// operation's root itself failed; Errors may be non-empty even when Data is
// present, per GraphQL's partial-success error model.
type Result struct {
	Data   map[string]any
	Errors []FieldError
}

// Renderer renders an OutputTemplate against a bucket tree.
type Renderer struct{}

// NewRenderer creates a stateless Renderer.
func NewRenderer() *Renderer { return &Renderer{} }

// Render produces the response for row 0 of root (the only row of the
// operation's root bucket).
func (r *Renderer) Render(tmpl *plan.OutputTemplate, root *bucket.Bucket) Result {
	var errs []FieldError
	data, _ := r.renderNode(tmpl.Root, root, 0, nil, &errs)
	obj, _ := data.(map[string]any)
	return Result{Data: obj, Errors: errs}
}

// renderNode renders node for row of b, returning (value, isNull). A true
// isNull with node.Nullable false signals the caller to null out its own
// containing value too (GraphQL null-propagation, spec.md §4.6).
func (r *Renderer) renderNode(node *plan.OutputNode, b *bucket.Bucket, row int, path []any, errs *[]FieldError) (any, bool) {
	if node == nil {
		return nil, true
	}

	switch node.Shape {
	case plan.ShapeScalar:
		return r.renderLeaf(node, b, row, path, errs)
	case plan.ShapeObject:
		return r.renderObject(node, b, row, path, errs)
	case plan.ShapeList:
		return r.renderList(node, b, row, path, errs)
	case plan.ShapePolymorphic:
		return r.renderPolymorphic(node, b, row, path, errs)
	default:
		return nil, true
	}
}

func (r *Renderer) renderLeaf(node *plan.OutputNode, b *bucket.Bucket, row int, path []any, errs *[]FieldError) (any, bool) {
	if node.StepID == plan.InvalidStepID {
		return nil, true
	}
	vec := b.ResolveVector(node.StepID)
	if err := vec.Errs[row]; err != nil {
		*errs = append(*errs, FieldError{Path: appendPath(path, node.Name), Message: err.Error()})
		return nil, true
	}
	if !vec.Alive[row] {
		return nil, true
	}
	return vec.Values[row], vec.Values[row] == nil
}

func (r *Renderer) renderObject(node *plan.OutputNode, b *bucket.Bucket, row int, path []any, errs *[]FieldError) (any, bool) {
	// An object node that also carries a StepID (e.g. a field whose value
	// the planner represents both as a step and as nested children, such
	// as a PG row) must be null if that step's own row is null/errored.
	if node.StepID != plan.InvalidStepID {
		vec := b.ResolveVector(node.StepID)
		if err := vec.Errs[row]; err != nil {
			*errs = append(*errs, FieldError{Path: appendPath(path, node.Name), Message: err.Error()})
			return nil, true
		}
		if !vec.Alive[row] {
			return nil, true
		}
		if vec.Values[row] == nil {
			return nil, true
		}
	}

	obj := make(map[string]any, len(node.Children))
	for _, child := range node.Children {
		childPath := appendPath(path, node.Name)
		value, isNull := r.renderNode(child, b, row, childPath, errs)
		if isNull && !child.Nullable {
			return nil, true
		}
		obj[child.Name] = value
	}
	return obj, false
}

func (r *Renderer) renderList(node *plan.OutputNode, b *bucket.Bucket, row int, path []any, errs *[]FieldError) (any, bool) {
	vec := b.ResolveVector(node.StepID)
	if err := vec.Errs[row]; err != nil {
		*errs = append(*errs, FieldError{Path: appendPath(path, node.Name), Message: err.Error()})
		return nil, true
	}
	if !vec.Alive[row] {
		return nil, true
	}
	if vec.Values[row] == nil {
		return nil, true
	}

	itemLayerBucket := findChildBucket(b, node.ListElem.Layer)
	if itemLayerBucket == nil {
		return []any{}, false
	}

	list := make([]any, 0, itemLayerBucket.Size)
	for childRow := 0; childRow < itemLayerBucket.Size; childRow++ {
		if itemLayerBucket.ParentRowMap[childRow] != row {
			continue
		}
		itemPath := appendPath(path, node.Name, len(list))
		value, isNull := r.renderNode(node.ListElem, itemLayerBucket, childRow, itemPath, errs)
		if isNull && !node.ListElem.Nullable {
			return nil, true
		}
		list = append(list, value)
	}
	return list, false
}

func (r *Renderer) renderPolymorphic(node *plan.OutputNode, b *bucket.Bucket, row int, path []any, errs *[]FieldError) (any, bool) {
	vec := b.ResolveVector(node.StepID)
	if !vec.Alive[row] {
		return nil, true
	}
	tnVec := b.ResolveVector(node.TypenameStepID)
	typeName, _ := tnVec.Values[row].(string)

	branch, ok := node.TypeBranches[typeName]
	if !ok {
		return nil, true
	}
	branchBucket := findChildBucket(b, branch.Layer)
	if branchBucket == nil {
		return nil, true
	}
	for childRow := 0; childRow < branchBucket.Size; childRow++ {
		if branchBucket.ParentRowMap != nil && branchBucket.ParentRowMap[childRow] != row {
			continue
		}
		value, isNull := r.renderNode(branch, branchBucket, childRow, path, errs)
		return value, isNull
	}
	return nil, true
}

// findChildBucket looks through b's direct children for the bucket
// belonging to layer.
func findChildBucket(b *bucket.Bucket, layer *plan.LayerPlan) *bucket.Bucket {
	if layer == nil {
		return nil
	}
	for _, child := range b.ChildrenOf(layer.ID()) {
		return child
	}
	return nil
}

// appendPath appends segments to path, dropping any empty-string segment:
// response-shape nodes synthesized by the planner (e.g. a list's item
// template) carry no field name of their own, and should not introduce a
// spurious path element.
func appendPath(path []any, segments ...any) []any {
	out := make([]any, 0, len(path)+len(segments))
	out = append(out, path...)
	for _, s := range segments {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
