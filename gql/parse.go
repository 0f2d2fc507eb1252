package gql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/grafast-dev/grafast/plan"
)

// Parse parses query against schema, selects operationName (or the
// document's sole operation if it defines only one and operationName is
// empty), substitutes variables, flattens fragments, and returns a
// plan.OperationDocument ready for Planner.Plan.
func Parse(schema *Schema, query string, operationName string, variables map[string]any) (*plan.OperationDocument, error) {
	doc, gqlErr := gqlparser.LoadQuery(schema.raw, query)
	if gqlErr != nil {
		return nil, &ValidationError{Errors: gqlErr}
	}

	op, err := selectOperation(doc.Operations, operationName)
	if err != nil {
		return nil, err
	}

	selectionSet, err := convertSelectionSet(schema.raw, op.SelectionSet, variables)
	if err != nil {
		return nil, err
	}

	return &plan.OperationDocument{
		Type:         convertOperationType(op.Operation),
		RootTypeName: rootTypeName(schema.raw, op.Operation),
		SelectionSet: selectionSet,
	}, nil
}

func selectOperation(ops ast.OperationList, name string) (*ast.OperationDefinition, error) {
	if name != "" {
		for _, op := range ops {
			if op.Name == name {
				return op, nil
			}
		}
		return nil, fmt.Errorf("gql: no operation named %q in document", name)
	}
	if len(ops) != 1 {
		return nil, fmt.Errorf("gql: operationName is required when a document defines more than one operation")
	}
	return ops[0], nil
}

func convertOperationType(op ast.Operation) plan.OperationType {
	switch op {
	case ast.Mutation:
		return plan.OperationMutation
	case ast.Subscription:
		return plan.OperationSubscription
	default:
		return plan.OperationQuery
	}
}

func rootTypeName(schema *ast.Schema, op ast.Operation) string {
	switch op {
	case ast.Mutation:
		if schema.Mutation != nil {
			return schema.Mutation.Name
		}
	case ast.Subscription:
		if schema.Subscription != nil {
			return schema.Subscription.Name
		}
	default:
		if schema.Query != nil {
			return schema.Query.Name
		}
	}
	return ""
}

// convertSelectionSet flattens fragment spreads and inline fragments into a
// flat list of plan.FieldSelection, honoring @skip/@include at every level
// (spec.md §4.2).
func convertSelectionSet(schema *ast.Schema, set ast.SelectionSet, vars map[string]any) ([]plan.FieldSelection, error) {
	var out []plan.FieldSelection
	for _, sel := range set {
		switch s := sel.(type) {
		case *ast.Field:
			included, err := shouldInclude(s.Directives, vars)
			if err != nil {
				return nil, err
			}
			if !included {
				continue
			}
			field, err := convertField(schema, s, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, field)

		case *ast.FragmentSpread:
			included, err := shouldInclude(s.Directives, vars)
			if err != nil {
				return nil, err
			}
			if !included || s.Definition == nil {
				continue
			}
			nested, err := convertSelectionSet(schema, s.Definition.SelectionSet, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)

		case *ast.InlineFragment:
			included, err := shouldInclude(s.Directives, vars)
			if err != nil {
				return nil, err
			}
			if !included {
				continue
			}
			nested, err := convertSelectionSet(schema, s.SelectionSet, vars)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		}
	}
	return out, nil
}

// InaccessibleFieldError reports that a request selected a field the schema
// marks @inaccessible. Grounded on the teacher's validateAccessibility
// (gateway/gateway.go), which walked a federation SuperGraph's subgraphs
// looking for the same directive; here there is one schema, not one per
// subgraph, so the check runs directly against the field's own definition
// as gqlparser resolves it.
type InaccessibleFieldError struct {
	TypeName  string
	FieldName string
}

func (e *InaccessibleFieldError) Error() string {
	return fmt.Sprintf("cannot query field %q on type %q: marked @inaccessible", e.FieldName, e.TypeName)
}

func isInaccessible(f *ast.FieldDefinition) bool {
	return f != nil && f.Directives.ForName("inaccessible") != nil
}

func convertField(schema *ast.Schema, f *ast.Field, vars map[string]any) (plan.FieldSelection, error) {
	responseKey := f.Alias
	if responseKey == "" {
		responseKey = f.Name
	}

	if f.Name != "__typename" && f.Name != "__schema" && f.Name != "__type" && isInaccessible(f.Definition) {
		parentName := ""
		if f.ObjectDefinition != nil {
			parentName = f.ObjectDefinition.Name
		}
		return plan.FieldSelection{}, &InaccessibleFieldError{TypeName: parentName, FieldName: f.Name}
	}

	args, err := resolveArgs(f.Arguments, vars)
	if err != nil {
		return plan.FieldSelection{}, fmt.Errorf("field %s: %w", responseKey, err)
	}
	directives, err := resolveDirectives(f.Directives, vars)
	if err != nil {
		return plan.FieldSelection{}, fmt.Errorf("field %s: %w", responseKey, err)
	}

	var parentTypeName string
	if f.ObjectDefinition != nil {
		parentTypeName = f.ObjectDefinition.Name
	}

	fs := plan.FieldSelection{
		ResponseKey:    responseKey,
		ParentTypeName: parentTypeName,
		FieldName:      f.Name,
		Args:           args,
		Directives:     directives,
	}

	if f.Definition != nil && f.Definition.Type != nil {
		t := f.Definition.Type
		fs.ReturnTypeName = namedTypeOf(t)
		fs.IsList = isListType(t)
		fs.IsNullable = !t.NonNull
		if def := schema.Types[fs.ReturnTypeName]; def != nil && (def.Kind == ast.Interface || def.Kind == ast.Union) {
			for _, possible := range schema.PossibleTypes[fs.ReturnTypeName] {
				fs.PossibleTypes = append(fs.PossibleTypes, possible.Name)
			}
		}
	}

	selectionSet, err := convertSelectionSet(schema, f.SelectionSet, vars)
	if err != nil {
		return plan.FieldSelection{}, err
	}
	fs.SelectionSet = selectionSet
	return fs, nil
}

func namedTypeOf(t *ast.Type) string {
	for t.NamedType == "" && t.Elem != nil {
		t = t.Elem
	}
	return t.NamedType
}

func isListType(t *ast.Type) bool {
	return t.NamedType == "" && t.Elem != nil
}

func resolveArgs(args ast.ArgumentList, vars map[string]any) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(args))
	for _, a := range args {
		v, err := a.Value.Value(vars)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", a.Name, err)
		}
		out[a.Name] = v
	}
	return out, nil
}

func resolveDirectives(directives ast.DirectiveList, vars map[string]any) (map[string]map[string]any, error) {
	if len(directives) == 0 {
		return nil, nil
	}
	out := make(map[string]map[string]any, len(directives))
	for _, d := range directives {
		args, err := resolveArgs(d.Arguments, vars)
		if err != nil {
			return nil, fmt.Errorf("directive @%s: %w", d.Name, err)
		}
		if args == nil {
			args = map[string]any{}
		}
		out[d.Name] = args
	}
	return out, nil
}

// shouldInclude evaluates @skip/@include against directives, defaulting to
// true (selection kept) when neither is present.
func shouldInclude(directives ast.DirectiveList, vars map[string]any) (bool, error) {
	for _, d := range directives {
		switch d.Name {
		case "skip":
			v, err := directiveBoolArg(d, "if", vars)
			if err != nil {
				return false, err
			}
			if v {
				return false, nil
			}
		case "include":
			v, err := directiveBoolArg(d, "if", vars)
			if err != nil {
				return false, err
			}
			if !v {
				return false, nil
			}
		}
	}
	return true, nil
}

func directiveBoolArg(d *ast.Directive, name string, vars map[string]any) (bool, error) {
	arg := d.Arguments.ForName(name)
	if arg == nil {
		return false, fmt.Errorf("@%s missing required argument %q", d.Name, name)
	}
	v, err := arg.Value.Value(vars)
	if err != nil {
		return false, err
	}
	b, _ := v.(bool)
	return b, nil
}
