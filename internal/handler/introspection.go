package handler

// introspection.go answers __type(name: "...") queries from the schema given with the Schema option

import (
	"context"
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
)

// introspectType returns the name, kind and fields of a type (null if the type does not exist)
func (op *gqlOperation) introspectType(ctx context.Context, field *ast.Field, args map[string]interface{}) (interface{}, error) {
	if op.h.schema == nil {
		return nil, errors.New("introspection is not available")
	}
	name, _ := args["name"].(string)
	def := op.h.schema.Types[name]
	if def == nil {
		return nil, nil
	}

	t := map[string]interface{}{
		"name":        def.Name,
		"kind":        string(def.Kind),
		"description": def.Description,
	}
	if def.Kind == ast.Object || def.Kind == ast.Interface {
		fields := make([]interface{}, 0, len(def.Fields))
		for _, f := range def.Fields {
			if len(f.Name) > 1 && f.Name[:2] == "__" {
				continue
			}
			fields = append(fields, map[string]interface{}{
				"name":        f.Name,
				"description": f.Description,
				"type":        typeRef(op.h.schema, f.Type),
			})
		}
		t["fields"] = fields
	}
	return op.value(ctx, field.SelectionSet, t, 0)
}

// typeRef describes a (possibly wrapped) type as introspection does, eg [Issue!]! is
// NON_NULL of LIST of NON_NULL of Issue
func typeRef(schema *ast.Schema, t *ast.Type) map[string]interface{} {
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return map[string]interface{}{"kind": "NON_NULL", "name": nil, "ofType": typeRef(schema, &inner)}
	}
	if t.Elem != nil {
		return map[string]interface{}{"kind": "LIST", "name": nil, "ofType": typeRef(schema, t.Elem)}
	}
	kind := "SCALAR"
	if def := schema.Types[t.NamedType]; def != nil {
		kind = string(def.Kind)
	}
	return map[string]interface{}{"kind": kind, "name": t.NamedType, "ofType": nil}
}
