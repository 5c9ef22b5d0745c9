package handler

// result.go resolves the selections of a query against the data, producing the result as
// nested jsonmap.Ordered (so fields are returned in the order they were requested)

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dolmen-go/jsonmap"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	// gqlOperation has the info needed to resolve the selections of one operation
	gqlOperation struct {
		h         *Handler
		doc       *ast.QueryDocument // for fragment definitions
		variables map[string]interface{}
	}

	// resolver returns the value of a field of an object
	resolver func(ctx context.Context, field *ast.Field) (interface{}, error)
)

// maxDepth stops runaway recursion through (invalid) self-referencing fragments
const maxDepth = 64

// query resolves the root fields of a query.  A root field that fails is null (with an error) but
// does not stop the other fields being resolved.
func (op *gqlOperation) query(ctx context.Context, set ast.SelectionSet) (interface{}, gqlerror.List) {
	var errs gqlerror.List
	r, err := op.selections(ctx, set, "Query", func(ctx context.Context, field *ast.Field) (interface{}, error) {
		v, err := op.root(ctx, field)
		if err != nil {
			errs = append(errs, &gqlerror.Error{
				Message: err.Error(),
				Path:    ast.Path{ast.PathName(responseKey(field))},
			})
			return nil, nil
		}
		return v, nil
	}, 0)
	if err != nil {
		return nil, append(errs, toGQLError(err))
	}
	return r, errs
}

// root resolves a root query field, eg teams(...) or issue(id: "ENG-1")
func (op *gqlOperation) root(ctx context.Context, field *ast.Field) (interface{}, error) {
	args, err := op.arguments(field)
	if err != nil {
		return nil, err
	}
	switch field.Name {
	case "__type":
		return op.introspectType(ctx, field, args)
	case "organization":
		if orgs := op.h.data["organization"]; len(orgs) > 0 {
			return op.object(ctx, field.SelectionSet, "organization", orgs[0], 0)
		}
		return nil, nil
	case "viewer":
		for _, user := range op.h.data["users"] {
			if user["isMe"] == true {
				return op.object(ctx, field.SelectionSet, "users", user, 0)
			}
		}
		return nil, errors.New("Authentication required, not authenticated")
	}

	if _, ok := types[field.Name]; ok {
		objects, err := op.filter(op.h.data[field.Name], args["filter"])
		if err != nil {
			return nil, err
		}
		return op.connection(ctx, field, args, field.Name, objects, 0)
	}
	if collection, ok := singular(field.Name); ok {
		id, _ := args["id"].(string)
		if obj := op.h.data.find(collection, id); obj != nil {
			return op.object(ctx, field.SelectionSet, collection, obj, 0)
		}
		return nil, nil // not found
	}
	return nil, fmt.Errorf("Cannot query field %q on type \"Query\"", field.Name)
}

// selections resolves each field of a selection set (expanding fragments) using resolve
func (op *gqlOperation) selections(ctx context.Context, set ast.SelectionSet, typeName string, resolve resolver, depth int,
) (jsonmap.Ordered, error) {
	r := jsonmap.Ordered{
		Data:  make(map[string]interface{}),
		Order: make([]string, 0, len(set)),
	}
	if depth > maxDepth {
		return r, errors.New("selections nested too deeply")
	}
	if err := ctx.Err(); err != nil {
		return r, err
	}
	for _, s := range set {
		switch s := s.(type) {
		case *ast.Field:
			var v interface{}
			if s.Name == "__typename" {
				v = typeName
			} else {
				var err error
				if v, err = resolve(ctx, s); err != nil {
					return r, err
				}
			}
			key := responseKey(s)
			if _, ok := r.Data[key]; !ok {
				r.Order = append(r.Order, key) // only append to order if not already in the map
			}
			r.Data[key] = v

		case *ast.InlineFragment:
			if s.TypeCondition != "" && s.TypeCondition != typeName {
				continue
			}
			if err := op.merge(ctx, &r, s.SelectionSet, typeName, resolve, depth); err != nil {
				return r, err
			}

		case *ast.FragmentSpread:
			def := op.doc.Fragments.ForName(s.Name)
			if def == nil {
				return r, fmt.Errorf("Unknown fragment %q", s.Name)
			}
			if def.TypeCondition != "" && def.TypeCondition != typeName {
				continue
			}
			if err := op.merge(ctx, &r, def.SelectionSet, typeName, resolve, depth); err != nil {
				return r, err
			}
		}
	}
	return r, nil
}

// merge adds the fields of a fragment to r
func (op *gqlOperation) merge(ctx context.Context, r *jsonmap.Ordered, set ast.SelectionSet, typeName string,
	resolve resolver, depth int,
) error {
	fragment, err := op.selections(ctx, set, typeName, resolve, depth+1)
	if err != nil {
		return err
	}
	for _, key := range fragment.Order {
		if _, ok := r.Data[key]; !ok {
			r.Order = append(r.Order, key)
		}
		r.Data[key] = fragment.Data[key]
	}
	return nil
}

// object resolves the selections on an object of a collection
func (op *gqlOperation) object(ctx context.Context, set ast.SelectionSet, collection string, obj Object, depth int,
) (interface{}, error) {
	typeName := typeOf(collection)
	return op.selections(ctx, set, typeName, func(ctx context.Context, field *ast.Field) (interface{}, error) {
		return op.field(ctx, field, typeName, obj, depth+1)
	}, depth)
}

// field resolves one field of an object:
//   - a connection (see links) gives a page of the related objects
//   - a reference (eg "team" when the object has a "teamId") gives the related object
//   - otherwise the value stored in the object (null if missing)
func (op *gqlOperation) field(ctx context.Context, field *ast.Field, typeName string, obj Object, depth int,
) (interface{}, error) {
	if l, ok := links[typeName][field.Name]; ok {
		if _, stored := obj[field.Name]; !stored {
			args, err := op.arguments(field)
			if err != nil {
				return nil, err
			}
			objects, err := op.filter(op.h.data.children(obj, l), args["filter"])
			if err != nil {
				return nil, err
			}
			return op.connection(ctx, field, args, l.collection, objects, depth)
		}
	}
	if collection, ok := refs[field.Name]; ok && len(field.SelectionSet) > 0 {
		if id, ok := obj[field.Name+"Id"].(string); ok {
			if related := op.h.data.find(collection, id); related != nil {
				return op.object(ctx, field.SelectionSet, collection, related, depth)
			}
			return nil, nil
		}
	}
	return op.value(ctx, field.SelectionSet, obj[field.Name], depth)
}

// value resolves selections on a stored value.  Objects without a selection set (eg JSON
// metadata) are returned whole.
func (op *gqlOperation) value(ctx context.Context, set ast.SelectionSet, v interface{}, depth int) (interface{}, error) {
	switch v := v.(type) {
	case map[string]interface{}:
		if len(set) == 0 {
			return v, nil
		}
		return op.selections(ctx, set, "", func(ctx context.Context, field *ast.Field) (interface{}, error) {
			return op.value(ctx, field.SelectionSet, v[field.Name], depth+1)
		}, depth)
	case []interface{}:
		r := make([]interface{}, len(v))
		for i, elt := range v {
			var err error
			if r[i], err = op.value(ctx, set, elt, depth); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
	return v, nil
}

// connection returns one page of objects as a connection, ie {nodes, pageInfo}.  The page
// starts after the object whose ID is the "after" argument and has at most "first" nodes.
func (op *gqlOperation) connection(ctx context.Context, field *ast.Field, args map[string]interface{},
	collection string, objects []Object, depth int,
) (interface{}, error) {
	start := 0
	if after, ok := args["after"].(string); ok && after != "" {
		start = -1
		for i, obj := range objects {
			if obj["id"] == after {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, fmt.Errorf("Argument Validation Error: invalid cursor %q", after)
		}
	}
	n := op.h.pageSize
	if first, ok := toInt(args["first"]); ok {
		if first < 0 {
			return nil, errors.New("Argument Validation Error: first must be positive")
		}
		n = min(n, first)
	}
	end := min(start+n, len(objects))
	page := objects[start:end]

	var endCursor interface{}
	if len(page) > 0 {
		endCursor = page[len(page)-1]["id"]
	}
	info := Object{"hasNextPage": end < len(objects), "hasPreviousPage": start > 0, "endCursor": endCursor}
	if len(page) > 0 {
		info["startCursor"] = page[0]["id"]
	}

	return op.selections(ctx, field.SelectionSet, typeOf(collection)+"Connection",
		func(ctx context.Context, f *ast.Field) (interface{}, error) {
			switch f.Name {
			case "nodes":
				nodes := make([]interface{}, len(page))
				for i, obj := range page {
					var err error
					if nodes[i], err = op.object(ctx, f.SelectionSet, collection, obj, depth+1); err != nil {
						return nil, err
					}
				}
				return nodes, nil
			case "edges":
				edges := make([]interface{}, len(page))
				for i, obj := range page {
					node, err := op.object(ctx, edgeNode(f), collection, obj, depth+1)
					if err != nil {
						return nil, err
					}
					edges[i] = map[string]interface{}{"cursor": obj["id"], "node": node}
				}
				return op.value(ctx, f.SelectionSet, edges, depth+1)
			case "pageInfo":
				return op.value(ctx, f.SelectionSet, info, depth+1)
			}
			return nil, fmt.Errorf("Cannot query field %q on type \"%sConnection\"", f.Name, typeOf(collection))
		}, depth)
}

// edgeNode returns the selection set of "node" within "edges { cursor node { ... } }"
func edgeNode(edges *ast.Field) ast.SelectionSet {
	for _, s := range edges.SelectionSet {
		if f, ok := s.(*ast.Field); ok && f.Name == "node" {
			return f.SelectionSet
		}
	}
	return nil
}

// arguments gets the values of the arguments of a field, substituting variables
func (op *gqlOperation) arguments(field *ast.Field) (map[string]interface{}, error) {
	r := make(map[string]interface{}, len(field.Arguments))
	for _, arg := range field.Arguments {
		v, err := arg.Value.Value(op.variables)
		if err != nil {
			return nil, fmt.Errorf("%w in argument %q of %q", err, arg.Name, field.Name)
		}
		r[arg.Name] = v
	}
	return r, nil
}

func responseKey(field *ast.Field) string {
	if field.Alias != "" {
		return field.Alias
	}
	return field.Name
}

// toInt converts a number (from a literal or a JSON variable) to an int
func toInt(v interface{}) (int, bool) {
	switch v := v.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	}
	return 0, false
}
