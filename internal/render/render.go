// Package render encodes GraphQL results as JSON with the fields in the order they were
// requested in the query (Go maps forget the order of the response).
package render

// render.go orders the decoded response using the selection sets of the query

import (
	"encoding/json"
	"sort"

	"github.com/dolmen-go/jsonmap"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// selection is the tree of response keys (alias or field name) requested by a query
type selection struct {
	order    []string
	children map[string]*selection
}

// maxFragmentDepth stops runaway recursion through (invalid) self-referencing fragments
const maxFragmentDepth = 64

// parse returns the selection tree of all operations in the query, or nil if it does not parse
func parse(query string) *selection {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil || doc == nil {
		return nil
	}
	r := &selection{}
	for _, op := range doc.Operations {
		r.add(doc, op.SelectionSet, 0)
	}
	return r
}

func (s *selection) add(doc *ast.QueryDocument, set ast.SelectionSet, depth int) {
	if depth > maxFragmentDepth {
		return
	}
	for _, sel := range set {
		switch sel := sel.(type) {
		case *ast.Field:
			key := sel.Alias
			if key == "" {
				key = sel.Name
			}
			child := s.child(key)
			if child == nil {
				if s.children == nil {
					s.children = make(map[string]*selection)
				}
				child = &selection{}
				s.children[key] = child
				s.order = append(s.order, key)
			}
			child.add(doc, sel.SelectionSet, depth+1)
		case *ast.InlineFragment:
			s.add(doc, sel.SelectionSet, depth+1)
		case *ast.FragmentSpread:
			if def := doc.Fragments.ForName(sel.Name); def != nil {
				s.add(doc, def.SelectionSet, depth+1)
			}
		}
	}
}

func (s *selection) child(key string) *selection {
	if s == nil {
		return nil
	}
	return s.children[key]
}

// Ordered returns a copy of a decoded response where every JSON object is a jsonmap.Ordered
// with its keys in query order.  Keys not found in the query follow, sorted.
func Ordered(data interface{}, query string) interface{} {
	return order(data, parse(query))
}

func order(v interface{}, s *selection) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		r := jsonmap.Ordered{
			Data:  make(map[string]interface{}, len(v)),
			Order: make([]string, 0, len(v)),
		}
		if s != nil {
			for _, key := range s.order {
				if _, ok := v[key]; ok {
					r.Order = append(r.Order, key)
				}
			}
		}
		var rest []string
		for key := range v {
			if s.child(key) == nil {
				rest = append(rest, key)
			}
		}
		sort.Strings(rest)
		r.Order = append(r.Order, rest...)

		for _, key := range r.Order {
			r.Data[key] = order(v[key], s.child(key))
		}
		return r
	case []interface{}:
		r := make([]interface{}, len(v))
		for i, elt := range v {
			r[i] = order(elt, s)
		}
		return r
	}
	return v
}

// JSON encodes data with object keys in query order.  If indent is not empty the output is indented.
func JSON(data interface{}, query, indent string) ([]byte, error) {
	ordered := Ordered(data, query)
	if indent == "" {
		return json.Marshal(ordered)
	}
	return json.MarshalIndent(ordered, "", indent)
}
