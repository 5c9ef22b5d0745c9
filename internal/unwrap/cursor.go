package unwrap

// cursor.go decides which variables carry the cursor when asking for the next page of a connection

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// cursorArgument is the connection argument that takes the cursor of the previous page
const cursorArgument = "after"

// cursorVariables parses the query and returns, for each field whose "after" argument is a
// variable, the variable name keyed by the field's response path (see Path.Fields).
// A query that does not parse simply yields an empty map.
func cursorVariables(query string) map[string]string {
	r := make(map[string]string)
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: query})
	if err != nil || doc == nil {
		return r
	}
	for _, op := range doc.Operations {
		collectCursors(doc, op.SelectionSet, nil, r, 0)
	}
	return r
}

// collectCursors walks a selection set recording fields with an "after: $var" argument.
// depth just stops runaway recursion through (invalid) self-referencing fragments.
func collectCursors(doc *ast.QueryDocument, set ast.SelectionSet, path Path, r map[string]string, depth int) {
	if depth > 64 {
		return
	}
	for _, selection := range set {
		switch s := selection.(type) {
		case *ast.Field:
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			fieldPath := path.Append(key)
			if arg := s.Arguments.ForName(cursorArgument); arg != nil && arg.Value != nil && arg.Value.Kind == ast.Variable {
				if _, ok := r[fieldPath.String()]; !ok {
					r[fieldPath.String()] = arg.Value.Raw
				}
			}
			collectCursors(doc, s.SelectionSet, fieldPath, r, depth+1)

		case *ast.InlineFragment:
			collectCursors(doc, s.SelectionSet, path, r, depth+1)

		case *ast.FragmentSpread:
			if def := doc.Fragments.ForName(s.Name); def != nil {
				collectCursors(doc, def.SelectionSet, path, r, depth+1)
			}
		}
	}
}

// nextPageVariables returns a copy of vars with the cursor set for the connection at path.
// The cursor always goes in the conventional guesses ("<field>Cursor", "cursor" and "after")
// plus the variable declared in the query, if found. If onlyDeclared is set and the query does
// declare a variable for this field then only that one is set.
func nextPageVariables(vars map[string]interface{}, path Path, cursor string, declared map[string]string, onlyDeclared bool) map[string]interface{} {
	r := CloneVariables(vars)
	name, found := declared[path.Fields().String()]
	if found {
		r[name] = cursor
		if onlyDeclared {
			return r
		}
	}
	if last := path.Last(); last != "" {
		r[last+"Cursor"] = cursor
	}
	r["cursor"] = cursor
	r["after"] = cursor
	return r
}
