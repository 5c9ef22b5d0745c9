package handler

// execute.go handles the execution of a GraphQL request

import (
	"context"
	"errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

type (
	// gqlRequest decodes and handles each GraphQL request
	gqlRequest struct {
		h *Handler

		// These are decoded from the http request body (JSON)
		Query         string
		OperationName string
		Variables     map[string]interface{}
	}

	// gqlResult contains the result (or errors) of the request to be encoded in JSON
	gqlResult struct {
		Data   interface{}   `json:"data"`
		Errors gqlerror.List `json:"errors,omitempty"`
	}
)

// Execute parses and runs the request and returns the result
func (g *gqlRequest) Execute(ctx context.Context) (r gqlResult) {
	g.h.requests.Add(1)

	// First analyse the query string - it is not validated against a schema, unknown fields are
	// errors when they are resolved
	query, err := parser.ParseQuery(&ast.Source{
		Name:  "query",
		Input: g.Query,
	})
	if err != nil {
		r.Errors = append(r.Errors, toGQLError(err))
		return
	}

	operation, gqlErr := g.operation(query)
	if gqlErr != nil {
		r.Errors = append(r.Errors, gqlErr)
		return
	}
	if g.h.fail != nil {
		if err := g.h.fail(operation.Name, g.Variables); err != nil {
			r.Errors = append(r.Errors, gqlerror.Errorf("%s", err.Error()))
			return
		}
	}
	g.h.logger.Debug().Str("operation", operation.Name).Interface("variables", g.Variables).Msg("request")

	op := gqlOperation{h: g.h, doc: query, variables: g.Variables}
	switch operation.Operation {
	case ast.Query:
		g.h.mu.RLock()
		defer g.h.mu.RUnlock()
		r.Data, r.Errors = op.query(ctx, operation.SelectionSet)
	case ast.Mutation:
		g.h.mu.Lock()
		defer g.h.mu.Unlock()
		r.Data, r.Errors = op.mutate(ctx, operation.SelectionSet)
	default:
		r.Errors = append(r.Errors, gqlerror.Errorf("%s operations are not supported", operation.Operation))
	}
	return
}

// operation finds the operation to execute, which must be named if the query has more than one
func (g *gqlRequest) operation(query *ast.QueryDocument) (*ast.OperationDefinition, *gqlerror.Error) {
	if g.OperationName != "" {
		if op := query.Operations.ForName(g.OperationName); op != nil {
			return op, nil
		}
		return nil, gqlerror.Errorf("Unknown operation named %q", g.OperationName)
	}
	switch len(query.Operations) {
	case 0:
		return nil, gqlerror.Errorf("no operation in query")
	case 1:
		return query.Operations[0], nil
	}
	return nil, gqlerror.Errorf("operation name is required for a query with more than one operation")
}

func toGQLError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}
	return gqlerror.Errorf("%s", err.Error())
}
