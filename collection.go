package linearql

// collection.go has the helpers the managers use to run queries and decode the results

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andrewwphillips/linearql/internal/unwrap"
)

// maxCollectPages stops collect looping forever if the server keeps returning the same page
const maxCollectPages = 1000

// lookup runs a query and returns the value at path (field names) in the result.
// ErrNotFound is returned if the value is missing or null.
func (c *Client) lookup(ctx context.Context, query string, variables map[string]interface{}, path ...string,
) (interface{}, error) {
	data, err := c.Execute(ctx, query, variables)
	if err != nil {
		return nil, err
	}
	v, ok := unwrap.Lookup(data, path)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, unwrap.Path(path))
	}
	return v, nil
}

// get runs a query and decodes the object at path into a T
func get[T any](ctx context.Context, c *Client, query string, variables map[string]interface{}, path ...string) (*T, error) {
	v, err := c.lookup(ctx, query, variables, path...)
	if err != nil {
		return nil, err
	}
	r := new(T)
	if err := decode(v, r); err != nil {
		return nil, fmt.Errorf("%w decoding %s", err, unwrap.Path(path))
	}
	return r, nil
}

// collect gets all the nodes of the connection at path.  The query should take a "$cursor"
// variable as the "after" argument of the connection.  Normally the connection is complete
// (having been unwrapped by Execute) but if not (unwrapping disabled or a page failed) then
// the remaining pages are requested here.
func collect[T any](ctx context.Context, c *Client, query string, variables map[string]interface{}, path ...string,
) ([]T, error) {
	vars := unwrap.CloneVariables(variables)
	var r []T
	for page := 0; ; page++ {
		v, err := c.lookup(ctx, query, vars, path...)
		if err != nil {
			return nil, err
		}
		var conn Connection[T]
		if err := decode(v, &conn); err != nil {
			return nil, fmt.Errorf("%w decoding %s", err, unwrap.Path(path))
		}
		r = append(r, conn.Nodes...)

		if !conn.PageInfo.HasNextPage || conn.PageInfo.EndCursor == nil || *conn.PageInfo.EndCursor == "" {
			return r, nil
		}
		if page >= maxCollectPages {
			return r, fmt.Errorf("%w: too many pages of %s", ErrOperationFailed, unwrap.Path(path))
		}
		vars["cursor"] = *conn.PageInfo.EndCursor
	}
}

// mutate runs a mutation and returns its result object (named field), checking "success"
func (c *Client) mutate(ctx context.Context, mutation string, variables map[string]interface{}, field string,
) (map[string]interface{}, error) {
	data, err := c.Execute(ctx, mutation, variables)
	if err != nil {
		return nil, err
	}
	r, ok := data[field].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: no result from %s", ErrOperationFailed, field)
	}
	if success, ok := r["success"].(bool); ok && !success {
		return nil, fmt.Errorf("%w: %s was not successful", ErrOperationFailed, field)
	}
	return r, nil
}

// decode converts a decoded JSON value to a Go type.  Connections are replaced by their nodes,
// so that a connection field can be decoded into a slice.
func decode(v interface{}, out interface{}) error {
	buf, err := json.Marshal(flatten(v))
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, out)
}

// flatten returns a copy of v with every connection (except the root) replaced by its nodes
func flatten(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		r := make(map[string]interface{}, len(v))
		for key, child := range v {
			if unwrap.IsConnection(child) {
				child = child.(map[string]interface{})["nodes"]
			}
			r[key] = flatten(child)
		}
		return r
	case []interface{}:
		r := make([]interface{}, len(v))
		for i, child := range v {
			r[i] = flatten(child)
		}
		return r
	}
	return v
}
