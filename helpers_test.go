package linearql_test

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/andrewwphillips/linearql"
)

type (
	// JsonObject is what json.Unmarshaler produces when it decodes a JSON object
	JsonObject = map[string]interface{}
	JsonList   = []interface{}

	// fake is an Executor that answers requests by operation name (eg "Teams" for "query Teams(...")
	fake struct {
		mu       sync.Mutex
		calls    []call
		handlers map[string]func(vars JsonObject) (JsonObject, error)
	}

	call struct {
		op   string
		vars JsonObject
	}
)

var opRegex = regexp.MustCompile(`^\s*(?:query|mutation)\s+(\w+)`)

func newFake() *fake {
	return &fake{handlers: make(map[string]func(vars JsonObject) (JsonObject, error))}
}

// on sets the handler for an operation
func (f *fake) on(op string, h func(vars JsonObject) (JsonObject, error)) *fake {
	f.handlers[op] = h
	return f
}

// reply makes an operation always return the JSON data
func (f *fake) reply(op, data string) *fake {
	return f.on(op, func(JsonObject) (JsonObject, error) { return obj(data), nil })
}

func (f *fake) Execute(_ context.Context, query string, vars map[string]interface{}) (map[string]interface{}, error) {
	m := opRegex.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("no operation name in %q", query)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{op: m[1], vars: vars})
	h, ok := f.handlers[m[1]]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unexpected operation %s", m[1])
	}
	return h(vars)
}

// count returns how many times op was requested
func (f *fake) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

// last returns the variables of the most recent request of op
func (f *fake) last(op string) JsonObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].op == op {
			return f.calls[i].vars
		}
	}
	return nil
}

// paged returns a handler giving successive pages of the connection at field, chosen by the "cursor" variable.
// Pages are JSON lists of nodes; the cursor of page n is "c<n>".
func paged(field string, pages ...string) func(JsonObject) (JsonObject, error) {
	return func(vars JsonObject) (JsonObject, error) {
		n := 0
		if cursor, ok := vars["cursor"].(string); ok {
			if _, err := fmt.Sscanf(cursor, "c%d", &n); err != nil {
				return nil, err
			}
		}
		if n >= len(pages) {
			return nil, fmt.Errorf("no page %d", n)
		}
		hasNext := n+1 < len(pages)
		return obj(fmt.Sprintf(`{%q: {"nodes": %s, "pageInfo": {"hasNextPage": %v, "endCursor": "c%d"}}}`,
			field, pages[n], hasNext, n+1)), nil
	}
}

// obj decodes a JSON object
func obj(s string) JsonObject {
	var r JsonObject
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		panic(fmt.Sprintf("bad JSON in test: %v: %s", err, s))
	}
	return r
}

// newClient creates a client that sends requests to f
func newClient(t *testing.T, f *fake) *linearql.Client {
	t.Helper()
	c, err := linearql.New("", linearql.WithExecutor(f))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}
