package unwrap_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql/internal/unwrap"
)

type (
	// JsonObject is what json.Unmarshal produces for a JSON object.  It's an alias (not a type definition)
	// so that reflect.DeepEqual works.
	JsonObject = map[string]interface{}
	JsonList   = []interface{}
)

// conn makes a connection object with the given page info and nodes
func conn(hasNext bool, cursor interface{}, nodes ...interface{}) JsonObject {
	if nodes == nil {
		nodes = JsonList{}
	}
	return JsonObject{"nodes": nodes, "pageInfo": JsonObject{"hasNextPage": hasNext, "endCursor": cursor}}
}

func node(id string) JsonObject { return JsonObject{"id": id} }

// pager is a fake server - it returns the canned response (or error) for the "after" cursor
type pager struct {
	jitter    bool // random delay before each response
	mu        sync.Mutex
	responses map[string]interface{} // cursor -> JsonObject or error
	calls     []JsonObject           // variables of each request
}

func (p *pager) Execute(_ context.Context, _ string, vars map[string]interface{}) (map[string]interface{}, error) {
	if p.jitter {
		time.Sleep(time.Duration(rand.Intn(2000)) * time.Microsecond)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, vars)
	cursor, _ := vars["after"].(string)
	switch r := p.responses[cursor].(type) {
	case JsonObject:
		return unwrap.Clone(r).(JsonObject), nil
	case error:
		return nil, r
	}
	return nil, fmt.Errorf("unexpected cursor %q", cursor)
}

var errServer = errors.New("server unavailable")

func TestUnwrap(t *testing.T) {
	tests := map[string]struct {
		cfg         unwrap.Config
		data        interface{}
		responses   map[string]interface{}
		expected    interface{}
		calls       int
		diagnostics []string // "kind path pages"
	}{
		"scalar": {
			data:     "hello",
			expected: "hello",
		},
		"nil": {
			data:     nil,
			expected: nil,
		},
		"list_root": {
			data:     JsonList{conn(true, "c1", node("a"))},
			expected: JsonList{conn(true, "c1", node("a"))},
		},
		"no_connection": {
			data:     JsonObject{"viewer": JsonObject{"name": "Al", "teams": JsonList{"x", "y"}}},
			expected: JsonObject{"viewer": JsonObject{"name": "Al", "teams": JsonList{"x", "y"}}},
		},
		"single_page": {
			data:     JsonObject{"items": conn(false, "c1", node("a"))},
			expected: JsonObject{"items": conn(false, "c1", node("a"))},
		},
		"no_cursor": {
			data:     JsonObject{"items": conn(true, nil, node("a"))},
			expected: JsonObject{"items": conn(true, nil, node("a"))},
		},
		"two_pages": {
			data:      JsonObject{"items": conn(true, "c1", node("a"))},
			responses: map[string]interface{}{"c1": JsonObject{"items": conn(false, nil, node("b"))}},
			expected:  JsonObject{"items": conn(false, nil, node("a"), node("b"))},
			calls:     1,
		},
		"three_pages": {
			data: JsonObject{"items": conn(true, "c1", node("a"))},
			responses: map[string]interface{}{
				"c1": JsonObject{"items": conn(true, "c2", node("b"))},
				"c2": JsonObject{"items": conn(false, "c3", node("c"), node("d"))},
			},
			expected: JsonObject{"items": conn(false, "c3", node("a"), node("b"), node("c"), node("d"))},
			calls:    2,
		},
		"root_connection": {
			data:      conn(true, "c1", node("a")),
			responses: map[string]interface{}{"c1": conn(false, nil, node("b"))},
			expected:  conn(false, nil, node("a"), node("b")),
			calls:     1,
		},
		"extra_keys": {
			data: JsonObject{"items": JsonObject{
				"totalCount": 2.0,
				"nodes":      JsonList{node("a")},
				"pageInfo":   JsonObject{"hasNextPage": true, "endCursor": "c1", "startCursor": "s0"},
			}},
			responses: map[string]interface{}{"c1": JsonObject{"items": JsonObject{
				"totalCount": 2.0,
				"nodes":      JsonList{node("b")},
				"pageInfo":   JsonObject{"hasNextPage": false, "endCursor": "c2", "startCursor": "s1"},
			}}},
			expected: JsonObject{"items": JsonObject{
				"totalCount": 2.0,
				"nodes":      JsonList{node("a"), node("b")},
				"pageInfo":   JsonObject{"hasNextPage": false, "endCursor": "c2", "startCursor": "s0"},
			}},
			calls: 1,
		},
		"nested_in_nodes": {
			data: JsonObject{"teams": conn(false, nil,
				JsonObject{"name": "T1", "issues": conn(true, "i0", node("x"))},
				JsonObject{"name": "T2", "issues": conn(true, "i1", node("y"))},
			)},
			responses: map[string]interface{}{
				"i0": JsonObject{"teams": conn(false, nil, JsonObject{"issues": conn(false, nil, node("x2"))})},
				"i1": JsonObject{"teams": conn(false, nil, JsonObject{}, JsonObject{"issues": conn(false, nil, node("y2"))})},
			},
			expected: JsonObject{"teams": conn(false, nil,
				JsonObject{"name": "T1", "issues": conn(false, nil, node("x"), node("x2"))},
				JsonObject{"name": "T2", "issues": conn(false, nil, node("y"), node("y2"))},
			)},
			calls: 2,
		},
		"fetch_error": {
			data: JsonObject{"items": conn(true, "c1", node("a"))},
			responses: map[string]interface{}{
				"c1": JsonObject{"items": conn(true, "c2", node("b"))},
				"c2": errServer,
			},
			expected:    JsonObject{"items": conn(true, "c2", node("a"), node("b"))},
			calls:       2,
			diagnostics: []string{"fetch_failed items 1"},
		},
		"shape_mismatch": {
			data:        JsonObject{"items": conn(true, "c1", node("a"))},
			responses:   map[string]interface{}{"c1": JsonObject{"other": conn(false, nil, node("b"))}},
			expected:    JsonObject{"items": conn(true, "c1", node("a"))},
			calls:       1,
			diagnostics: []string{"shape_mismatch items 0"},
		},
		"not_a_connection": {
			data:        JsonObject{"items": conn(true, "c1", node("a"))},
			responses:   map[string]interface{}{"c1": JsonObject{"items": JsonObject{"nodes": JsonList{node("b")}}}},
			expected:    JsonObject{"items": conn(true, "c1", node("a"))},
			calls:       1,
			diagnostics: []string{"shape_mismatch items 0"},
		},
		"stalled": {
			data:        JsonObject{"items": conn(true, "c1", node("a"))},
			responses:   map[string]interface{}{"c1": JsonObject{"items": conn(true, "c1", node("b"))}},
			expected:    JsonObject{"items": conn(true, "c1", node("a"), node("b"))},
			calls:       1,
			diagnostics: []string{"cursor_stalled items 1"},
		},
		"page_limit": {
			cfg:  unwrap.Config{MaxPages: 2},
			data: JsonObject{"items": conn(true, "c1", node("a"))},
			responses: map[string]interface{}{
				"c1": JsonObject{"items": conn(true, "c2", node("b"))},
				"c2": JsonObject{"items": conn(true, "c3", node("c"))},
				"c3": JsonObject{"items": conn(false, nil, node("d"))},
			},
			expected:    JsonObject{"items": conn(true, "c3", node("a"), node("b"), node("c"))},
			calls:       2,
			diagnostics: []string{"page_limit items 2"},
		},
		"depth": {
			cfg:         unwrap.Config{MaxDepth: 1},
			data:        JsonObject{"a": JsonObject{"b": conn(true, "c1", node("x"))}},
			expected:    JsonObject{"a": JsonObject{"b": conn(true, "c1", node("x"))}},
			diagnostics: []string{"depth_exceeded a.b 0"},
		},
		"depth_list": {
			// list elements are at the same depth as the list
			cfg:       unwrap.Config{MaxDepth: 1},
			data:      JsonObject{"list": JsonList{conn(true, "c1", node("a"))}},
			responses: map[string]interface{}{"c1": JsonObject{"list": JsonList{conn(false, nil, node("b"))}}},
			expected:  JsonObject{"list": JsonList{conn(false, nil, node("a"), node("b"))}},
			calls:     1,
		},
		"depth_nothing_pending": {
			cfg:      unwrap.Config{MaxDepth: 1},
			data:     JsonObject{"a": JsonObject{"b": JsonObject{"c": conn(false, nil, node("x"))}}},
			expected: JsonObject{"a": JsonObject{"b": JsonObject{"c": conn(false, nil, node("x"))}}},
		},
		"depth_deeper": {
			// only the top of the skipped branch is reported
			cfg:         unwrap.Config{MaxDepth: 1},
			data:        JsonObject{"a": JsonObject{"b": JsonObject{"c": conn(true, "c1", node("x"))}}},
			expected:    JsonObject{"a": JsonObject{"b": JsonObject{"c": conn(true, "c1", node("x"))}}},
			diagnostics: []string{"depth_exceeded a.b 0"},
		},
		"default_depth": {
			data: JsonObject{"a": JsonObject{"b": JsonObject{"c": JsonObject{"d": JsonObject{"e": JsonObject{
				"f": conn(true, "c1", node("x")),
			}}}}}},
			expected: JsonObject{"a": JsonObject{"b": JsonObject{"c": JsonObject{"d": JsonObject{"e": JsonObject{
				"f": conn(true, "c1", node("x")),
			}}}}}},
			diagnostics: []string{"depth_exceeded a.b.c.d.e.f 0"},
		},
		"siblings": {
			data: JsonObject{
				"b": conn(true, "b1", node("b")),
				"a": conn(true, "a1", node("a")),
				"c": conn(true, "c1", node("c")),
			},
			responses: map[string]interface{}{
				"a1": JsonObject{"a": conn(false, nil, node("a2"))},
				"b1": errServer,
				"c1": JsonObject{"x": 1.0},
			},
			expected: JsonObject{
				"a": conn(false, nil, node("a"), node("a2")),
				"b": conn(true, "b1", node("b")),
				"c": conn(true, "c1", node("c")),
			},
			calls:       3,
			diagnostics: []string{"fetch_failed b 0", "shape_mismatch c 0"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			p := &pager{responses: test.responses}
			test.cfg.Logger = zerolog.Nop()
			u := unwrap.New(p, test.cfg)

			got, diags := u.Unwrap(context.Background(), test.data, "{ items { nodes { id } } }", nil)
			Assertf(t, reflect.DeepEqual(got, test.expected), "Result %12s: expected %v got %v", name, test.expected, got)
			Assertf(t, len(p.calls) == test.calls, "Calls  %12s: expected %d got %d", name, test.calls, len(p.calls))

			var gotDiags []string
			for _, d := range diags {
				gotDiags = append(gotDiags, fmt.Sprintf("%s %s %d", d.Kind, d.Path, d.Pages))
			}
			Assertf(t, reflect.DeepEqual(gotDiags, test.diagnostics), "Diags  %12s: expected %q got %q", name, test.diagnostics, gotDiags)
		})
	}
}

// TestExample checks the cursor variables sent and that the caller's data and variables are untouched
func TestExample(t *testing.T) {
	data := JsonObject{"items": conn(true, "c1", node("a"))}
	vars := JsonObject{"first": 50.0, "filter": JsonObject{"state": "open"}}
	p := &pager{responses: map[string]interface{}{"c1": JsonObject{"items": conn(false, nil, node("b"))}}}
	u := unwrap.New(p, unwrap.Config{Logger: zerolog.Nop()})

	got, diags := u.Unwrap(context.Background(), data, "query { items { nodes { id } pageInfo { hasNextPage endCursor } } }", vars)

	expected := JsonObject{"items": conn(false, nil, node("a"), node("b"))}
	Assertf(t, reflect.DeepEqual(got, expected), "expected %v got %v", expected, got)
	Assertf(t, len(diags) == 0, "expected no diagnostics got %v", diags)
	Assertf(t, reflect.DeepEqual(data, JsonObject{"items": conn(true, "c1", node("a"))}), "input data was modified: %v", data)
	Assertf(t, reflect.DeepEqual(vars, JsonObject{"first": 50.0, "filter": JsonObject{"state": "open"}}), "input variables were modified: %v", vars)

	if len(p.calls) != 1 {
		t.Fatalf("expected 1 call got %d", len(p.calls))
	}
	sent := p.calls[0]
	for _, key := range []string{"itemsCursor", "cursor", "after"} {
		Assertf(t, sent[key] == "c1", "variable %q: expected %q got %v", key, "c1", sent[key])
	}
	Assertf(t, sent["first"] == 50.0, "variable first: expected 50 got %v", sent["first"])
	Assertf(t, reflect.DeepEqual(sent["filter"], JsonObject{"state": "open"}), "variable filter: got %v", sent["filter"])
}

// TestRepeatable checks that a second call on the same Unwrapper is not affected by the first
func TestRepeatable(t *testing.T) {
	data := JsonObject{"items": conn(true, "c1", node("a"))}
	p := &pager{responses: map[string]interface{}{"c1": JsonObject{"items": conn(false, nil, node("b"))}}}
	u := unwrap.New(p, unwrap.Config{Logger: zerolog.Nop()})

	first, _ := u.Unwrap(context.Background(), data, "", nil)
	second, _ := u.Unwrap(context.Background(), data, "", nil)
	Assertf(t, len(p.calls) == 2, "expected 2 calls got %d", len(p.calls))
	Assertf(t, reflect.DeepEqual(first, second), "expected same results got %v and %v", first, second)
}

// TestAppendedNodesCopied checks that nodes merged from a page are not shared with the executor's response
func TestAppendedNodesCopied(t *testing.T) {
	page := JsonObject{"items": conn(false, nil, node("b"))}
	exec := unwrap.ExecutorFunc(func(context.Context, string, map[string]interface{}) (map[string]interface{}, error) {
		return page, nil
	})
	u := unwrap.New(exec, unwrap.Config{Logger: zerolog.Nop()})

	got, _ := u.Unwrap(context.Background(), JsonObject{"items": conn(true, "c1", node("a"))}, "", nil)
	page["items"].(JsonObject)["nodes"].(JsonList)[0].(JsonObject)["id"] = "changed"

	nodes := got.(JsonObject)["items"].(JsonObject)["nodes"].(JsonList)
	Assertf(t, nodes[1].(JsonObject)["id"] == "b", "expected appended node to be a copy, got %v", nodes[1])
}

func TestQueryCursors(t *testing.T) {
	const query = `query Issues($teamAfter: String, $issueAfter: String) {
		teams(first: 10, after: $teamAfter) {
			nodes { id }
			pageInfo { hasNextPage endCursor }
		}
		mine: issues(after: $issueAfter) { nodes { id } pageInfo { hasNextPage endCursor } }
	}`
	tests := map[string]struct {
		queryCursors bool
		path         string
		expected     JsonObject // variables sent
	}{
		"teams": {false, "teams", JsonObject{"teamAfter": "c1", "teamsCursor": "c1", "cursor": "c1", "after": "c1"}},
		"alias": {false, "mine", JsonObject{"issueAfter": "c1", "mineCursor": "c1", "cursor": "c1", "after": "c1"}},
		"only":  {true, "teams", JsonObject{"teamAfter": "c1"}},
		"none":  {true, "other", JsonObject{"otherCursor": "c1", "cursor": "c1", "after": "c1"}},
	}

	for name, test := range tests {
		var sent map[string]interface{}
		exec := unwrap.ExecutorFunc(func(_ context.Context, _ string, vars map[string]interface{}) (map[string]interface{}, error) {
			sent = vars
			return JsonObject{test.path: conn(false, nil)}, nil
		})
		u := unwrap.New(exec, unwrap.Config{QueryCursors: test.queryCursors, Logger: zerolog.Nop()})
		_, diags := u.Unwrap(context.Background(), JsonObject{test.path: conn(true, "c1")}, query, nil)
		Assertf(t, len(diags) == 0, "%8s: expected no diagnostics got %v", name, diags)
		Assertf(t, reflect.DeepEqual(sent, test.expected), "%8s: expected variables %v got %v", name, test.expected, sent)
	}
}

func TestConcurrent(t *testing.T) {
	data := JsonObject{}
	responses := map[string]interface{}{}
	for i := 0; i < 20; i++ {
		key, cursor := fmt.Sprintf("c%02d", i), fmt.Sprintf("k%02d", i)
		data[key] = conn(true, cursor, node(key))
		if i%5 == 0 {
			responses[cursor] = errServer
			continue
		}
		responses[cursor] = JsonObject{key: conn(false, nil, JsonObject{"id": key + "-2", "sub": conn(false, nil)})}
	}

	seq := &pager{responses: responses}
	expected, expectedDiags := unwrap.New(seq, unwrap.Config{Logger: zerolog.Nop()}).
		Unwrap(context.Background(), data, "", nil)

	for _, concurrency := range []int{2, 4, 32} {
		p := &pager{responses: responses, jitter: true}
		u := unwrap.New(p, unwrap.Config{Concurrency: concurrency, Logger: zerolog.Nop()})
		got, diags := u.Unwrap(context.Background(), data, "", nil)
		Assertf(t, reflect.DeepEqual(got, expected), "concurrency %d: result differs from sequential", concurrency)
		Assertf(t, len(p.calls) == 20, "concurrency %d: expected 20 calls got %d", concurrency, len(p.calls))
		Assertf(t, len(diags) == 4, "concurrency %d: expected 4 diagnostics got %d", concurrency, len(diags))
		same := len(diags) == len(expectedDiags)
		for i := 0; same && i < len(diags); i++ {
			same = diags[i].Path == expectedDiags[i].Path && diags[i].Kind == expectedDiags[i].Kind
		}
		Assertf(t, same, "concurrency %d: expected diagnostics %v got %v", concurrency, expectedDiags, diags)
	}
}

func TestCancelled(t *testing.T) {
	p := &pager{}
	u := unwrap.New(p, unwrap.Config{Logger: zerolog.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, diags := u.Unwrap(ctx, JsonObject{"items": conn(true, "c1", node("a"))}, "", nil)
	Assertf(t, len(p.calls) == 0, "expected no calls got %d", len(p.calls))
	Assertf(t, reflect.DeepEqual(got, JsonObject{"items": conn(true, "c1", node("a"))}), "expected first page got %v", got)
	Assertf(t, len(diags) == 1 && diags[0].Kind == unwrap.FetchFailed && errors.Is(diags[0].Err, context.Canceled),
		"expected cancelled diagnostic got %v", diags)
}

func TestExecutorPanic(t *testing.T) {
	exec := unwrap.ExecutorFunc(func(context.Context, string, map[string]interface{}) (map[string]interface{}, error) {
		panic("boom")
	})
	u := unwrap.New(exec, unwrap.Config{Logger: zerolog.Nop()})
	_, diags := u.Unwrap(context.Background(), JsonObject{"items": conn(true, "c1")}, "", nil)
	Assertf(t, len(diags) == 1 && diags[0].Kind == unwrap.FetchFailed, "expected fetch_failed got %v", diags)
}

// TestRequestOrder checks that sibling connections are fetched in key order
func TestRequestOrder(t *testing.T) {
	p := &pager{responses: map[string]interface{}{
		"a1": JsonObject{"alpha": conn(false, nil)},
		"b1": JsonObject{"beta": conn(false, nil)},
		"c1": JsonObject{"gamma": conn(false, nil)},
	}}
	u := unwrap.New(p, unwrap.Config{Logger: zerolog.Nop()})
	u.Unwrap(context.Background(), JsonObject{
		"gamma": conn(true, "c1"),
		"alpha": conn(true, "a1"),
		"beta":  conn(true, "b1"),
	}, "", nil)

	var order []string
	for _, vars := range p.calls {
		order = append(order, vars["after"].(string))
	}
	Assertf(t, reflect.DeepEqual(order, []string{"a1", "b1", "c1"}), "expected order a1 b1 c1 got %v", order)
}

func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	const (
		succeed = "✓" // tick
		failed  = "X"      //"✗" // cross
	)

	t.Helper()
	if !succeeded {
		t.Errorf("%s\t"+format, append([]interface{}{failed}, args...)...)
	} else {
		t.Logf("%s\t"+format, append([]interface{}{succeed}, args...)...)
	}
}
