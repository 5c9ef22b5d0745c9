package handler_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/posener/wstest"
	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql/internal/handler"
	"github.com/andrewwphillips/linearql/internal/transport"
	"github.com/andrewwphillips/linearql/internal/unwrap"
)

const teamIssues = `query TeamIssues($cursor: String) {
  team(id: "ENG") {
    issues(after: $cursor) { nodes { identifier } pageInfo { hasNextPage endCursor } }
  }
}`

// TestUnwrapOverTransports gets all the pages of a connection through both transports
func TestUnwrapOverTransports(t *testing.T) {
	const key = "lin_api_demo"
	executors := map[string]func(h *handler.Handler) (unwrap.Executor, func()){
		"http": func(h *handler.Handler) (unwrap.Executor, func()) {
			server := httptest.NewServer(h)
			return transport.NewHTTP(transport.Config{Endpoint: server.URL, APIKey: key, Logger: zerolog.Nop()}), server.Close
		},
		"ws": func(h *handler.Handler) (unwrap.Executor, func()) {
			cfg := transport.Config{Endpoint: "ws://localhost/graphql", APIKey: key, Logger: zerolog.Nop()}
			return transport.NewWebSocket(cfg, wstest.NewDialer(h)), func() {}
		},
	}

	for name, newExecutor := range executors {
		t.Run(name, func(t *testing.T) {
			h := handler.New(handler.Demo(), handler.PageSize(5), handler.APIKey(key))
			exec, done := newExecutor(h)
			defer done()

			ctx := context.Background()
			data, err := exec.Execute(ctx, teamIssues, nil)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			r, diagnostics := unwrap.New(exec, unwrap.Config{Logger: zerolog.Nop()}).Unwrap(ctx, data, teamIssues, nil)

			expected := map[string]interface{}{"team": map[string]interface{}{"issues": map[string]interface{}{
				"nodes":    issueList(1, 12),
				"pageInfo": map[string]interface{}{"hasNextPage": false, "endCursor": "I12"},
			}}}
			Assertf(t, len(diagnostics) == 0, "Expected no diagnostics, got %v", diagnostics)
			Assertf(t, reflect.DeepEqual(r, expected), "Expected %v, got %v", expected, r)
			Assertf(t, h.Requests() == 3, "Expected 3 requests (pages of 5), got %d", h.Requests())
		})
	}
}

// TestUnwrapServerFailure checks that the pages obtained are kept when a later page fails
func TestUnwrapServerFailure(t *testing.T) {
	h := handler.New(handler.Demo(), handler.PageSize(4), handler.Fail(func(_ string, vars map[string]interface{}) error {
		if vars["cursor"] == "I8" {
			return errors.New("internal server error")
		}
		return nil
	}))
	server := httptest.NewServer(h)
	defer server.Close()
	exec := transport.NewHTTP(transport.Config{Endpoint: server.URL, APIKey: "k", Logger: zerolog.Nop()})

	ctx := context.Background()
	data, err := exec.Execute(ctx, teamIssues, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	r, diagnostics := unwrap.New(exec, unwrap.Config{Logger: zerolog.Nop()}).Unwrap(ctx, data, teamIssues, nil)

	conn, _ := unwrap.Lookup(r, unwrap.Path{"team", "issues"})
	nodes := conn.(map[string]interface{})["nodes"]
	Assertf(t, reflect.DeepEqual(nodes, issueList(1, 8)), "Expected the first 2 pages, got %v", nodes)
	Assertf(t, len(diagnostics) == 1 && diagnostics[0].Kind == unwrap.FetchFailed && diagnostics[0].Path == "team.issues",
		"Expected a fetch_failed diagnostic, got %v", diagnostics)
}

// issueList returns the expected nodes for ENG issues first to last
func issueList(first, last int) []interface{} {
	var r []interface{}
	for i := first; i <= last; i++ {
		r = append(r, map[string]interface{}{"identifier": "ENG-" + strconv.Itoa(i)})
	}
	return r
}

