// Package handler implements an HTTP handler that imitates the Linear GraphQL API using
// in-memory data.  Queries are answered over HTTP POST or a graphql-transport-ws websocket.
// Lists are returned as paginated connections (first/after), so it can be used to try out (and
// test) connection unwrapping without a Linear account.
package handler

// handler.go implements the handler and it's ServeHTTP method

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/andrewwphillips/linearql/internal/transport"
)

type (
	// Handler holds the data and settings used to answer GraphQL requests
	Handler struct {
		mu   sync.RWMutex // protects data (mutations lock for writing)
		data Data

		schema   *ast.Schema // answers __type queries, nil if not set
		apiKey   string      // if set requests must have this key
		pageSize int         // largest page returned for any connection
		fail     func(operationName string, variables map[string]interface{}) error
		logger   zerolog.Logger
		now      func() time.Time

		initialTimeout time.Duration
		requests       atomic.Int64
	}
)

// New returns a handler that answers queries and mutations from data, which it takes ownership of
func New(data Data, options ...func(*Handler)) *Handler {
	if data == nil {
		data = Data{}
	}
	h := &Handler{data: data}
	h.SetOptions(options...)
	return h
}

// Requests returns how many GraphQL operations have been received
func (h *Handler) Requests() int {
	return int(h.requests.Load())
}

// ServeHTTP receives a GraphQL query as an HTTP request, executes the
// query (or mutation) and generates an HTTP response or error message
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.serveWS(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.authorized(r.Header.Get("Authorization")) {
		h.logger.Debug().Msg("request with wrong API key rejected")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"data": null,"errors": [{"message": "Authentication required, not authenticated"}]}`))
		return
	}

	// Decode the request (JSON)
	g := gqlRequest{h: h}
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber() // allows us to distinguish ints from floats (see FixNumberVariables() below)
	if err := decoder.Decode(&g); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		h.write(w, gqlResult{Errors: gqlerror.List{gqlerror.Errorf("Error decoding JSON request: %v", err)}})
		return
	}

	// Since variables are sent as JSON (which does not distinguish int/float) we need to decide
	FixNumberVariables(g.Variables)

	h.write(w, g.Execute(r.Context()))
}

func (h *Handler) write(w http.ResponseWriter, result gqlResult) {
	buf, err := json.Marshal(result)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"data": null,"errors": [{"message": "Error encoding JSON response"}]}`))
		return
	}
	_, _ = w.Write(buf)
}

// authorized checks the value of the Authorization header (or websocket init payload)
func (h *Handler) authorized(auth string) bool {
	return h.apiKey == "" || auth == transport.Authorization(h.apiKey)
}

// FixNumberVariables goes through the structure created by the JSON decoder, converting any json.Number values to
// either an int64 or a float64.  This assumes that all the JSON numbers were decoded into a json.Number type, rather
// than int/float, by use of the json.Decode.UseNumber() method.
func FixNumberVariables(m map[string]interface{}) {
	for key, val := range m {
		m[key] = transport.FixNumbers(val)
	}
}
