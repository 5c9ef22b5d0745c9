package handler

// options.go handles setting of handler options

// The use of closures for options makes it simple for the caller to add any desired options:
// handler.New() takes as its last (variadic) parameter a slice of closures each with the
// signature func(*Handler).  The option functions below (PageSize, etc) return such a closure
// which captures the parameters passed to the option function, eg:
//
//   handler.New(handler.Demo(), handler.PageSize(2), handler.APIKey("lin_api_demo"))
//
// A pitfall is that if the same option function is used more than once then only the last use has any effect.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const (
	defaultPageSize       = 50               // Linear's default for "first"
	defaultInitialTimeout = 10 * time.Second // how long to wait for connection_init after the WS is opened
)

// SetOptions takes a slice of handler options (closures) and executes them
func (h *Handler) SetOptions(options ...func(*Handler)) {
	h.logger = zerolog.Nop()
	for _, option := range options {
		option(h)
	}

	// Set any options that still have their unset (zero) value
	if h.pageSize <= 0 {
		h.pageSize = defaultPageSize
	}
	if h.initialTimeout == 0 {
		h.initialTimeout = defaultInitialTimeout
	}
	if h.now == nil {
		h.now = time.Now
	}
}

// PageSize limits the number of nodes returned in one page of a connection, whatever the
// "first" argument asks for.  Small pages make results take several requests to complete.
func PageSize(n int) func(*Handler) {
	return func(h *Handler) {
		h.pageSize = n
	}
}

// APIKey makes the handler reject requests that do not authenticate with key
func APIKey(key string) func(*Handler) {
	return func(h *Handler) {
		h.apiKey = key
	}
}

// Schema loads a schema (SDL) used to answer introspection of types, ie __type(name: "Issue").
// It panics if the schema is invalid.
func Schema(sdl string) func(*Handler) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema", Input: sdl})
	if err != nil {
		panic(fmt.Sprintf("handler.Schema - error making schema: %v", err))
	}
	return func(h *Handler) {
		h.schema = schema
	}
}

// Fail is called before each operation is executed.  If it returns an error the request fails
// with that error, which is used to simulate a server that has problems.
func Fail(fn func(operationName string, variables map[string]interface{}) error) func(*Handler) {
	return func(h *Handler) {
		h.fail = fn
	}
}

// Logger sets where the handler logs requests (at debug level) and websocket problems
func Logger(logger zerolog.Logger) func(*Handler) {
	return func(h *Handler) {
		h.logger = logger.With().Str("component", "handler").Logger()
	}
}

// Now sets the clock used for createdAt/updatedAt of objects created by mutations
func Now(now func() time.Time) func(*Handler) {
	return func(h *Handler) {
		h.now = now
	}
}

// InitialTimeout sets the length time to wait from when the websocket is opened until the
// "connection_init" message is received. If the message is not received from the client
// within the time limit then the WS is closed.
func InitialTimeout(timeout time.Duration) func(*Handler) {
	return func(h *Handler) {
		h.initialTimeout = timeout // timeout value is "captured" and returned as part of the func
	}
}
