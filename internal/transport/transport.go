// Package transport sends GraphQL requests to the server, over HTTP or a websocket.
// Both transports satisfy unwrap.Executor: they return the "data" object of the response,
// or an error if the request failed or the response contained any GraphQL errors.
package transport

// transport.go has the request/response envelopes and errors shared by the transports

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

const (
	// DefaultEndpoint is Linear's GraphQL API
	DefaultEndpoint = "https://api.linear.app/graphql"
	// DefaultWebSocketEndpoint is used for the graphql-transport-ws protocol
	DefaultWebSocketEndpoint = "wss://api.linear.app/graphql"
)

type (
	// request is the body of a GraphQL HTTP POST and the payload of a websocket "subscribe"
	request struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName,omitempty"`
		Variables     map[string]interface{} `json:"variables,omitempty"`
	}

	// response is a GraphQL result: data and/or errors
	response struct {
		Data   map[string]interface{} `json:"data"`
		Errors gqlerror.List          `json:"errors,omitempty"`
	}

	// GraphQLError is returned when the server reports errors in the response.  Data holds any
	// partial result that came back with the errors.
	GraphQLError struct {
		Errors gqlerror.List
		Data   map[string]interface{}
	}

	// StatusError is returned for an HTTP response with a status other than 200
	StatusError struct {
		StatusCode int
		Body       string // start of the body (for diagnosis)
	}
)

func (e *GraphQLError) Error() string {
	return "graphql: " + e.Errors.Error()
}

// Code returns the "code" extension of the first error that has one (eg "RATELIMITED")
func (e *GraphQLError) Code() string {
	for _, err := range e.Errors {
		if code, ok := err.Extensions["code"].(string); ok {
			return code
		}
	}
	return ""
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Body)
}

// ErrTokenExpired is returned (without sending anything) when the API key is a JWT that has expired
var ErrTokenExpired = errors.New("token expired")

// result converts a decoded response to the data or an error
func (r *response) result() (map[string]interface{}, error) {
	if len(r.Errors) > 0 {
		return nil, &GraphQLError{Errors: r.Errors, Data: r.Data}
	}
	if r.Data == nil {
		return map[string]interface{}{}, nil
	}
	return r.Data, nil
}

// decodeResponse decodes a GraphQL response, keeping integers as int64 (see FixNumbers)
func decodeResponse(body []byte) (*response, error) {
	var r response
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber() // allows us to distinguish ints from floats
	if err := decoder.Decode(&r); err != nil {
		return nil, fmt.Errorf("%w decoding GraphQL response", err)
	}
	r.Data = FixNumbers(r.Data).(map[string]interface{})
	return &r, nil
}

// FixNumbers goes through the structure created by the JSON decoder, converting any json.Number values to
// either an int64 or a float64.  This assumes that all the JSON numbers were decoded into a json.Number type, rather
// than int/float, by use of the json.Decode.UseNumber() method.  Numbers in lists are also converted.
func FixNumbers(v interface{}) interface{} {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String() // out of range of float64 - leave as text rather than lose it
	case map[string]interface{}:
		for key, val := range v {
			v[key] = FixNumbers(val)
		}
	case []interface{}:
		for i, val := range v {
			v[i] = FixNumbers(val)
		}
	}
	return v
}
