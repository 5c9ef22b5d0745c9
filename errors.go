package linearql

// errors.go has the errors returned by the client (use errors.Is to check for them)

import (
	"errors"

	"github.com/andrewwphillips/linearql/internal/transport"
)

var (
	// ErrNoAPIKey is returned by New and FromEnv when there is no API key
	ErrNoAPIKey = errors.New("no API key: pass one to New or set " + APIKeyEnv)

	// ErrNotFound is returned when a lookup (by ID or name) finds nothing
	ErrNotFound = errors.New("not found")

	// ErrOperationFailed is returned when a mutation reports that it did not succeed
	ErrOperationFailed = errors.New("operation failed")

	// ErrInvalidInput is returned (wrapped with the details) when input fails validation
	// before anything is sent
	ErrInvalidInput = errors.New("invalid input")

	// ErrTokenExpired is returned when the API key is an OAuth token (JWT) that has expired
	ErrTokenExpired = transport.ErrTokenExpired
)

type (
	// GraphQLError is returned when the server's response contains errors
	GraphQLError = transport.GraphQLError

	// StatusError is returned when the server responds with an HTTP status other than OK
	StatusError = transport.StatusError
)
