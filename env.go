package linearql

// env.go provides FromEnv and MustNew for quickly creating a client

import (
	"os"
)

// APIKeyEnv is the environment variable that FromEnv gets the API key from
const APIKeyEnv = "LINEAR_API_KEY"

// FromEnv creates a client using the API key in the LINEAR_API_KEY environment variable
func FromEnv(options ...Option) (*Client, error) {
	return New(os.Getenv(APIKeyEnv), options...)
}

// MustNew is like New but panics if the client can't be created.  An empty apiKey means
// use the LINEAR_API_KEY environment variable.  It's intended for scripts and examples.
func MustNew(apiKey string, options ...Option) *Client {
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv)
	}
	c, err := New(apiKey, options...)
	if err != nil {
		panic(err)
	}
	return c
}
