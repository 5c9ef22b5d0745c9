package linearql

// linearql.go provides the Client type which sends requests to the Linear API and completes
// any paginated connections in the results

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql/internal/metric"
	"github.com/andrewwphillips/linearql/internal/schema"
	"github.com/andrewwphillips/linearql/internal/store"
	"github.com/andrewwphillips/linearql/internal/transport"
	"github.com/andrewwphillips/linearql/internal/unwrap"
)

const userAgent = "linearql"

type (
	// RetryConfig controls how requests that fail with a temporary error are retried
	RetryConfig = transport.RetryConfig

	// SchemaReport is the result of ValidateModel
	SchemaReport = schema.Report

	// Client is a connection to the Linear API.  It is safe for concurrent use.
	Client struct {
		exec      Executor
		unwrapper *unwrap.Unwrapper
		unwrap    atomic.Bool
		store     *store.Store // nil if not persisting lookups
		metrics   *metric.Metrics
		logger    zerolog.Logger
		cacheOpts cacheSettings

		Teams    *Teams
		Projects *Projects
		Users    *Users
		Issues   *Issues
	}
)

// New creates a client that authenticates with apiKey (a personal API key or an OAuth token).
// The apiKey may be empty only if requests go to your own Executor (see WithExecutor).
func New(apiKey string, options ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range options {
		opt(&o)
	}
	if apiKey == "" && o.executor == nil {
		return nil, ErrNoAPIKey
	}

	c := &Client{logger: o.logger.With().Str("component", "client").Logger()}
	if o.metrics {
		m, err := metric.New(o.registry)
		if err != nil {
			return nil, fmt.Errorf("%w registering metrics", err)
		}
		c.metrics = m
	}

	c.exec = o.executor
	if c.exec == nil {
		cfg := transport.Config{
			Endpoint:   o.endpoint,
			APIKey:     apiKey,
			UserAgent:  userAgent,
			HTTPClient: o.httpClient,
			Retry:      o.retry,
			Logger:     o.logger,
			Metrics:    c.metrics,
		}
		if o.wsEndpoint != "" {
			cfg.Endpoint = o.wsEndpoint
			c.exec = transport.NewWebSocket(cfg, nil)
		} else {
			c.exec = transport.NewHTTP(cfg)
		}
	}

	c.unwrapper = unwrap.New(c.exec, unwrap.Config{
		MaxDepth:     o.maxDepth,
		MaxPages:     o.maxPages,
		Concurrency:  o.concurrency,
		QueryCursors: o.queryCursors,
		Logger:       o.logger,
		Metrics:      c.metrics,
	})
	c.unwrap.Store(!o.noUnwrapping)

	if o.useStore {
		s, err := store.Open(store.Config{
			Path:     o.storePath,
			InMemory: o.storePath == "",
			TTL:      o.storeTTL,
			Logger:   o.logger,
		})
		if err != nil {
			return nil, err
		}
		c.store = s
	}

	c.cacheOpts = cacheSettings{ttl: o.cacheTTL, metrics: c.metrics}
	c.Teams = newTeams(c)
	c.Projects = newProjects(c)
	c.Users = newUsers(c)
	c.Issues = newIssues(c)
	return c, nil
}

// Close releases resources - only needed if the Store option was used
func (c *Client) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// EnableUnwrapping turns on automatic completion of connections in results of Execute
func (c *Client) EnableUnwrapping() { c.unwrap.Store(true) }

// DisableUnwrapping means Execute returns just the first page of every connection
func (c *Client) DisableUnwrapping() { c.unwrap.Store(false) }

// Execute runs a GraphQL query or mutation and returns the "data" of the response.  If unwrapping
// is enabled (the default) every connection in the result ({nodes, pageInfo}) is completed by
// fetching its remaining pages.  Connections that could not be completed are logged (and keep the
// nodes obtained) - use ExecuteReport to find out about them.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	data, _, err := c.ExecuteReport(ctx, query, variables)
	return data, err
}

// ExecuteReport is like Execute but also returns a Diagnostic for every connection that could not be
// completely unwrapped.  Errors from the first request are returned as an error.
func (c *Client) ExecuteReport(ctx context.Context, query string, variables map[string]interface{},
) (map[string]interface{}, []Diagnostic, error) {
	data, err := c.exec.Execute(ctx, query, variables)
	if err != nil {
		return nil, nil, err
	}
	if !c.unwrap.Load() {
		return data, nil, nil
	}
	r, diagnostics := c.unwrapper.Unwrap(ctx, data, query, variables)
	return r.(map[string]interface{}), diagnostics, nil
}

// ValidateModel compares the fields of a Go struct with those of a type in the Linear schema.
// Parameters:
//   - model: a struct (or pointer to struct) such as Issue
//   - typeName: the GraphQL type name (eg "Issue")
func (c *Client) ValidateModel(ctx context.Context, model interface{}, typeName string) (*SchemaReport, error) {
	return schema.Validate(ctx, c.exec, model, typeName)
}

// DescribeModel returns the GraphQL type definition implied by a Go struct
func DescribeModel(model interface{}, typeName string) (string, error) {
	return schema.Describe(model, typeName)
}
