package linearql

// options.go handles options that control the Client.
// Each option is a closure that sets a field of the options struct (see New).

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql/internal/transport"
)

// DefaultCacheTTL is how long looked up teams, states, projects and users are remembered
const DefaultCacheTTL = 5 * time.Minute

// Option is a setting passed to New, such as Endpoint or Logger
type Option = func(*options)

type options struct {
	endpoint, wsEndpoint string
	httpClient           *http.Client
	executor             Executor // replaces the transport (eg for tests)

	logger   zerolog.Logger
	registry prometheus.Registerer
	metrics  bool

	cacheTTL  time.Duration
	storePath string // "" = in-memory
	storeTTL  time.Duration
	useStore  bool

	retry RetryConfig

	// unwrapper options
	maxDepth, maxPages, concurrency int
	queryCursors, noUnwrapping      bool
}

func defaultOptions() options {
	return options{
		logger:   zerolog.Nop(),
		cacheTTL: DefaultCacheTTL,
		retry:    transport.DefaultRetry(),
	}
}

// Endpoint sets the URL of the GraphQL API (the default is https://api.linear.app/graphql)
func Endpoint(url string) func(*options) {
	return func(opt *options) {
		opt.endpoint = url
	}
}

// WebSocketEndpoint makes requests go over a graphql-transport-ws websocket connection
// to the given URL, rather than HTTP POST requests
func WebSocketEndpoint(url string) func(*options) {
	return func(opt *options) {
		opt.wsEndpoint = url
	}
}

// HTTPClient sets the client used for HTTP requests (eg to set a timeout or proxy)
func HTTPClient(c *http.Client) func(*options) {
	return func(opt *options) {
		opt.httpClient = c
	}
}

// WithExecutor sends all requests to exec instead of the Linear API.  This is mainly
// for testing but also allows requests to be routed through your own transport.
func WithExecutor(exec Executor) func(*options) {
	return func(opt *options) {
		opt.executor = exec
	}
}

// Logger sets where the client logs to (by default nothing is logged)
func Logger(logger zerolog.Logger) func(*options) {
	return func(opt *options) {
		opt.logger = logger
	}
}

// Metrics records request, cache and pagination metrics, registering the Prometheus collectors
// with reg (eg prometheus.DefaultRegisterer).  New fails if they are already registered.
func Metrics(reg prometheus.Registerer) func(*options) {
	return func(opt *options) {
		opt.metrics = true
		opt.registry = reg
	}
}

// CacheTTL sets how long lookups are cached in memory - zero or less means forever
func CacheTTL(ttl time.Duration) func(*options) {
	return func(opt *options) {
		opt.cacheTTL = ttl
	}
}

// Store keeps name to ID lookups in a database at path so they survive between runs.
// Entries expire after ttl (0 = never).  An empty path gives an in-memory store.
func Store(path string, ttl time.Duration) func(*options) {
	return func(opt *options) {
		opt.useStore = true
		opt.storePath = path
		opt.storeTTL = ttl
	}
}

// Retry sets how failed requests are retried
func Retry(cfg RetryConfig) func(*options) {
	return func(opt *options) {
		opt.retry = cfg
	}
}

// MaxDepth sets how deeply nested (in objects) a connection can be and still be unwrapped
func MaxDepth(depth int) func(*options) {
	return func(opt *options) {
		opt.maxDepth = depth
	}
}

// MaxPages limits the number of extra pages fetched for any one connection (0 = no limit)
func MaxPages(pages int) func(*options) {
	return func(opt *options) {
		opt.maxPages = pages
	}
}

// Concurrency allows up to n connections to be unwrapped at the same time
func Concurrency(n int) func(*options) {
	return func(opt *options) {
		opt.concurrency = n
	}
}

// QueryCursors means that only the cursor variable named in the query (as in "after: $cursor")
// is set when fetching the next page, if the query names one
func QueryCursors(on bool) func(*options) {
	return func(opt *options) {
		opt.queryCursors = on
	}
}

// Unwrapping controls whether connections in results are automatically completed (default on).
// It can also be changed later with EnableUnwrapping and DisableUnwrapping.
func Unwrapping(on bool) func(*options) {
	return func(opt *options) {
		opt.noUnwrapping = !on
	}
}
