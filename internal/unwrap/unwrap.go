// Package unwrap completes paginated GraphQL "connections" found anywhere in a response.
//
// A connection is an object with a "nodes" list and a "pageInfo" object (see IsConnection).
// Unwrap walks a decoded response looking for connections and, for each one that has more
// pages, re-runs the original query with the cursor set, appending the nodes of each
// subsequent page until the connection is exhausted. Problems never abort the walk: they
// are returned as a list of Diagnostic and the affected connection keeps the nodes it has.
package unwrap

// unwrap.go implements the tree walk and the page-fetch loop

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/andrewwphillips/linearql/internal/metric"
)

// DefaultMaxDepth is how deep (in mapping levels) the walk looks for connections
const DefaultMaxDepth = 5

type (
	// Executor runs one GraphQL request returning the "data" member of the response.
	// It must return an error for transport failures and for responses containing errors.
	Executor interface {
		Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error)
	}

	// ExecutorFunc allows an ordinary function to be used as an Executor
	ExecutorFunc func(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error)

	// Config holds the Unwrapper settings - the zero value (plus a Logger) gives the default behaviour
	Config struct {
		MaxDepth     int  // deepest level walked (0 = DefaultMaxDepth)
		MaxPages     int  // max follow-up pages per connection (0 = no limit)
		Concurrency  int  // max concurrent fetches of independent connections (<= 1 = one at a time)
		QueryCursors bool // only set the cursor variable declared in the query (when there is one)
		Logger       zerolog.Logger
		Metrics      *metric.Metrics // may be nil
	}

	// Unwrapper holds the (immutable) settings - all state of a walk is local to each Unwrap call
	// so an Unwrapper may be shared between goroutines.
	Unwrapper struct {
		exec         Executor
		maxDepth     int
		maxPages     int
		concurrency  int
		queryCursors bool
		logger       zerolog.Logger
		metrics      *metric.Metrics
	}

	// walk is the state of a single Unwrap call
	walk struct {
		*Unwrapper
		ctx   context.Context
		query string
		vars  map[string]interface{}
		sem   *semaphore.Weighted // extra goroutines allowed (nil = sequential)

		declaredOnce sync.Once
		declared     map[string]string // field path -> cursor variable (see cursorVariables)

		mu          sync.Mutex
		visited     map[string]struct{}
		diagnostics []Diagnostic
	}
)

// Execute calls f(ctx, query, variables)
func (f ExecutorFunc) Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	return f(ctx, query, variables)
}

// New creates an Unwrapper that uses exec to obtain follow-up pages
func New(exec Executor, cfg Config) *Unwrapper {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Unwrapper{
		exec:         exec,
		maxDepth:     cfg.MaxDepth,
		maxPages:     cfg.MaxPages,
		concurrency:  cfg.Concurrency,
		queryCursors: cfg.QueryCursors,
		logger:       cfg.Logger.With().Str("component", "unwrap").Logger(),
		metrics:      cfg.Metrics,
	}
}

// Unwrap returns a deep copy of data with every connection extended to include all its pages.
// Parameters:
//   - ctx: passed to the Executor for each follow-up request
//   - data: the decoded "data" of the response to the first request
//   - query, variables: the request that produced data - variables is not modified
//
// If data is not a JSON object it is returned as is. The returned diagnostics (sorted by path)
// list every connection that could not be completed, and branches skipped due to depth.
func (u *Unwrapper) Unwrap(ctx context.Context, data interface{}, query string, variables map[string]interface{},
) (interface{}, []Diagnostic) {
	root, ok := data.(map[string]interface{})
	if !ok || root == nil {
		return data, nil
	}
	result := Clone(root).(map[string]interface{})

	w := &walk{
		Unwrapper: u,
		ctx:       ctx,
		query:     query,
		vars:      CloneVariables(variables),
		visited:   make(map[string]struct{}),
	}
	if u.concurrency > 1 {
		w.sem = semaphore.NewWeighted(int64(u.concurrency - 1)) // the calling goroutine is the other one
	}
	w.mapping(result, nil, 0)

	sortDiagnostics(w.diagnostics)
	return result, w.diagnostics
}

// mapping handles a JSON object: paginates it if it's a connection, then walks its children
func (w *walk) mapping(m map[string]interface{}, path Path, depth int) {
	if depth > w.maxDepth {
		if hasPending(m) {
			w.logger.Warn().Str("path", path.String()).Int("max_depth", w.maxDepth).Msg("max depth reached")
			w.problem(Diagnostic{Path: path.String(), Kind: DepthExceeded})
		}
		return
	}

	if IsConnection(m) && w.visit(path) {
		w.paginate(m, path)
	}

	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys) // map order is random but we want a repeatable order of requests

	var g errgroup.Group
	for _, key := range keys {
		child, childPath := m[key], path.Append(key)
		switch KindOf(child) {
		case Mapping:
			w.spawn(&g, func() { w.mapping(child.(map[string]interface{}), childPath, depth+1) })
		case Sequence:
			w.spawn(&g, func() { w.sequence(child.([]interface{}), childPath, depth+1) })
		}
	}
	_ = g.Wait() // goroutines only return nil
}

// sequence walks the elements of a list - elements are at the same depth as the list itself
func (w *walk) sequence(list []interface{}, path Path, depth int) {
	var g errgroup.Group
	for i, elt := range list {
		eltPath := path.Append(strconv.Itoa(i))
		switch KindOf(elt) {
		case Mapping:
			w.spawn(&g, func() { w.mapping(elt.(map[string]interface{}), eltPath, depth) })
		case Sequence:
			w.spawn(&g, func() { w.sequence(elt.([]interface{}), eltPath, depth) })
		}
	}
	_ = g.Wait()
}

// spawn runs fn on a new goroutine if one is available, else runs it straight away.
// Running inline when the semaphore is exhausted means nested walks can never deadlock.
func (w *walk) spawn(g *errgroup.Group, fn func()) {
	if w.sem != nil && w.sem.TryAcquire(1) {
		g.Go(func() error {
			defer w.sem.Release(1)
			fn()
			return nil
		})
		return
	}
	fn()
}

// hasPending reports whether v is, or contains, a connection with more pages
func hasPending(v interface{}) bool {
	switch v := v.(type) {
	case map[string]interface{}:
		if IsConnection(v) {
			if hasNext, cursor := pageInfoOf(v); hasNext && cursor != "" {
				return true
			}
		}
		for _, child := range v {
			if hasPending(child) {
				return true
			}
		}
	case []interface{}:
		for _, child := range v {
			if hasPending(child) {
				return true
			}
		}
	}
	return false
}

// visit marks the connection at path as processed, returning false if it already was
func (w *walk) visit(path Path) bool {
	key := path.String()
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.visited[key]; ok {
		return false
	}
	w.visited[key] = struct{}{}
	return true
}

func (w *walk) problem(d Diagnostic) {
	w.metrics.UnwrapProblem(d.Kind.String())
	w.mu.Lock()
	w.diagnostics = append(w.diagnostics, d)
	w.mu.Unlock()
}

// cursorVars returns the cursor variables declared in the query (parsed on first use)
func (w *walk) cursorVars() map[string]string {
	w.declaredOnce.Do(func() {
		w.declared = cursorVariables(w.query)
	})
	return w.declared
}

// paginate fetches the remaining pages of the connection conn (found at path) adding the nodes
// of each page to conn["nodes"]. It stops (leaving conn consistent) on any problem.
func (w *walk) paginate(conn map[string]interface{}, path Path) {
	vars := w.vars
	pages := 0
	for {
		hasNext, cursor := pageInfoOf(conn)
		if !hasNext || cursor == "" {
			return // complete
		}
		if w.maxPages > 0 && pages >= w.maxPages {
			w.problem(Diagnostic{Path: path.String(), Kind: PageLimit, Pages: pages})
			return
		}

		vars = nextPageVariables(vars, path, cursor, w.cursorVars(), w.queryCursors)
		data, err := w.fetch(vars)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path.String()).Int("pages", pages).Msg("error unwrapping connection")
			w.problem(Diagnostic{Path: path.String(), Kind: FetchFailed, Pages: pages, Err: err})
			return
		}

		found, ok := Lookup(data, path)
		if !ok || !IsConnection(found) {
			w.logger.Debug().Str("path", path.String()).Msg("no connection at path in next page")
			w.problem(Diagnostic{Path: path.String(), Kind: ShapeMismatch, Pages: pages})
			return
		}
		next := found.(map[string]interface{})

		conn["nodes"] = append(conn["nodes"].([]interface{}), Clone(next["nodes"]).([]interface{})...)
		pages++
		w.metrics.Page()
		w.logger.Debug().Str("path", path.String()).Int("page", pages+1).Int("nodes", len(next["nodes"].([]interface{}))).Msg("merged page")

		nextHas, nextCursor := pageInfoOf(next)
		if nextHas {
			conn["pageInfo"] = Clone(next["pageInfo"])
			if nextCursor == cursor {
				w.logger.Warn().Str("path", path.String()).Str("cursor", cursor).Msg("cursor did not advance")
				w.problem(Diagnostic{Path: path.String(), Kind: CursorStalled, Pages: pages})
				return
			}
			continue
		}

		// Last page
		pageInfo := conn["pageInfo"].(map[string]interface{})
		pageInfo["hasNextPage"] = false
		pageInfo["endCursor"] = next["pageInfo"].(map[string]interface{})["endCursor"]
		return
	}
}

// fetch runs the original query with new variables, converting a panic in the executor to an error
func (w *walk) fetch(vars map[string]interface{}) (data map[string]interface{}, err error) {
	if err = w.ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if recoverValue := recover(); recoverValue != nil {
			err = fmt.Errorf("panic in executor: %v", recoverValue)
		}
	}()
	return w.exec.Execute(w.ctx, w.query, vars)
}
