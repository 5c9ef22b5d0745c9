package unwrap

// diagnostic.go describes connections that could not be completely unwrapped

import (
	"fmt"
	"sort"
)

// DiagnosticKind says why pagination of a connection (or walking of a branch) stopped early
type DiagnosticKind int

const (
	FetchFailed   DiagnosticKind = iota // the executor returned an error (incl. context cancelled)
	ShapeMismatch                       // the follow-up response had no connection at the same path
	DepthExceeded                       // the branch is nested deeper than MaxDepth and was not walked
	CursorStalled                       // the server returned the same cursor while claiming more pages
	PageLimit                           // MaxPages follow-up pages were fetched
)

func (k DiagnosticKind) String() string {
	switch k {
	case FetchFailed:
		return "fetch_failed"
	case ShapeMismatch:
		return "shape_mismatch"
	case DepthExceeded:
		return "depth_exceeded"
	case CursorStalled:
		return "cursor_stalled"
	case PageLimit:
		return "page_limit"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Diagnostic records a partial result. The tree returned from Unwrap is still valid: the
// connection at Path keeps every node gathered before the problem.
type Diagnostic struct {
	Path  string
	Kind  DiagnosticKind
	Pages int   // number of follow-up pages merged into the connection before stopping
	Err   error // only set for FetchFailed
}

func (d Diagnostic) String() string {
	path := d.Path
	if path == "" {
		path = "<root>"
	}
	if d.Err != nil {
		return fmt.Sprintf("%s at %s after %d page(s): %v", d.Kind, path, d.Pages, d.Err)
	}
	return fmt.Sprintf("%s at %s after %d page(s)", d.Kind, path, d.Pages)
}

// sortDiagnostics orders by path then kind so results do not depend on goroutine scheduling
func sortDiagnostics(d []Diagnostic) {
	sort.SliceStable(d, func(i, j int) bool {
		if d[i].Path != d[j].Path {
			return d[i].Path < d[j].Path
		}
		return d[i].Kind < d[j].Kind
	})
}
