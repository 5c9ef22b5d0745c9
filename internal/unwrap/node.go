package unwrap

// node.go classifies the values of a decoded JSON response and locates values by path

import (
	"strconv"
	"strings"
)

// Kind is the variant of a response tree node
type Kind int

const (
	Scalar   Kind = iota // string, number, bool or null
	Sequence             // []interface{}
	Mapping              // map[string]interface{}
)

func (k Kind) String() string {
	switch k {
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	}
	return "scalar"
}

// KindOf returns the variant of a value produced by the JSON decoder
func KindOf(v interface{}) Kind {
	switch v.(type) {
	case map[string]interface{}:
		return Mapping
	case []interface{}:
		return Sequence
	}
	return Scalar
}

// IsConnection reports whether v has the shape of a page connection:
//
//	{ "nodes": [...], "pageInfo": { "hasNextPage": <bool>, "endCursor": <string or null> } }
//
// Other keys (eg "edges" or "totalCount") may also be present.
func IsConnection(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	if KindOf(m["nodes"]) != Sequence {
		return false
	}
	pageInfo, ok := m["pageInfo"].(map[string]interface{})
	if !ok {
		return false
	}
	if _, ok := pageInfo["hasNextPage"].(bool); !ok {
		return false
	}
	_, ok = pageInfo["endCursor"]
	return ok
}

// pageInfoOf returns "hasNextPage" and "endCursor" of a connection (IsConnection must be true)
func pageInfoOf(conn map[string]interface{}) (hasNext bool, cursor string) {
	pageInfo := conn["pageInfo"].(map[string]interface{})
	hasNext, _ = pageInfo["hasNextPage"].(bool)
	cursor, _ = pageInfo["endCursor"].(string)
	return
}

// Path locates a node in a response tree: map keys and (decimal) list indices starting at the root
type Path []string

// Append returns a new path with the segment(s) added, leaving p untouched
func (p Path) Append(segment ...string) Path {
	r := make(Path, len(p), len(p)+len(segment))
	copy(r, p)
	return append(r, segment...)
}

// Last returns the final segment or an empty string for the root path
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Fields returns the path without the list indices, which is how the same position is
// named in the selection sets of the query
func (p Path) Fields() Path {
	r := make(Path, 0, len(p))
	for _, s := range p {
		if _, err := strconv.Atoi(s); err != nil {
			r = append(r, s)
		}
	}
	return r
}

// Lookup follows path from root, returning the value found and true, or false if any
// segment is missing (key not present, index out of range, or a scalar in the way)
func Lookup(root interface{}, path Path) (interface{}, bool) {
	current := root
	for _, segment := range path {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []interface{}:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			current = v[i]
		default:
			return nil, false
		}
	}
	return current, true
}

// Clone returns a deep copy of a decoded JSON value. Scalars are immutable so are shared.
func Clone(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		r := make(map[string]interface{}, len(v))
		for key, value := range v {
			r[key] = Clone(value)
		}
		return r
	case []interface{}:
		r := make([]interface{}, len(v))
		for i, value := range v {
			r[i] = Clone(value)
		}
		return r
	}
	return v
}

// CloneVariables returns a deep copy of query variables (never nil)
func CloneVariables(vars map[string]interface{}) map[string]interface{} {
	if vars == nil {
		return make(map[string]interface{})
	}
	return Clone(vars).(map[string]interface{})
}
