// Package schema compares Go model structs with the GraphQL types of a live server (found by introspection)
// and can describe a model as a GraphQL type definition.
package schema

// validate.go checks a model struct against the server's schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/andrewwphillips/linearql/internal/field"
	"github.com/andrewwphillips/linearql/internal/unwrap"
)

// ErrUnknownType is returned when the server has no type of the requested name
var ErrUnknownType = errors.New("unknown GraphQL type")

// KnownMissing can be implemented by a model to list the GraphQL fields it deliberately omits.
// These are not reported as missing by Validate.
type KnownMissing interface {
	KnownMissingFields() []string
}

// introspectionQuery gets the fields of a type, following up to 3 levels of type wrapping (eg [X!]!)
const introspectionQuery = `query TypeFields($name: String!) {
  __type(name: $name) {
    name
    kind
    fields {
      name
      type { kind name ofType { kind name ofType { kind name ofType { kind name } } } }
    }
  }
}`

// Report is the result of comparing a model with a GraphQL type
type Report struct {
	TypeName   string
	Missing    []string // fields of the GraphQL type that the model does not have
	Extra      []string // fields of the model that the GraphQL type does not have
	Mismatched []string // fields where the model and type disagree about being a connection
}

// Valid is true if every model field exists in the GraphQL type (missing fields are allowed)
func (r *Report) Valid() bool {
	return len(r.Extra) == 0 && len(r.Mismatched) == 0
}

func (r *Report) String() string {
	if r.Valid() && len(r.Missing) == 0 {
		return r.TypeName + ": ok"
	}
	var parts []string
	if len(r.Extra) > 0 {
		parts = append(parts, "not in schema: "+strings.Join(r.Extra, ", "))
	}
	if len(r.Mismatched) > 0 {
		parts = append(parts, "connection mismatch: "+strings.Join(r.Mismatched, ", "))
	}
	if len(r.Missing) > 0 {
		parts = append(parts, "not in model: "+strings.Join(r.Missing, ", "))
	}
	return r.TypeName + ": " + strings.Join(parts, "; ")
}

type (
	typeRef struct {
		Kind   string   `json:"kind"`
		Name   *string  `json:"name"`
		OfType *typeRef `json:"ofType"`
	}
	fieldDef struct {
		Name string  `json:"name"`
		Type typeRef `json:"type"`
	}
)

// named returns the name of the innermost (named) type
func (t *typeRef) named() string {
	for t != nil {
		if t.Name != nil {
			return *t.Name
		}
		t = t.OfType
	}
	return ""
}

// Validate compares the fields of the Go struct model with the fields of the GraphQL type typeName
func Validate(ctx context.Context, exec unwrap.Executor, model interface{}, typeName string) (*Report, error) {
	if !validName(typeName) {
		return nil, fmt.Errorf("%q is not a valid GraphQL type name", typeName)
	}
	t := reflect.TypeOf(model)
	if t == nil {
		return nil, errors.New("nil model")
	}
	infos, err := field.Fields(t)
	if err != nil {
		return nil, fmt.Errorf("%w validating %q", err, typeName)
	}

	data, err := exec.Execute(ctx, introspectionQuery, map[string]interface{}{"name": typeName})
	if err != nil {
		return nil, fmt.Errorf("%w introspecting %q", err, typeName)
	}
	fields, err := decodeFields(data["__type"])
	if err != nil {
		return nil, fmt.Errorf("%w decoding %q", err, typeName)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typeName)
	}

	known := map[string]bool{}
	if km, ok := model.(KnownMissing); ok {
		for _, name := range km.KnownMissingFields() {
			known[name] = true
		}
	}

	r := &Report{TypeName: typeName}
	inModel := make(map[string]bool, len(infos))
	for _, info := range infos {
		inModel[info.Name] = true
		def, ok := fields[info.Name]
		if !ok {
			r.Extra = append(r.Extra, info.Name)
			continue
		}
		if isConnection := strings.HasSuffix(def.Type.named(), "Connection"); isConnection != info.Connection {
			r.Mismatched = append(r.Mismatched, info.Name)
		}
	}
	for name := range fields {
		if !inModel[name] && !known[name] {
			r.Missing = append(r.Missing, name)
		}
	}
	sort.Strings(r.Missing)
	sort.Strings(r.Extra)
	sort.Strings(r.Mismatched)
	return r, nil
}

// decodeFields converts the (decoded JSON) __type result to a map of field name to definition.
// It returns nil (with no error) if the type does not exist.
func decodeFields(v interface{}) (map[string]fieldDef, error) {
	if v == nil {
		return nil, nil
	}
	// Round trip through JSON, which is simpler than walking the maps by hand
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var t struct {
		Name   string     `json:"name"`
		Fields []fieldDef `json:"fields"`
	}
	if err := json.Unmarshal(buf, &t); err != nil {
		return nil, err
	}
	r := make(map[string]fieldDef, len(t.Fields))
	for _, f := range t.Fields {
		r[f.Name] = f
	}
	return r, nil
}
