package schema

// names.go maps Go types to GraphQL type names

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/andrewwphillips/linearql/internal/field"
)

var nameRegex = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)

// validName checks that a string is a valid GraphQL type (or field) name
func validName(s string) bool {
	if strings.HasPrefix(s, "__") {
		return false // reserved names
	}
	return nameRegex.MatchString(s)
}

var timeType = reflect.TypeOf(time.Time{})

// GraphQLNamer can be implemented by a Go type to give the name of the GraphQL scalar (or enum) it represents
type GraphQLNamer interface {
	GraphQLType() string
}

// typeName returns the GraphQL named type (no list or non-null modifiers) for a base Go type
// (see field.Info.Type).  An error is returned for types that have no GraphQL equivalent.
func typeName(t reflect.Type) (string, error) {
	if t.Kind() != reflect.Interface {
		if namer, ok := reflect.New(t).Interface().(GraphQLNamer); ok {
			return namer.GraphQLType(), nil
		}
	}
	if t == timeType {
		return "DateTime", nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return "Boolean", nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "Int", nil
	case reflect.Float32, reflect.Float64:
		return "Float", nil
	case reflect.String:
		return "String", nil
	case reflect.Map, reflect.Interface:
		return "JSON", nil
	case reflect.Struct:
		if t.Name() == "" {
			return "", fmt.Errorf("anonymous struct has no GraphQL type name")
		}
		return t.Name(), nil
	}
	return "", fmt.Errorf("unhandled type %v", t)
}

// fieldType returns the GraphQL type (incl. modifiers) of a struct field as it would appear in SDL
func fieldType(info *field.Info) (string, error) {
	name, err := typeName(info.Type)
	if err != nil {
		return "", fmt.Errorf("%w for field %q", err, info.GoName)
	}
	switch {
	case info.Connection:
		name += "Connection"
	case info.List:
		name = "[" + name + "!]"
	}
	if !info.Nullable {
		name += "!"
	}
	return name, nil
}
