package schema

// describe.go generates a GraphQL type definition from a Go model struct

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/andrewwphillips/linearql/internal/field"
)

// Describe returns the GraphQL (SDL) object type definition that the Go struct model represents.
// typeName is the GraphQL name of the type (if empty the Go type name is used).
func Describe(model interface{}, typeName string) (string, error) {
	t := reflect.TypeOf(model)
	if t == nil {
		return "", errors.New("nil model")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if typeName == "" {
		typeName = t.Name()
	}
	if !validName(typeName) {
		return "", fmt.Errorf("%q is not a valid GraphQL type name", typeName)
	}
	infos, err := field.Fields(t)
	if err != nil {
		return "", fmt.Errorf("%w describing %q", err, typeName)
	}

	builder := &strings.Builder{}
	builder.WriteString("type ")
	builder.WriteString(typeName)
	builder.WriteString(" {\n")
	for _, info := range infos {
		gqlType, err := fieldType(info)
		if err != nil {
			return "", fmt.Errorf("%w describing %q", err, typeName)
		}
		if info.Comment != "" {
			builder.WriteString("  \"")
			builder.WriteString(info.Comment)
			builder.WriteString("\"\n")
		}
		builder.WriteString("  ")
		builder.WriteString(info.Name)
		builder.WriteString(": ")
		builder.WriteString(gqlType)
		builder.WriteRune('\n')
	}
	builder.WriteString("}\n")
	return builder.String(), nil
}
