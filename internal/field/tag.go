package field

// tag.go handles extracting info from the "linear:" tag string (from struct field metadata)

import (
	"fmt"
	"strings"
)

// TagName is the struct tag key used for options
const TagName = "linear"

// Tag holds the options from a field's tag, which has the form:
//
//	linear:"[name][,connection][,nullable][ # comment]"
//
// A tag of "-" means the field is not part of the GraphQL type.
type Tag struct {
	Name       string // GraphQL name (empty = derive from json tag or Go name)
	Connection bool   // GraphQL field is a connection ({nodes, pageInfo}) of the Go slice element type
	Nullable   bool   // GraphQL field may be null even though the Go type is not a pointer
	Comment    string
}

// ParseTag extracts the options from a tag string.  If the tag is just a dash (-) then nil is returned (no error).
func ParseTag(tag string) (*Tag, error) {
	if tag == "-" {
		return nil, nil // this field is to be ignored
	}
	parts, comment, err := Split(tag)
	if err != nil {
		return nil, fmt.Errorf("%w splitting tag %q", err, tag)
	}

	r := &Tag{Name: parts[0], Comment: strings.TrimSpace(comment)}
	for _, part := range parts[1:] {
		switch part {
		case "":
			// ignore empty sections
		case "connection":
			r.Connection = true
		case "nullable":
			r.Nullable = true
		default:
			return nil, fmt.Errorf("unknown option %q in tag %q", part, tag)
		}
	}
	return r, nil
}

// jsonName returns the name from a json tag, "-" if the field is omitted from JSON, or "" if none is given
func jsonName(tag string) string {
	if tag == "-" {
		return "-"
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}
