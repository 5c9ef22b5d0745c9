// Package field is for analysing Go struct fields that model (part of) a GraphQL object type
package field

// field.go gets GraphQL field info from Go struct fields

import (
	"fmt"
	"reflect"
	"unicode"
	"unicode/utf8"
)

// Info is returned by Get with info extracted from a struct field.
// The info is obtained from the field's name, type, "json" tag and "linear" tag.
type Info struct {
	Name       string       // GraphQL field name
	GoName     string       // name of the Go struct field
	Type       reflect.Type // underlying type (pointers and slices removed)
	List       bool         // Go field is a slice or array
	Connection bool         // GraphQL field is a connection (see Tag)
	Nullable   bool         // pointer fields or those with the "nullable" option
	Comment    string
}

// Get checks if a field in a Go struct is exported and, if so, returns the GraphQL field info.  The name is
// taken from the linear tag, else the json tag, else the Go field name with the 1st character lower-cased.
// If the field is not exported or is explicitly omitted (a tag of "-") then nil is returned, but no error.
func Get(f *reflect.StructField) (*Info, error) {
	if f.PkgPath != "" {
		return nil, nil // unexported field
	}
	tag, err := ParseTag(f.Tag.Get(TagName))
	if err != nil {
		return nil, fmt.Errorf("%w getting tag info from field %q", err, f.Name)
	}
	if tag == nil {
		return nil, nil // explicitly omitted field
	}

	r := &Info{Name: tag.Name, GoName: f.Name, Connection: tag.Connection, Nullable: tag.Nullable, Comment: tag.Comment}
	if r.Name == "" {
		switch name := jsonName(f.Tag.Get("json")); name {
		case "-":
			return nil, nil
		case "":
			// make GraphQL name from Go field name (can't be empty string) with lower-case first letter
			first, n := utf8.DecodeRuneInString(f.Name)
			r.Name = string(unicode.ToLower(first)) + f.Name[n:]
		default:
			r.Name = name
		}
	}

	t := f.Type
	for t.Kind() == reflect.Ptr {
		r.Nullable = true // Pointer types can be null
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		r.List = true
		t = t.Elem()
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
	}
	if r.Connection && !r.List {
		return nil, fmt.Errorf("connection field %q must be a slice", f.Name)
	}
	r.Type = t
	return r, nil
}

// Fields returns the info of all the GraphQL fields of a struct type (or pointer to struct).
// Fields of embedded structs are included as if they were fields of the outer struct (like encoding/json).
func Fields(t reflect.Type) ([]*Info, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%v is not a struct", t)
	}

	var r []*Info
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Tag.Get(TagName) == "" && f.Tag.Get("json") == "" {
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded, err := Fields(ft)
				if err != nil {
					return nil, fmt.Errorf("%w in embedded %q", err, f.Name)
				}
				r = append(r, embedded...)
				continue
			}
		}
		info, err := Get(&f)
		if err != nil {
			return nil, err
		}
		if info != nil {
			r = append(r, info)
		}
	}
	return r, nil
}
