package field_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/andrewwphillips/linearql/internal/field"
)

type (
	Base struct {
		ID string `json:"id"`
	}
	Label struct{ Name string }
	Sample struct {
		Base
		Title     string
		Priority  int      `json:"priority,omitempty"`
		DueDate   *string  `json:"dueDate"`
		Labels    []Label  `json:"labels" linear:",connection"`
		Assignees []*Label `linear:"assignees,connection,nullable"`
		Tags      []string
		Internal  string    `json:"-"`
		Skipped   string    `linear:"-"`
		Renamed   string    `json:"x" linear:"realName # override json name"`
		CreatedAt time.Time `json:"createdAt"`
		private   int
	}
)

func TestFields(t *testing.T) {
	infos, err := field.Fields(reflect.TypeOf(&Sample{}))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	expected := []struct {
		name, goName string
		typ          reflect.Type
		list, conn   bool
		nullable     bool
	}{
		{"id", "ID", reflect.TypeOf(""), false, false, false},
		{"title", "Title", reflect.TypeOf(""), false, false, false},
		{"priority", "Priority", reflect.TypeOf(0), false, false, false},
		{"dueDate", "DueDate", reflect.TypeOf(""), false, false, true},
		{"labels", "Labels", reflect.TypeOf(Label{}), true, true, false},
		{"assignees", "Assignees", reflect.TypeOf(Label{}), true, true, true},
		{"tags", "Tags", reflect.TypeOf(""), true, false, false},
		{"realName", "Renamed", reflect.TypeOf(""), false, false, false},
		{"createdAt", "CreatedAt", reflect.TypeOf(time.Time{}), false, false, false},
	}
	if len(infos) != len(expected) {
		t.Fatalf("expected %d fields got %d", len(expected), len(infos))
	}
	for i, exp := range expected {
		got := infos[i]
		Assertf(t, got.Name == exp.name, "Name      %10s: expected %q got %q", exp.goName, exp.name, got.Name)
		Assertf(t, got.GoName == exp.goName, "GoName    %10s: got %q", exp.goName, got.GoName)
		Assertf(t, got.Type == exp.typ, "Type      %10s: expected %v got %v", exp.goName, exp.typ, got.Type)
		Assertf(t, got.List == exp.list, "List      %10s: expected %v got %v", exp.goName, exp.list, got.List)
		Assertf(t, got.Connection == exp.conn, "Connection%10s: expected %v got %v", exp.goName, exp.conn, got.Connection)
		Assertf(t, got.Nullable == exp.nullable, "Nullable  %10s: expected %v got %v", exp.goName, exp.nullable, got.Nullable)
	}
	Assertf(t, infos[7].Comment == "override json name", "Comment: got %q", infos[7].Comment)
}

func TestFieldErrors(t *testing.T) {
	tests := map[string]interface{}{
		"not_struct":      42,
		"bad_option":      struct{ A string `linear:",bogus"` }{},
		"conn_not_slice":  struct{ A string `linear:",connection"` }{},
		"unmatched_quote": struct{ A string `linear:"\"a"` }{},
	}
	for name, v := range tests {
		_, err := field.Fields(reflect.TypeOf(v))
		Assertf(t, err != nil, "%16s: expected error", name)
	}
}

func TestSplit(t *testing.T) {
	tests := map[string]struct {
		in      string
		parts   []string
		comment string
		isErr   bool
	}{
		"empty":      {"", []string{""}, "", false},
		"one":        {" a ", []string{"a"}, "", false},
		"two":        {"a,b", []string{"a", "b"}, "", false},
		"blank":      {",", []string{"", ""}, "", false},
		"brackets":   {"a(b,c), d[e,f], g{h,i}", []string{"a(b,c)", "d[e,f]", "g{h,i}"}, "", false},
		"string":     {`"a,b",c`, []string{`"a,b"`, "c"}, "", false},
		"comment":    {"a,b # the rest, with commas", []string{"a", "b"}, " the rest, with commas", false},
		"hash_quote": {`"#",b#c`, []string{`"#"`, "b"}, "c", false},
		"hash_brkt":  {`(#)#c`, []string{`(#)`}, "c", false},
		"unmatched":  {"a(b", nil, "", true},
		"mismatched": {"a(b]", nil, "", true},
		"close_only": {"a)", nil, "", true},
		"quote":      {`"abc`, nil, "", true},
	}

	for name, test := range tests {
		parts, comment, err := field.Split(test.in)
		Assertf(t, (err != nil) == test.isErr, "Error  : %10s: expected error %v got %v", name, test.isErr, err)
		if test.isErr {
			continue
		}
		Assertf(t, reflect.DeepEqual(parts, test.parts), "Parts  : %10s: expected %q got %q", name, test.parts, parts)
		Assertf(t, comment == test.comment, "Comment: %10s: expected %q got %q", name, test.comment, comment)
	}
}

func TestParseTag(t *testing.T) {
	tests := map[string]struct {
		in       string
		expected *field.Tag
	}{
		"empty":    {``, &field.Tag{}},
		"skip":     {`-`, nil},
		"name":     {`title`, &field.Tag{Name: "title"}},
		"conn":     {`,connection`, &field.Tag{Connection: true}},
		"all":      {`labels, connection, nullable # c`, &field.Tag{Name: "labels", Connection: true, Nullable: true, Comment: "c"}},
		"no_name":  {`,,nullable`, &field.Tag{Nullable: true}},
	}
	for name, test := range tests {
		got, err := field.ParseTag(test.in)
		Assertf(t, err == nil, "%8s: unexpected error %v", name, err)
		Assertf(t, reflect.DeepEqual(got, test.expected), "%8s: expected %+v got %+v", name, test.expected, got)
	}
}

func Assertf(t *testing.T, succeeded bool, format string, args ...interface{}) {
	const (
		succeed = "✓" // tick
		failed  = "X"      //"✗" // cross
	)

	t.Helper()
	if !succeeded {
		t.Errorf("%s\t"+format, append([]interface{}{failed}, args...)...)
	} else {
		t.Logf("%s\t"+format, append([]interface{}{succeed}, args...)...)
	}
}
