package handler

// data.go describes the in-memory data and how objects are related

import (
	"slices"
	"sort"
	"strings"
)

type (
	// Object is one entity (team, issue, etc) as decoded from JSON.  Relations are stored as IDs:
	// a "<field>Id" key for a single object (eg "teamId") or "<field>Ids" for a list (eg "labelIds").
	Object = map[string]interface{}

	// Data is all the entities, keyed by collection (root list field) name, eg "teams", "issues".
	// The special "organization" collection has one object.
	Data map[string][]Object

	// link says how the objects of a connection field are found
	link struct {
		collection string
		key        string // field of the child that holds the parent's ID (a string or list)
		local      bool   // key is a list of child IDs in the parent instead
	}
)

// types maps collection names to GraphQL type names
var types = map[string]string{
	"organization":   "Organization",
	"teams":          "Team",
	"workflowStates": "WorkflowState",
	"projects":       "Project",
	"users":          "User",
	"issues":         "Issue",
	"issueLabels":    "IssueLabel",
	"attachments":    "Attachment",
	"comments":       "Comment",
}

// refs maps object fields to the collection they refer to (via "<field>Id")
var refs = map[string]string{
	"team":     "teams",
	"state":    "workflowStates",
	"project":  "projects",
	"assignee": "users",
	"creator":  "users",
	"user":     "users",
	"parent":   "issues",
	"issue":    "issues",
}

// links are the connection fields of each type
var links = map[string]map[string]link{
	"Team": {
		"states":   {collection: "workflowStates", key: "teamId"},
		"issues":   {collection: "issues", key: "teamId"},
		"projects": {collection: "projects", key: "teamIds"},
		"members":  {collection: "users", key: "teamIds"},
		"labels":   {collection: "issueLabels", key: "teamId"},
	},
	"Project": {
		"issues": {collection: "issues", key: "projectId"},
		"teams":  {collection: "teams", key: "teamIds", local: true},
	},
	"User": {
		"assignedIssues": {collection: "issues", key: "assigneeId"},
		"teams":          {collection: "teams", key: "teamIds", local: true},
	},
	"Issue": {
		"labels":      {collection: "issueLabels", key: "labelIds", local: true},
		"attachments": {collection: "attachments", key: "issueId"},
		"comments":    {collection: "comments", key: "issueId"},
		"children":    {collection: "issues", key: "parentId"},
	},
	"WorkflowState": {
		"issues": {collection: "issues", key: "stateId"},
	},
}

// singular returns the collection for a root field that gets one object (eg "issue" -> "issues")
func singular(field string) (string, bool) {
	for collection := range types {
		if collection != "organization" && strings.TrimSuffix(collection, "s") == field {
			return collection, true
		}
	}
	return "", false
}

// typeOf returns the GraphQL type name of the objects of a collection
func typeOf(collection string) string {
	return types[collection]
}

// find returns the object of the collection with the id, or an identifier or key that is the
// same, eg team(id: "ENG") and issue(id: "ENG-1") work like Linear.
func (d Data) find(collection, id string) Object {
	for _, obj := range d[collection] {
		if obj["id"] == id || obj["identifier"] == id || obj["key"] == id || obj["slugId"] == id {
			return obj
		}
	}
	return nil
}

// children returns the objects of a connection field of parent (in collection order)
func (d Data) children(parent Object, l link) []Object {
	id, _ := parent["id"].(string)
	var r []Object
	if l.local {
		for _, childID := range idList(parent[l.key]) {
			if obj := d.find(l.collection, childID); obj != nil {
				r = append(r, obj)
			}
		}
		return r
	}
	for _, obj := range d[l.collection] {
		if obj[l.key] == id || slices.Contains(idList(obj[l.key]), id) {
			r = append(r, obj)
		}
	}
	return r
}

// remove deletes the object with the id from the collection
func (d Data) remove(collection, id string) bool {
	for i, obj := range d[collection] {
		if obj["id"] == id {
			d[collection] = append(d[collection][:i:i], d[collection][i+1:]...)
			return true
		}
	}
	return false
}

// Collections returns the names of the non-empty collections (sorted)
func (d Data) Collections() []string {
	r := make([]string, 0, len(d))
	for name, objects := range d {
		if len(objects) > 0 {
			r = append(r, name)
		}
	}
	sort.Strings(r)
	return r
}

// idList converts a decoded JSON list (or a Go []string) to a slice of its string elements
func idList(v interface{}) []string {
	switch v := v.(type) {
	case []string:
		return v
	case []interface{}:
		r := make([]string, 0, len(v))
		for _, elt := range v {
			if s, ok := elt.(string); ok {
				r = append(r, s)
			}
		}
		return r
	}
	return nil
}
