package handler_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/andrewwphillips/linearql/internal/handler"
)

func TestMutation(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	h := handler.New(handler.Demo(), handler.Now(func() time.Time { return now }))

	// Create
	_, result := post(t, h, `mutation IssueCreate($input: IssueCreateInput!) {
	  issueCreate(input: $input) { success issue { id identifier title priorityLabel state { name } createdAt } }
	}`, `{"input": {"id": "new-1", "teamId": "T2", "title": "New page", "priority": 2}}`, "")
	expected := JsonObject{"issueCreate": JsonObject{"success": true, "issue": JsonObject{
		"id": "new-1", "identifier": "DES-4", "title": "New page", "priorityLabel": "High",
		"state": JsonObject{"name": "Backlog"}, "createdAt": "2024-06-01T12:00:00Z",
	}}}
	Assertf(t, result.Errors == nil, "Create: expected no error and got %v", result.Errors)
	Assertf(t, reflect.DeepEqual(result.Data, expected), "Create: expected %v, got %v", expected, result.Data)

	// The same ID cannot be used twice
	_, result = post(t, h, `mutation { issueCreate(input: {id: "new-1", teamId: "T2", title: "Again"}) { success } }`, "", "")
	Assertf(t, len(result.Errors) == 1 && strings.Contains(result.Errors[0].Message, "already exists"),
		"Create again: expected error, got %v", result.Errors)

	// Update
	_, result = post(t, h, `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
	  issueUpdate(id: $id, input: $input) { success issue { title state { name } } }
	}`, `{"id": "DES-4", "input": {"stateId": "S4-T2", "title": "Old page"}}`, "")
	expected = JsonObject{"issueUpdate": JsonObject{"success": true, "issue": JsonObject{
		"title": "Old page", "state": JsonObject{"name": "Done"},
	}}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "Update: expected %v, got %v", expected, result.Data)

	// Attachments with the same URL are replaced
	for _, title := range []string{"first", "second"} {
		_, result = post(t, h, `mutation AttachmentCreate($input: AttachmentCreateInput!) {
		  attachmentCreate(input: $input) { success attachment { title } }
		}`, `{"input": {"issueId": "new-1", "url": "urn:x", "title": "`+title+`", "metadata": {"n": 1}}}`, "")
		Assertf(t, result.Errors == nil, "Attach %s: expected no error and got %v", title, result.Errors)
	}
	_, result = post(t, h, `{ issue(id: "new-1") { attachments { nodes { title metadata } } } }`, "", "")
	expected = JsonObject{"issue": JsonObject{"attachments": JsonObject{"nodes": JsonList{
		JsonObject{"title": "second", "metadata": JsonObject{"n": float64(1)}},
	}}}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "Attachments: expected %v, got %v", expected, result.Data)

	// Delete
	_, result = post(t, h, `mutation { issueDelete(id: "new-1") { success entityId } }`, "", "")
	expected = JsonObject{"issueDelete": JsonObject{"success": true, "entityId": "new-1"}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "Delete: expected %v, got %v", expected, result.Data)

	_, result = post(t, h, `mutation { issueDelete(id: "new-1") { success } }`, "", "")
	Assertf(t, len(result.Errors) == 1 && strings.Contains(result.Errors[0].Message, "Entity not found"),
		"Delete again: expected error, got %v", result.Errors)
	Assertf(t, reflect.DeepEqual(result.Data, JsonObject{"issueDelete": nil}), "Delete again: got %v", result.Data)
}

func TestMutationProject(t *testing.T) {
	h := handler.New(handler.Demo())
	_, result := post(t, h, `mutation { projectCreate(input: {name: "Docs", teamIds: ["T2"]}) { success project { name teams { nodes { key } } } } }`, "", "")
	expected := JsonObject{"projectCreate": JsonObject{"success": true, "project": JsonObject{
		"name": "Docs", "teams": JsonObject{"nodes": JsonList{JsonObject{"key": "DES"}}},
	}}}
	Assertf(t, result.Errors == nil, "Expected no error and got %v", result.Errors)
	Assertf(t, reflect.DeepEqual(result.Data, expected), "Expected %v, got %v", expected, result.Data)

	_, result = post(t, h, `{ team(id: "DES") { projects { nodes { name } } } }`, "", "")
	expected = JsonObject{"team": JsonObject{"projects": JsonObject{"nodes": JsonList{
		JsonObject{"name": "Launch"}, JsonObject{"name": "Docs"},
	}}}}
	Assertf(t, reflect.DeepEqual(result.Data, expected), "Expected %v, got %v", expected, result.Data)

	_, result = post(t, h, `mutation { cycleCreate(input: {}) { success } }`, "", "")
	Assertf(t, len(result.Errors) == 1, "Expected an error for an unknown mutation, got %v", result.Errors)
}

func TestFail(t *testing.T) {
	h := handler.New(handler.Demo(), handler.Fail(func(name string, vars map[string]interface{}) error {
		if vars["cursor"] != nil {
			return errors.New("page unavailable")
		}
		return nil
	}))

	_, result := post(t, h, `query Teams($cursor: String) { teams(after: $cursor) { nodes { id } } }`, `{}`, "")
	Assertf(t, result.Errors == nil, "Expected no error and got %v", result.Errors)

	_, result = post(t, h, `query Teams($cursor: String) { teams(after: $cursor) { nodes { id } } }`, `{"cursor": "T1"}`, "")
	Assertf(t, len(result.Errors) == 1 && result.Errors[0].Message == "page unavailable", "Expected failure, got %v", result.Errors)
	Assertf(t, result.Data == nil, "Expected no data, got %v", result.Data)
}
