package handler

// mutation.go implements the create, update and delete mutations of every collection, eg
// issueCreate(input: {...}), issueUpdate(id: "...", input: {...}) and issueDelete(id: "...")

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

var priorityLabels = []string{"No priority", "Urgent", "High", "Medium", "Low"}

// mutate runs the root fields of a mutation in order.  A field that fails is null (with an
// error) but later fields are still run, as for a query.
func (op *gqlOperation) mutate(ctx context.Context, set ast.SelectionSet) (interface{}, gqlerror.List) {
	var errs gqlerror.List
	r, err := op.selections(ctx, set, "Mutation", func(ctx context.Context, field *ast.Field) (interface{}, error) {
		v, err := op.mutation(ctx, field)
		if err != nil {
			errs = append(errs, &gqlerror.Error{
				Message: err.Error(),
				Path:    ast.Path{ast.PathName(responseKey(field))},
			})
			return nil, nil
		}
		return v, nil
	}, 0)
	if err != nil {
		return nil, append(errs, toGQLError(err))
	}
	return r, errs
}

func (op *gqlOperation) mutation(ctx context.Context, field *ast.Field) (interface{}, error) {
	args, err := op.arguments(field)
	if err != nil {
		return nil, err
	}
	for _, action := range []string{"Create", "Update", "Delete"} {
		entity, ok := strings.CutSuffix(field.Name, action)
		if !ok {
			continue
		}
		collection, ok := singular(entity)
		if !ok {
			break
		}
		var payload Object
		switch action {
		case "Create":
			payload, err = op.create(collection, args)
		case "Update":
			payload, err = op.update(collection, args)
		default:
			payload, err = op.delete(collection, args)
		}
		if err != nil {
			return nil, err
		}
		return op.payload(ctx, field.SelectionSet, entity, collection, payload)
	}
	return nil, fmt.Errorf("Cannot query field %q on type \"Mutation\"", field.Name)
}

// payload resolves the result of a mutation, eg { success issue { id } }
func (op *gqlOperation) payload(ctx context.Context, set ast.SelectionSet, entity, collection string, payload Object,
) (interface{}, error) {
	return op.selections(ctx, set, typeOf(collection)+"Payload", func(ctx context.Context, f *ast.Field) (interface{}, error) {
		if f.Name == entity {
			obj, _ := payload[entity].(Object)
			if obj == nil {
				return nil, nil
			}
			return op.object(ctx, f.SelectionSet, collection, obj, 1)
		}
		return op.value(ctx, f.SelectionSet, payload[f.Name], 1)
	}, 0)
}

func (op *gqlOperation) create(collection string, args map[string]interface{}) (Object, error) {
	input, ok := args["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("Argument Validation Error: input is required")
	}
	data := op.h.data
	now := op.h.now().UTC().Format(time.RFC3339Nano)

	if collection == "attachments" {
		// an attachment with the same URL on the same issue is updated rather than duplicated
		for _, existing := range data[collection] {
			if existing["issueId"] == input["issueId"] && existing["url"] == input["url"] {
				op.assign(collection, existing, input, now)
				return Object{"success": true, "lastSyncId": op.h.Requests(), "attachment": existing}, nil
			}
		}
	}

	obj := Object{"createdAt": now}
	if id, _ := input["id"].(string); id != "" {
		if data.find(collection, id) != nil {
			return nil, fmt.Errorf("Entity with id %q already exists", id)
		}
	} else {
		obj["id"] = uuid.NewString()
	}
	op.assign(collection, obj, input, now)

	switch collection {
	case "issues":
		team := data.find("teams", fmt.Sprint(obj["teamId"]))
		if team == nil {
			return nil, fmt.Errorf("Argument Validation Error: teamId %v not found", obj["teamId"])
		}
		number := 0
		for _, issue := range data["issues"] {
			if issue["teamId"] == team["id"] {
				n, _ := toInt(issue["number"])
				number = max(number, n)
			}
		}
		number++
		obj["number"] = int64(number)
		obj["identifier"] = fmt.Sprintf("%v-%d", team["key"], number)
		obj["url"] = fmt.Sprintf("https://linear.app/issue/%s", obj["identifier"])
		if _, ok := obj["stateId"]; !ok {
			if states := data.children(team, links["Team"]["states"]); len(states) > 0 {
				obj["stateId"] = states[0]["id"]
			}
		}
		if _, ok := obj["priority"]; !ok {
			op.assign(collection, obj, Object{"priority": int64(0)}, now)
		}
	case "projects":
		obj["slugId"] = strings.SplitN(obj["id"].(string), "-", 2)[0]
		obj["url"] = "https://linear.app/project/" + obj["slugId"].(string)
		obj["progress"] = 0.0
	}

	data[collection] = append(data[collection], obj)
	return Object{"success": true, "lastSyncId": op.h.Requests(), strings.TrimSuffix(collection, "s"): obj}, nil
}

func (op *gqlOperation) update(collection string, args map[string]interface{}) (Object, error) {
	input, ok := args["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("Argument Validation Error: input is required")
	}
	id, _ := args["id"].(string)
	obj := op.h.data.find(collection, id)
	if obj == nil {
		return nil, fmt.Errorf("Entity not found: %s", typeOf(collection))
	}
	op.assign(collection, obj, input, op.h.now().UTC().Format(time.RFC3339Nano))
	return Object{"success": true, "lastSyncId": op.h.Requests(), strings.TrimSuffix(collection, "s"): obj}, nil
}

func (op *gqlOperation) delete(collection string, args map[string]interface{}) (Object, error) {
	id, _ := args["id"].(string)
	obj := op.h.data.find(collection, id)
	if obj == nil {
		return nil, fmt.Errorf("Entity not found: %s", typeOf(collection))
	}
	op.h.data.remove(collection, obj["id"].(string))
	return Object{"success": true, "lastSyncId": op.h.Requests(), "entityId": obj["id"]}, nil
}

// assign copies the input fields to the object
func (op *gqlOperation) assign(collection string, obj Object, input map[string]interface{}, now string) {
	for key, v := range input {
		obj[key] = v
	}
	obj["updatedAt"] = now
	if collection == "issues" {
		if p, ok := toInt(obj["priority"]); ok && p >= 0 && p < len(priorityLabels) {
			obj["priorityLabel"] = priorityLabels[p]
		}
	}
}
