package linearql

// issues.go implements the Issues manager, including attachments and comments of issues

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Issues creates, gets, updates and deletes issues.  Issues are not cached as they change often.
type Issues struct {
	client *Client
}

func newIssues(c *Client) *Issues {
	return &Issues{client: c}
}

// Get returns an issue, by ID or identifier (eg "ENG-123")
func (is *Issues) Get(ctx context.Context, id string) (*Issue, error) {
	issue, err := get[Issue](ctx, is.client, queryIssue, map[string]interface{}{"id": id}, "issue")
	if err != nil {
		return nil, fmt.Errorf("%w getting issue %s", err, id)
	}
	issue.Metadata = metadataOf(issue)
	return issue, nil
}

// Create makes a new issue.  The team, state and project names are resolved to IDs first.
// If in.ParentID is given the new issue is made a sub-issue of it, and any in.Metadata
// is stored in an attachment of the new issue (see MetadataURL).
func (is *Issues) Create(ctx context.Context, in IssueInput) (*Issue, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	teamID, err := is.client.Teams.IDByName(ctx, in.TeamName)
	if err != nil {
		return nil, err
	}

	// the ID is chosen here so that a retried request can't create a second issue
	input := map[string]interface{}{
		"id":     uuid.NewString(),
		"title":  in.Title,
		"teamId": teamID,
	}
	if in.Description != "" {
		input["description"] = in.Description
	}
	if in.Priority != nil {
		input["priority"] = int(*in.Priority)
	}
	if in.StateName != "" {
		if input["stateId"], err = is.client.Teams.StateIDByName(ctx, in.StateName, teamID); err != nil {
			return nil, err
		}
	}
	if in.ProjectName != "" {
		if input["projectId"], err = is.client.Projects.IDByName(ctx, in.ProjectName, teamID); err != nil {
			return nil, err
		}
	}
	if in.AssigneeID != "" {
		input["assigneeId"] = in.AssigneeID
	}
	if len(in.LabelIDs) > 0 {
		input["labelIds"] = in.LabelIDs
	}
	if in.DueDate != nil {
		input["dueDate"] = in.DueDate.Format(dateFormat)
	}
	if in.Estimate != nil {
		input["estimate"] = *in.Estimate
	}

	r, err := is.client.mutate(ctx, mutationIssueCreate, map[string]interface{}{"input": input}, "issueCreate")
	if err != nil {
		return nil, fmt.Errorf("%w creating issue %q", err, in.Title)
	}
	id, ok := lookupString(r, "issue", "id")
	if !ok {
		return nil, fmt.Errorf("%w: no ID for new issue %q", ErrOperationFailed, in.Title)
	}

	if in.ParentID != "" {
		vars := map[string]interface{}{"id": id, "input": map[string]interface{}{"parentId": in.ParentID}}
		if _, err := is.client.mutate(ctx, mutationIssueUpdate, vars, "issueUpdate"); err != nil {
			return nil, fmt.Errorf("%w setting parent of issue %s", err, id)
		}
	}
	if in.Metadata != nil {
		if err := is.attachMetadata(ctx, id, in.Metadata); err != nil {
			return nil, err
		}
	}
	return is.Get(ctx, id)
}

// Update changes the non-nil fields of up.  Names are resolved to IDs in the issue's team
// (or the new team if up.TeamName is set).
func (is *Issues) Update(ctx context.Context, id string, up IssueUpdate) (*Issue, error) {
	if err := up.Validate(); err != nil {
		return nil, err
	}
	input, err := is.updateInput(ctx, id, up)
	if err != nil {
		return nil, err
	}
	if len(input) > 0 {
		vars := map[string]interface{}{"id": id, "input": input}
		if _, err := is.client.mutate(ctx, mutationIssueUpdate, vars, "issueUpdate"); err != nil {
			return nil, fmt.Errorf("%w updating issue %s", err, id)
		}
	}
	if up.Metadata != nil {
		if err := is.attachMetadata(ctx, id, up.Metadata); err != nil {
			return nil, err
		}
	}
	return is.Get(ctx, id)
}

// updateInput converts an IssueUpdate to the variables of the issueUpdate mutation
func (is *Issues) updateInput(ctx context.Context, id string, up IssueUpdate) (map[string]interface{}, error) {
	input := make(map[string]interface{})
	var teamID string
	var err error
	switch {
	case up.TeamName != nil:
		if teamID, err = is.client.Teams.IDByName(ctx, *up.TeamName); err != nil {
			return nil, err
		}
		input["teamId"] = teamID
	case up.StateName != nil || up.ProjectName != nil:
		issue, err := is.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if issue.Team == nil {
			return nil, fmt.Errorf("%w: issue %s has no team", ErrNotFound, id)
		}
		teamID = issue.Team.ID
	}
	if up.StateName != nil {
		if input["stateId"], err = is.client.Teams.StateIDByName(ctx, *up.StateName, teamID); err != nil {
			return nil, err
		}
	}
	if up.ProjectName != nil {
		if input["projectId"], err = is.client.Projects.IDByName(ctx, *up.ProjectName, teamID); err != nil {
			return nil, err
		}
	}
	if up.Title != nil {
		input["title"] = *up.Title
	}
	if up.Description != nil {
		input["description"] = *up.Description
	}
	if up.Priority != nil {
		input["priority"] = int(*up.Priority)
	}
	if up.AssigneeID != nil {
		input["assigneeId"] = *up.AssigneeID
	}
	if up.ParentID != nil {
		input["parentId"] = *up.ParentID
	}
	if up.LabelIDs != nil {
		input["labelIds"] = up.LabelIDs
	}
	if up.DueDate != nil {
		input["dueDate"] = up.DueDate.Format(dateFormat)
	}
	if up.Estimate != nil {
		input["estimate"] = *up.Estimate
	}
	return input, nil
}

// Delete moves an issue to the trash
func (is *Issues) Delete(ctx context.Context, id string) error {
	if _, err := is.client.mutate(ctx, mutationIssueDelete, map[string]interface{}{"id": id}, "issueDelete"); err != nil {
		return fmt.Errorf("%w deleting issue %s", err, id)
	}
	return nil
}

// ByTeam returns all the issues of the named team
func (is *Issues) ByTeam(ctx context.Context, teamName string) ([]Issue, error) {
	teamID, err := is.client.Teams.IDByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	return is.list(ctx, queryTeamIssues, map[string]interface{}{"teamId": teamID}, "issues")
}

// ByProject returns all the issues of a project
func (is *Issues) ByProject(ctx context.Context, projectID string) ([]Issue, error) {
	return is.list(ctx, queryProjectIssues, map[string]interface{}{"projectId": projectID}, "project", "issues")
}

// All returns every issue of the organization
func (is *Issues) All(ctx context.Context) ([]Issue, error) {
	return is.list(ctx, queryIssues, nil, "issues")
}

func (is *Issues) list(ctx context.Context, query string, vars map[string]interface{}, path ...string) ([]Issue, error) {
	issues, err := collect[Issue](ctx, is.client, query, vars, path...)
	if err != nil {
		return nil, fmt.Errorf("%w getting issues", err)
	}
	for i := range issues {
		issues[i].Metadata = metadataOf(&issues[i])
	}
	return issues, nil
}

// CreateAttachment adds an attachment to an issue
func (is *Issues) CreateAttachment(ctx context.Context, in AttachmentInput) (*Attachment, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	input := map[string]interface{}{
		"issueId": in.IssueID,
		"url":     in.URL,
		"title":   in.Title,
	}
	if in.Subtitle != "" {
		input["subtitle"] = in.Subtitle
	}
	if in.Metadata != nil {
		input["metadata"] = in.Metadata
	}
	r, err := is.client.mutate(ctx, mutationAttachmentCreate, map[string]interface{}{"input": input}, "attachmentCreate")
	if err != nil {
		return nil, fmt.Errorf("%w adding attachment to issue %s", err, in.IssueID)
	}
	attachment := new(Attachment)
	if err := decode(r["attachment"], attachment); err != nil {
		return nil, fmt.Errorf("%w decoding attachment", err)
	}
	return attachment, nil
}

// Attachments returns all the attachments of an issue
func (is *Issues) Attachments(ctx context.Context, issueID string) ([]Attachment, error) {
	return collect[Attachment](ctx, is.client, queryIssueAttachments, map[string]interface{}{"id": issueID}, "issue", "attachments")
}

// Comments returns all the comments of an issue
func (is *Issues) Comments(ctx context.Context, issueID string) ([]Comment, error) {
	return collect[Comment](ctx, is.client, queryIssueComments, map[string]interface{}{"id": issueID}, "issue", "comments")
}

// attachMetadata stores metadata in an attachment of the issue.  Linear updates (rather than
// duplicates) an attachment with the same URL, so this replaces any earlier metadata.
func (is *Issues) attachMetadata(ctx context.Context, issueID string, metadata map[string]interface{}) error {
	title, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%w encoding metadata", err)
	}
	_, err = is.CreateAttachment(ctx, AttachmentInput{
		IssueID:  issueID,
		URL:      MetadataURL(issueID),
		Title:    string(title),
		Metadata: metadata,
	})
	return err
}

// metadataOf returns the metadata stored by attachMetadata, if any
func metadataOf(issue *Issue) map[string]interface{} {
	for _, a := range issue.Attachments {
		if a.URL == MetadataURL(issue.ID) {
			return a.Metadata
		}
	}
	return nil
}
