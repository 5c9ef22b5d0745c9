package linearql

// projects.go implements the Projects manager

import (
	"context"
	"fmt"

	"github.com/andrewwphillips/linearql/internal/cache"
)

// Projects creates, gets, updates and deletes projects
type Projects struct {
	client *Client
	byID   *cache.TTL[*Project]
	names  *nameIndex // ns "project/<teamID>" or "project/-" for all teams
}

func newProjects(c *Client) *Projects {
	return &Projects{
		client: c,
		byID:   newCache[*Project](c, "project"),
		names:  newNameIndex(c, "project"),
	}
}

// Get returns a project
func (p *Projects) Get(ctx context.Context, id string) (*Project, error) {
	return p.byID.GetOrLoad(id, func() (*Project, error) {
		project, err := get[Project](ctx, p.client, queryProject, map[string]interface{}{"id": id}, "project")
		if err != nil {
			return nil, fmt.Errorf("%w getting project %s", err, id)
		}
		return project, nil
	})
}

// Create makes a new project in the named team.  The description is optional.
func (p *Projects) Create(ctx context.Context, name, teamName, description string) (*Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	teamID, err := p.client.Teams.IDByName(ctx, teamName)
	if err != nil {
		return nil, err
	}
	input := map[string]interface{}{"name": name, "teamIds": []interface{}{teamID}}
	if description != "" {
		input["description"] = description
	}
	r, err := p.client.mutate(ctx, mutationProjectCreate, map[string]interface{}{"input": input}, "projectCreate")
	if err != nil {
		return nil, fmt.Errorf("%w creating project %q in team %q", err, name, teamName)
	}
	p.InvalidateCache()

	id, ok := lookupString(r, "project", "id")
	if !ok {
		return nil, fmt.Errorf("%w: no ID for new project %q", ErrOperationFailed, name)
	}
	return p.Get(ctx, id)
}

// Update changes the non-nil fields of up
func (p *Projects) Update(ctx context.Context, id string, up ProjectUpdate) (*Project, error) {
	if err := up.Validate(); err != nil {
		return nil, err
	}
	input := make(map[string]interface{})
	if up.Name != nil {
		input["name"] = *up.Name
	}
	if up.Description != nil {
		input["description"] = *up.Description
	}
	if up.Color != nil {
		input["color"] = *up.Color
	}
	if up.Priority != nil {
		input["priority"] = int(*up.Priority)
	}
	if up.StartDate != nil {
		input["startDate"] = up.StartDate.Format(dateFormat)
	}
	if up.TargetDate != nil {
		input["targetDate"] = up.TargetDate.Format(dateFormat)
	}
	if _, err := p.client.mutate(ctx, mutationProjectUpdate, map[string]interface{}{"id": id, "input": input}, "projectUpdate"); err != nil {
		return nil, fmt.Errorf("%w updating project %s", err, id)
	}
	p.InvalidateCache()
	return p.Get(ctx, id)
}

// Delete removes a project
func (p *Projects) Delete(ctx context.Context, id string) error {
	if _, err := p.client.mutate(ctx, mutationProjectDelete, map[string]interface{}{"id": id}, "projectDelete"); err != nil {
		return fmt.Errorf("%w deleting project %s", err, id)
	}
	p.InvalidateCache()
	return nil
}

// All returns the projects of a team, or of all teams if teamID is empty
func (p *Projects) All(ctx context.Context, teamID string) ([]Project, error) {
	var projects []Project
	var err error
	if teamID == "" {
		projects, err = collect[Project](ctx, p.client, queryProjects, nil, "projects")
	} else {
		projects, err = collect[Project](ctx, p.client, queryTeamProjects, map[string]interface{}{"teamId": teamID}, "team", "projects")
	}
	if err != nil {
		return nil, fmt.Errorf("%w getting projects", err)
	}
	for i := range projects {
		p.byID.Set(projects[i].ID, &projects[i])
	}
	p.names.add(projectNamespace(teamID), projectIDs(projects))
	return projects, nil
}

// IDByName returns the ID of the named project (in a team if teamID is not empty), or ErrNotFound
func (p *Projects) IDByName(ctx context.Context, name, teamID string) (string, error) {
	return p.names.id(projectNamespace(teamID), name, func() (map[string]string, error) {
		projects, err := p.All(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return projectIDs(projects), nil
	})
}

// InvalidateCache forgets all projects (including names in the store)
func (p *Projects) InvalidateCache() {
	p.byID.Clear()
	p.names.clear()
}

func projectNamespace(teamID string) string {
	if teamID == "" {
		teamID = "-"
	}
	return "project/" + teamID
}

func projectIDs(projects []Project) map[string]string {
	r := make(map[string]string, len(projects))
	for _, p := range projects {
		r[p.Name] = p.ID
	}
	return r
}

// lookupString returns the string at path in a decoded JSON object
func lookupString(m map[string]interface{}, path ...string) (string, bool) {
	var v interface{} = m
	for _, key := range path {
		obj, ok := v.(map[string]interface{})
		if !ok {
			return "", false
		}
		v = obj[key]
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
