package linearql

// teams.go implements the Teams manager: teams and their workflow states

import (
	"context"
	"fmt"

	"github.com/andrewwphillips/linearql/internal/cache"
)

// Teams gets teams and workflow states, caching the results (see CacheTTL)
type Teams struct {
	client *Client
	byID   *cache.TTL[*Team]
	all    *cache.TTL[[]Team]
	states *cache.TTL[[]State] // by team ID
	names  *nameIndex          // team names, ns "team"
	stateN *nameIndex          // state names, ns "state/<teamID>"
}

func newTeams(c *Client) *Teams {
	return &Teams{
		client: c,
		byID:   newCache[*Team](c, "team"),
		all:    newCache[[]Team](c, "teams"),
		states: newCache[[]State](c, "states"),
		names:  newNameIndex(c, "team"),
		stateN: newNameIndex(c, "state"),
	}
}

// Get returns a team, including its workflow states
func (t *Teams) Get(ctx context.Context, id string) (*Team, error) {
	return t.byID.GetOrLoad(id, func() (*Team, error) {
		team, err := get[Team](ctx, t.client, queryTeam, map[string]interface{}{"id": id}, "team")
		if err != nil {
			return nil, fmt.Errorf("%w getting team %s", err, id)
		}
		t.rememberStates(team.ID, team.States)
		return team, nil
	})
}

// All returns every team of the organization (without states)
func (t *Teams) All(ctx context.Context) ([]Team, error) {
	return t.all.GetOrLoad("", func() ([]Team, error) {
		teams, err := collect[Team](ctx, t.client, queryTeams, nil, "teams")
		if err != nil {
			return nil, fmt.Errorf("%w getting teams", err)
		}
		ids := make(map[string]string, len(teams))
		for _, team := range teams {
			ids[team.Name] = team.ID
		}
		t.names.add("team", ids)
		return teams, nil
	})
}

// IDByName returns the ID of the team with the given name, or ErrNotFound
func (t *Teams) IDByName(ctx context.Context, name string) (string, error) {
	return t.names.id("team", name, func() (map[string]string, error) {
		teams, err := t.All(ctx)
		if err != nil {
			return nil, err
		}
		ids := make(map[string]string, len(teams))
		for _, team := range teams {
			ids[team.Name] = team.ID
		}
		return ids, nil
	})
}

// States returns the workflow states of a team
func (t *Teams) States(ctx context.Context, teamID string) ([]State, error) {
	return t.states.GetOrLoad(teamID, func() ([]State, error) {
		states, err := collect[State](ctx, t.client, queryStates, map[string]interface{}{"teamId": teamID}, "workflowStates")
		if err != nil {
			return nil, fmt.Errorf("%w getting states of team %s", err, teamID)
		}
		t.stateN.add(stateNamespace(teamID), stateIDs(states))
		return states, nil
	})
}

// StateIDByName returns the ID of the named workflow state of a team, or ErrNotFound
func (t *Teams) StateIDByName(ctx context.Context, name, teamID string) (string, error) {
	return t.stateN.id(stateNamespace(teamID), name, func() (map[string]string, error) {
		states, err := t.States(ctx, teamID)
		if err != nil {
			return nil, err
		}
		return stateIDs(states), nil
	})
}

// InvalidateCache forgets all teams and states (including those in the store)
func (t *Teams) InvalidateCache() {
	t.byID.Clear()
	t.all.Clear()
	t.states.Clear()
	t.names.clear()
	t.stateN.clear()
}

// rememberStates caches the states that came with a team
func (t *Teams) rememberStates(teamID string, states []State) {
	if states == nil {
		return
	}
	t.states.Set(teamID, states)
	t.stateN.add(stateNamespace(teamID), stateIDs(states))
}

func stateNamespace(teamID string) string {
	return "state/" + teamID
}

func stateIDs(states []State) map[string]string {
	r := make(map[string]string, len(states))
	for _, s := range states {
		r[s.Name] = s.ID
	}
	return r
}
