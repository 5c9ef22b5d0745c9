package handler

// demo.go has sample data and a matching schema, used by the tests, the command line tool's
// "serve" command and the example programs

import (
	"fmt"
	"time"
)

// DemoSchema is a cut-down version of the Linear schema covering the Demo data
const DemoSchema = `
scalar DateTime
scalar TimelessDate
scalar JSONObject

type PageInfo {
  hasNextPage: Boolean!
  hasPreviousPage: Boolean!
  startCursor: String
  endCursor: String
}

type Organization { id: ID! name: String! urlKey: String! }

type Team {
  id: ID!
  name: String!
  key: String!
  description: String
  color: String
  icon: String
  createdAt: DateTime!
  updatedAt: DateTime!
  states(first: Int, after: String, filter: JSONObject): WorkflowStateConnection!
  issues(first: Int, after: String, filter: JSONObject): IssueConnection!
  projects(first: Int, after: String, filter: JSONObject): ProjectConnection!
  members(first: Int, after: String, filter: JSONObject): UserConnection!
  labels(first: Int, after: String, filter: JSONObject): IssueLabelConnection!
}

type WorkflowState {
  id: ID!
  name: String!
  color: String!
  type: String!
  position: Float!
  team: Team!
  issues(first: Int, after: String, filter: JSONObject): IssueConnection!
}

type ProjectStatus { id: ID! name: String! type: String! }

type Project {
  id: ID!
  name: String!
  description: String!
  slugId: String!
  url: String!
  color: String!
  priority: Int!
  progress: Float!
  status: ProjectStatus!
  startDate: TimelessDate
  targetDate: TimelessDate
  createdAt: DateTime!
  updatedAt: DateTime!
  issues(first: Int, after: String, filter: JSONObject): IssueConnection!
  teams(first: Int, after: String, filter: JSONObject): TeamConnection!
}

type User {
  id: ID!
  name: String!
  displayName: String!
  email: String!
  avatarUrl: String
  active: Boolean!
  admin: Boolean!
  guest: Boolean!
  isMe: Boolean!
  timezone: String
  organization: Organization!
  createdAt: DateTime!
  updatedAt: DateTime!
  assignedIssues(first: Int, after: String, filter: JSONObject): IssueConnection!
  teams(first: Int, after: String, filter: JSONObject): TeamConnection!
}

type IssueLabel { id: ID! name: String! color: String! team: Team }

type Attachment {
  id: ID!
  url: String!
  title: String!
  subtitle: String
  metadata: JSONObject!
  issue: Issue!
  createdAt: DateTime!
  updatedAt: DateTime!
}

type Comment { id: ID! body: String! user: User issue: Issue! createdAt: DateTime! updatedAt: DateTime! }

type Issue {
  id: ID!
  identifier: String!
  number: Float!
  title: String!
  description: String
  url: String!
  priority: Float!
  priorityLabel: String!
  estimate: Float
  state: WorkflowState!
  team: Team!
  project: Project
  assignee: User
  creator: User
  parent: Issue
  labels(first: Int, after: String, filter: JSONObject): IssueLabelConnection!
  attachments(first: Int, after: String, filter: JSONObject): AttachmentConnection!
  comments(first: Int, after: String, filter: JSONObject): CommentConnection!
  children(first: Int, after: String, filter: JSONObject): IssueConnection!
  dueDate: TimelessDate
  createdAt: DateTime!
  updatedAt: DateTime!
  completedAt: DateTime
  archivedAt: DateTime
}

type TeamConnection { nodes: [Team!]! pageInfo: PageInfo! }
type WorkflowStateConnection { nodes: [WorkflowState!]! pageInfo: PageInfo! }
type ProjectConnection { nodes: [Project!]! pageInfo: PageInfo! }
type UserConnection { nodes: [User!]! pageInfo: PageInfo! }
type IssueLabelConnection { nodes: [IssueLabel!]! pageInfo: PageInfo! }
type AttachmentConnection { nodes: [Attachment!]! pageInfo: PageInfo! }
type CommentConnection { nodes: [Comment!]! pageInfo: PageInfo! }
type IssueConnection { nodes: [Issue!]! pageInfo: PageInfo! }

type Query {
  organization: Organization!
  viewer: User!
  team(id: String!): Team!
  teams(first: Int, after: String, filter: JSONObject): TeamConnection!
  workflowState(id: String!): WorkflowState!
  workflowStates(first: Int, after: String, filter: JSONObject): WorkflowStateConnection!
  project(id: String!): Project!
  projects(first: Int, after: String, filter: JSONObject): ProjectConnection!
  user(id: String!): User!
  users(first: Int, after: String, filter: JSONObject): UserConnection!
  issue(id: String!): Issue!
  issues(first: Int, after: String, filter: JSONObject): IssueConnection!
  issueLabels(first: Int, after: String, filter: JSONObject): IssueLabelConnection!
  attachments(first: Int, after: String, filter: JSONObject): AttachmentConnection!
  comments(first: Int, after: String, filter: JSONObject): CommentConnection!
}
`

var demoStates = []struct{ name, kind, color string }{
	{"Backlog", "backlog", "#bec2c8"},
	{"Todo", "unstarted", "#e2e2e2"},
	{"In Progress", "started", "#f2c94c"},
	{"Done", "completed", "#5e6ad2"},
	{"Canceled", "canceled", "#95a2b3"},
}

// Demo returns sample data: an organization with two teams (ENG and DES), their workflow
// states, three users, two projects and enough issues that listing them needs several pages.
func Demo() Data {
	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	at := func(days int) string {
		return created.AddDate(0, 0, days).Format(time.RFC3339Nano)
	}

	d := Data{
		"organization": {{"id": "O1", "name": "Acme", "urlKey": "acme"}},
		"teams": {
			{"id": "T1", "name": "Engineering", "key": "ENG", "description": "Builds the product",
				"color": "#5e6ad2", "icon": "Code", "createdAt": at(0), "updatedAt": at(0)},
			{"id": "T2", "name": "Design", "key": "DES", "description": nil,
				"color": "#f2994a", "icon": nil, "createdAt": at(1), "updatedAt": at(1)},
		},
		"users": {
			{"id": "U1", "name": "Alice Smith", "displayName": "alice", "email": "alice@example.com",
				"active": true, "admin": true, "guest": false, "isMe": true, "timezone": "Europe/London",
				"organization": map[string]interface{}{"id": "O1", "name": "Acme"},
				"teamIds": []interface{}{"T1", "T2"}, "createdAt": at(0), "updatedAt": at(0)},
			{"id": "U2", "name": "Bob Jones", "displayName": "bob", "email": "bob@example.com",
				"active": true, "admin": false, "guest": false, "isMe": false, "timezone": "America/New_York",
				"organization": map[string]interface{}{"id": "O1", "name": "Acme"},
				"teamIds": []interface{}{"T1"}, "createdAt": at(2), "updatedAt": at(2)},
			{"id": "U3", "name": "Carol White", "displayName": "carol", "email": "carol@example.com",
				"active": true, "admin": false, "guest": true, "isMe": false, "timezone": nil,
				"organization": map[string]interface{}{"id": "O1", "name": "Acme"},
				"teamIds": []interface{}{"T2"}, "createdAt": at(3), "updatedAt": at(3)},
		},
		"issueLabels": {
			{"id": "L1", "name": "bug", "color": "#eb5757", "teamId": "T1"},
			{"id": "L2", "name": "feature", "color": "#bb87fc", "teamId": "T1"},
			{"id": "L3", "name": "docs", "color": "#4ea7fc"},
		},
		"projects": {
			{"id": "P1", "name": "Launch", "description": "Version 1.0", "slugId": "launch1", "url": "https://linear.app/project/launch1",
				"color": "#26b5ce", "priority": int64(1), "progress": 0.25,
				"status": map[string]interface{}{"id": "PS2", "name": "In Progress", "type": "started"},
				"startDate": "2024-02-01", "targetDate": "2024-06-30",
				"teamIds": []interface{}{"T1", "T2"}, "createdAt": at(5), "updatedAt": at(20)},
			{"id": "P2", "name": "Cleanup", "description": "", "slugId": "cleanup2", "url": "https://linear.app/project/cleanup2",
				"color": "#bec2c8", "priority": int64(0), "progress": 0.0,
				"status": map[string]interface{}{"id": "PS1", "name": "Planned", "type": "planned"},
				"startDate": nil, "targetDate": nil,
				"teamIds": []interface{}{"T1"}, "createdAt": at(6), "updatedAt": at(6)},
		},
	}

	for _, team := range d["teams"] {
		for i, s := range demoStates {
			d["workflowStates"] = append(d["workflowStates"], Object{
				"id": fmt.Sprintf("S%d-%s", i+1, team["id"]), "name": s.name, "type": s.kind, "color": s.color,
				"position": float64(i), "teamId": team["id"],
			})
		}
	}

	// ENG-1 to ENG-12 and DES-1 to DES-3
	n := 0
	for _, t := range []struct {
		team, key string
		count     int
	}{{"T1", "ENG", 12}, {"T2", "DES", 3}} {
		for i := 1; i <= t.count; i++ {
			n++
			priority := int64(i % len(priorityLabels))
			issue := Object{
				"id": fmt.Sprintf("I%d", n), "identifier": fmt.Sprintf("%s-%d", t.key, i), "number": int64(i),
				"title": fmt.Sprintf("%s task %d", t.key, i), "description": nil,
				"url":      fmt.Sprintf("https://linear.app/acme/issue/%s-%d", t.key, i),
				"priority": priority, "priorityLabel": priorityLabels[priority], "estimate": nil,
				"stateId": fmt.Sprintf("S%d-%s", i%len(demoStates)+1, t.team), "teamId": t.team,
				"creatorId": "U1", "labelIds": []interface{}{}, "dueDate": nil,
				"createdAt": at(10 + n), "updatedAt": at(10 + n), "completedAt": nil, "archivedAt": nil,
			}
			if i%3 == 0 {
				issue["assigneeId"] = "U2"
			}
			if i <= 6 {
				issue["projectId"] = "P1"
			}
			if t.team == "T1" && i%2 == 1 {
				issue["labelIds"] = []interface{}{"L1"}
			}
			if t.team == "T1" && i%4 == 0 {
				issue["labelIds"] = []interface{}{"L2", "L3"}
				issue["estimate"] = float64(i / 4)
			}
			d["issues"] = append(d["issues"], issue)
		}
	}
	d["issues"][0]["title"] = "Fix login"
	d["issues"][0]["description"] = "Users cannot log in with SSO"
	d["issues"][0]["dueDate"] = "2024-05-01"
	d["issues"][1]["parentId"] = "I1"
	d["issues"][2]["parentId"] = "I1"

	for i, body := range []string{"Can reproduce", "Fixed in #42", "LGTM"} {
		d["comments"] = append(d["comments"], Object{
			"id": fmt.Sprintf("C%d", i+1), "body": body, "issueId": "I1",
			"userId": fmt.Sprintf("U%d", i%2+1), "createdAt": at(30 + i), "updatedAt": at(30 + i),
		})
	}
	d["attachments"] = []Object{
		{"id": "A1", "url": "https://github.com/acme/app/pull/42", "title": "PR #42", "subtitle": "merged",
			"metadata": map[string]interface{}{"status": "merged"}, "issueId": "I1", "createdAt": at(31), "updatedAt": at(31)},
	}
	return d
}
