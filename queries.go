package linearql

// queries.go has the GraphQL documents sent by the managers

const (
	teamFields    = `id name key description color icon createdAt updatedAt`
	stateFields   = `id name color type`
	projectFields = `id name description slugId url color priority progress status { type } startDate targetDate createdAt updatedAt`
	userFields    = `id name displayName email avatarUrl active admin guest isMe timezone organization { id name } createdAt updatedAt`
	issueFields   = `id identifier number title description url priority priorityLabel estimate
    state { ` + stateFields + ` }
    team { id name key }
    project { id name }
    assignee { id name displayName email }
    creator { id name displayName email }
    parent { id identifier title }
    labels { nodes { id name color } pageInfo { hasNextPage endCursor } }
    attachments { nodes { ` + attachmentFields + ` } pageInfo { hasNextPage endCursor } }
    dueDate createdAt updatedAt completedAt archivedAt`
	attachmentFields = `id url title subtitle metadata createdAt updatedAt`
	pageInfo         = `pageInfo { hasNextPage endCursor }`
)

const (
	queryTeam = `query Team($id: String!, $cursor: String) {
  team(id: $id) {
    ` + teamFields + `
    states(after: $cursor) { nodes { ` + stateFields + ` } ` + pageInfo + ` }
  }
}`
	queryTeams = `query Teams($cursor: String) {
  teams(first: 100, after: $cursor) { nodes { ` + teamFields + ` } ` + pageInfo + ` }
}`
	queryStates = `query States($teamId: ID!, $cursor: String) {
  workflowStates(filter: { team: { id: { eq: $teamId } } }, first: 100, after: $cursor) {
    nodes { ` + stateFields + ` team { id name key } }
    ` + pageInfo + `
  }
}`

	queryProject = `query Project($id: String!) {
  project(id: $id) { ` + projectFields + ` }
}`
	queryProjects = `query Projects($cursor: String) {
  projects(first: 100, after: $cursor) { nodes { ` + projectFields + ` } ` + pageInfo + ` }
}`
	queryTeamProjects = `query TeamProjects($teamId: String!, $cursor: String) {
  team(id: $teamId) {
    projects(first: 100, after: $cursor) { nodes { ` + projectFields + ` } ` + pageInfo + ` }
  }
}`
	mutationProjectCreate = `mutation ProjectCreate($input: ProjectCreateInput!) {
  projectCreate(input: $input) { success project { id } }
}`
	mutationProjectUpdate = `mutation ProjectUpdate($id: String!, $input: ProjectUpdateInput!) {
  projectUpdate(id: $id, input: $input) { success project { id } }
}`
	mutationProjectDelete = `mutation ProjectDelete($id: String!) {
  projectDelete(id: $id) { success }
}`

	queryUser = `query User($id: String!) {
  user(id: $id) { ` + userFields + ` }
}`
	queryUsers = `query Users($cursor: String) {
  users(first: 100, after: $cursor) { nodes { id name displayName email } ` + pageInfo + ` }
}`
	queryViewer = `query Viewer {
  viewer { ` + userFields + ` }
}`

	queryIssue = `query Issue($id: String!) {
  issue(id: $id) {
    ` + issueFields + `
  }
}`
	queryTeamIssues = `query TeamIssues($teamId: ID!, $cursor: String) {
  issues(filter: { team: { id: { eq: $teamId } } }, first: 50, after: $cursor) {
    nodes { ` + issueFields + ` }
    ` + pageInfo + `
  }
}`
	queryProjectIssues = `query ProjectIssues($projectId: String!, $cursor: String) {
  project(id: $projectId) {
    issues(first: 50, after: $cursor) {
      nodes { ` + issueFields + ` }
      ` + pageInfo + `
    }
  }
}`
	queryIssues = `query Issues($cursor: String) {
  issues(first: 50, after: $cursor) {
    nodes { ` + issueFields + ` }
    ` + pageInfo + `
  }
}`
	queryIssueAttachments = `query IssueAttachments($id: String!, $cursor: String) {
  issue(id: $id) {
    attachments(first: 100, after: $cursor) { nodes { ` + attachmentFields + ` } ` + pageInfo + ` }
  }
}`
	queryIssueComments = `query IssueComments($id: String!, $cursor: String) {
  issue(id: $id) {
    comments(first: 100, after: $cursor) { nodes { id body user { id name displayName email } createdAt } ` + pageInfo + ` }
  }
}`
	mutationIssueCreate = `mutation IssueCreate($input: IssueCreateInput!) {
  issueCreate(input: $input) { success issue { id } }
}`
	mutationIssueUpdate = `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
  issueUpdate(id: $id, input: $input) { success issue { id } }
}`
	mutationIssueDelete = `mutation IssueDelete($id: String!) {
  issueDelete(id: $id) { success }
}`
	mutationAttachmentCreate = `mutation AttachmentCreate($input: AttachmentCreateInput!) {
  attachmentCreate(input: $input) { success attachment { ` + attachmentFields + ` } }
}`
)
