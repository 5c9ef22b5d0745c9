package linearql

// types.go has the Linear domain objects returned by the managers, and the inputs used to
// create and update them

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andrewwphillips/linearql/internal/unwrap"
)

type (
	// Executor runs a GraphQL request, returning the "data" of the response (see WithExecutor)
	Executor = unwrap.Executor

	// ExecutorFunc allows an ordinary function to be used as an Executor
	ExecutorFunc = unwrap.ExecutorFunc

	// Diagnostic describes a connection that could not be completely unwrapped (see ExecuteReport)
	Diagnostic = unwrap.Diagnostic
)

// Priority of an issue or project
type Priority int

const (
	PriorityNone Priority = iota
	PriorityUrgent
	PriorityHigh
	PriorityMedium
	PriorityLow
)

// GraphQLType gives the name of the scalar in the Linear schema (Linear returns priorities as Float)
func (Priority) GraphQLType() string { return "Float" }

// Valid is true for the priorities the API accepts
func (p Priority) Valid() bool {
	return p >= PriorityNone && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityNone:
		return "No priority"
	case PriorityUrgent:
		return "Urgent"
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

type (
	// PageInfo is the pagination state of a connection
	PageInfo struct {
		HasNextPage bool    `json:"hasNextPage"`
		EndCursor   *string `json:"endCursor"`
	}

	// Connection is one page of a paginated list
	Connection[T any] struct {
		Nodes    []T      `json:"nodes"`
		PageInfo PageInfo `json:"pageInfo"`
	}

	Organization struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	// Team is a Linear team - States is only filled in by Teams.Get
	Team struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Key         string  `json:"key"`
		Description *string `json:"description"`
		Color       *string `json:"color"`
		Icon        *string `json:"icon"`
		CreatedAt   *Time   `json:"createdAt"`
		UpdatedAt   *Time   `json:"updatedAt"`
		States      []State `json:"states,omitempty" linear:",connection"`
	}

	// State is a workflow state of a team (eg "Todo" or "In Progress")
	State struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Type  string `json:"type"` // eg backlog, unstarted, started, completed, canceled
		Team  *Team  `json:"team,omitempty"`
	}

	ProjectStatus struct {
		Type string `json:"type"`
	}

	Project struct {
		ID          string         `json:"id"`
		Name        string         `json:"name"`
		Description string         `json:"description"`
		SlugID      string         `json:"slugId"`
		URL         string         `json:"url"`
		Color       string         `json:"color"`
		Priority    Priority       `json:"priority"`
		Progress    float64        `json:"progress"`
		Status      *ProjectStatus `json:"status"`
		StartDate   *Date          `json:"startDate"`
		TargetDate  *Date          `json:"targetDate"`
		CreatedAt   *Time          `json:"createdAt"`
		UpdatedAt   *Time          `json:"updatedAt"`
	}

	User struct {
		ID           string        `json:"id"`
		Name         string        `json:"name"`
		DisplayName  string        `json:"displayName"`
		Email        string        `json:"email"`
		AvatarURL    *string       `json:"avatarUrl"`
		Active       bool          `json:"active"`
		Admin        bool          `json:"admin"`
		Guest        bool          `json:"guest"`
		IsMe         bool          `json:"isMe"`
		Timezone     *string       `json:"timezone"`
		Organization *Organization `json:"organization"`
		CreatedAt    *Time         `json:"createdAt"`
		UpdatedAt    *Time         `json:"updatedAt"`
	}

	Label struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}

	Attachment struct {
		ID        string                 `json:"id"`
		URL       string                 `json:"url"`
		Title     string                 `json:"title"`
		Subtitle  *string                `json:"subtitle"`
		Metadata  map[string]interface{} `json:"metadata"`
		CreatedAt *Time                  `json:"createdAt"`
		UpdatedAt *Time                  `json:"updatedAt"`
	}

	Comment struct {
		ID        string `json:"id"`
		Body      string `json:"body"`
		User      *User  `json:"user"`
		CreatedAt *Time  `json:"createdAt"`
	}

	// IssueRef is a reference to another issue (eg the parent of a sub-issue)
	IssueRef struct {
		ID         string `json:"id"`
		Identifier string `json:"identifier"`
		Title      string `json:"title"`
	}

	Issue struct {
		ID            string       `json:"id"`
		Identifier    string       `json:"identifier"` // eg "ENG-123"
		Number        float64      `json:"number"`
		Title         string       `json:"title"`
		Description   *string      `json:"description"`
		URL           string       `json:"url"`
		Priority      Priority     `json:"priority"`
		PriorityLabel string       `json:"priorityLabel"`
		Estimate      *float64     `json:"estimate"`
		State         *State       `json:"state"`
		Team          *Team        `json:"team"`
		Project       *Project     `json:"project"`
		Assignee      *User        `json:"assignee"`
		Creator       *User        `json:"creator"`
		Parent        *IssueRef    `json:"parent"`
		Labels        []Label      `json:"labels" linear:",connection"`
		Attachments   []Attachment `json:"attachments" linear:",connection"`
		DueDate       *Date        `json:"dueDate"`
		CreatedAt     *Time        `json:"createdAt"`
		UpdatedAt     *Time        `json:"updatedAt"`
		CompletedAt   *Time        `json:"completedAt"`
		ArchivedAt    *Time        `json:"archivedAt"`

		// Metadata is taken from the attachment created by Issues.Create (see MetadataURL)
		Metadata map[string]interface{} `json:"-" linear:"-"`
	}
)

// KnownMissingFields lists Issue fields of the Linear schema that are deliberately not in the struct
func (Issue) KnownMissingFields() []string {
	return []string{"history", "comments", "children", "subscribers", "relations", "inverseRelations"}
}

// MetadataURL is the URL of the attachment used to store an issue's metadata
func MetadataURL(issueID string) string {
	return "urn:linear:metadata:" + issueID
}

type (
	// IssueInput is used to create an issue.  Team, state and project are given by name.
	IssueInput struct {
		Title       string // required
		TeamName    string // required
		Description string
		Priority    *Priority
		StateName   string
		ProjectName string
		AssigneeID  string
		ParentID    string
		LabelIDs    []string
		DueDate     *time.Time
		Estimate    *float64
		Metadata    map[string]interface{} // stored in an attachment (see MetadataURL)
	}

	// IssueUpdate has the fields to change in an issue - nil fields are left alone
	IssueUpdate struct {
		Title       *string
		Description *string
		Priority    *Priority
		TeamName    *string
		StateName   *string
		ProjectName *string
		AssigneeID  *string
		ParentID    *string
		LabelIDs    []string
		DueDate     *time.Time
		Estimate    *float64
		Metadata    map[string]interface{}
	}

	// AttachmentInput is used to add an attachment (a link) to an issue
	AttachmentInput struct {
		IssueID  string // required
		URL      string // required
		Title    string // required
		Subtitle string
		Metadata map[string]interface{}
	}

	// ProjectUpdate has the fields to change in a project - nil fields are left alone
	ProjectUpdate struct {
		Name        *string
		Description *string
		Color       *string
		Priority    *Priority
		StartDate   *time.Time
		TargetDate  *time.Time
	}
)

// invalid wraps the problems found by a Validate method in ErrInvalidInput
func invalid(what string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w %s: %w", ErrInvalidInput, what, errors.Join(errs...))
}

// Validate checks the input before anything is sent to the server
func (in *IssueInput) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if strings.TrimSpace(in.TeamName) == "" {
		errs = append(errs, errors.New("team name is required"))
	}
	if in.Priority != nil && !in.Priority.Valid() {
		errs = append(errs, fmt.Errorf("priority %d out of range", int(*in.Priority)))
	}
	if in.Estimate != nil && *in.Estimate < 0 {
		errs = append(errs, errors.New("estimate must not be negative"))
	}
	return invalid("issue", errs)
}

// Validate checks the update before anything is sent to the server
func (up *IssueUpdate) Validate() error {
	var errs []error
	if up.empty() {
		errs = append(errs, errors.New("no fields to update"))
	}
	if up.Title != nil && strings.TrimSpace(*up.Title) == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	if up.Priority != nil && !up.Priority.Valid() {
		errs = append(errs, fmt.Errorf("priority %d out of range", int(*up.Priority)))
	}
	if up.Estimate != nil && *up.Estimate < 0 {
		errs = append(errs, errors.New("estimate must not be negative"))
	}
	return invalid("issue update", errs)
}

func (up *IssueUpdate) empty() bool {
	return up.Title == nil && up.Description == nil && up.Priority == nil && up.TeamName == nil &&
		up.StateName == nil && up.ProjectName == nil && up.AssigneeID == nil && up.ParentID == nil &&
		up.LabelIDs == nil && up.DueDate == nil && up.Estimate == nil && up.Metadata == nil
}

// Validate checks the attachment before anything is sent to the server
func (in *AttachmentInput) Validate() error {
	var errs []error
	if in.IssueID == "" {
		errs = append(errs, errors.New("issue ID is required"))
	}
	if in.URL == "" {
		errs = append(errs, errors.New("URL is required"))
	}
	if in.Title == "" {
		errs = append(errs, errors.New("title is required"))
	}
	return invalid("attachment", errs)
}

// Validate checks the update before anything is sent to the server
func (up *ProjectUpdate) Validate() error {
	var errs []error
	if up.Name == nil && up.Description == nil && up.Color == nil && up.Priority == nil &&
		up.StartDate == nil && up.TargetDate == nil {
		errs = append(errs, errors.New("no fields to update"))
	}
	if up.Name != nil && strings.TrimSpace(*up.Name) == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if up.Priority != nil && !up.Priority.Valid() {
		errs = append(errs, fmt.Errorf("priority %d out of range", int(*up.Priority)))
	}
	return invalid("project update", errs)
}
