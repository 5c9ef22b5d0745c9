package main

// commands.go has the commands that use the client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andrewwphillips/linearql"
	"github.com/andrewwphillips/linearql/internal/render"
)

// models can be checked against the schema with the validate command
var models = []struct {
	typeName string
	model    interface{}
}{
	{"Team", linearql.Team{}},
	{"WorkflowState", linearql.State{}},
	{"Project", linearql.Project{}},
	{"User", linearql.User{}},
	{"IssueLabel", linearql.Label{}},
	{"Attachment", linearql.Attachment{}},
	{"Comment", linearql.Comment{}},
	{"Issue", linearql.Issue{}},
}

func (e *env) commands() []*cli.Command {
	teamFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "team", Aliases: []string{"t"}, Usage: "team name"}
	}
	return []*cli.Command{
		{
			Name:      "query",
			Usage:     "run a GraphQL query or mutation and print the result with all pages of every connection",
			ArgsUsage: "[QUERY | @FILE | -]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "variables", Usage: "variables as a JSON object"},
				&cli.StringSliceFlag{Name: "var", Usage: "a variable as NAME=VALUE (VALUE is JSON or a string)"},
				&cli.BoolFlag{Name: "no-unwrap", Usage: "only return the first page of connections"},
				&cli.BoolFlag{Name: "compact", Usage: "do not indent the JSON"},
				&cli.BoolFlag{Name: "strict", Usage: "fail (exit status 3) if any connection is incomplete"},
			},
			Action: e.query,
		},
		{Name: "teams", Usage: "list all teams", Action: e.teams},
		{Name: "states", Usage: "list the workflow states of a team", ArgsUsage: "TEAM", Action: e.states},
		{Name: "me", Usage: "show the user the API key belongs to", Action: e.me},
		{
			Name:  "resolve",
			Usage: "print the ID of something given its name",
			Subcommands: []*cli.Command{
				{Name: "team", ArgsUsage: "NAME", Action: e.resolveTeam},
				{Name: "state", ArgsUsage: "NAME", Flags: []cli.Flag{teamFlag()}, Action: e.resolveState},
				{Name: "project", ArgsUsage: "NAME", Flags: []cli.Flag{teamFlag()}, Action: e.resolveProject},
				{Name: "user", ArgsUsage: "NAME | EMAIL", Action: e.resolveUser},
			},
		},
		{
			Name:  "issue",
			Usage: "get, create or delete issues",
			Subcommands: []*cli.Command{
				{Name: "get", ArgsUsage: "ID", Usage: "print an issue as JSON (ID or identifier like ENG-123)", Action: e.issueGet},
				{
					Name:  "create",
					Usage: "create an issue and print its identifier and URL",
					Flags: []cli.Flag{
						teamFlag(),
						&cli.StringFlag{Name: "title", Required: true},
						&cli.StringFlag{Name: "description"},
						&cli.StringFlag{Name: "state", Usage: "workflow state name"},
						&cli.StringFlag{Name: "project", Usage: "project name"},
						&cli.IntFlag{Name: "priority", Value: -1, Usage: "0 (none), 1 (urgent) to 4 (low)"},
						&cli.StringFlag{Name: "assignee", Usage: "user name or email"},
						&cli.StringFlag{Name: "parent", Usage: "ID or identifier of the parent issue"},
						&cli.StringSliceFlag{Name: "label", Usage: "label ID"},
						&cli.StringFlag{Name: "metadata", Usage: "JSON object stored with the issue"},
					},
					Action: e.issueCreate,
				},
				{Name: "delete", ArgsUsage: "ID", Action: e.issueDelete},
			},
		},
		{
			Name:      "validate",
			Usage:     "check the domain types against the server's schema",
			ArgsUsage: "[TYPE...]",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "describe", Usage: "print the GraphQL type implied by each model instead"},
			},
			Action: e.validate,
		},
		e.serveCommand(),
	}
}

// arg returns the only argument of the command, or an error
func arg(c *cli.Context, what string) (string, error) {
	if c.Args().Len() != 1 {
		return "", fmt.Errorf("%s expects one argument: %s", c.Command.Name, what)
	}
	return c.Args().First(), nil
}

func (e *env) query(c *cli.Context) error {
	query, err := readQuery(c.Args().First(), c.App.Reader)
	if err != nil {
		return err
	}
	variables, err := parseVariables(c.String("variables"), c.StringSlice("var"))
	if err != nil {
		return err
	}
	client, err := e.connect()
	if err != nil {
		return err
	}
	if c.Bool("no-unwrap") {
		client.DisableUnwrapping()
	}

	data, diagnostics, err := client.ExecuteReport(c.Context, query, variables)
	if err != nil {
		var gqlErr *linearql.GraphQLError
		if errors.As(err, &gqlErr) && gqlErr.Data != nil {
			_ = e.printJSON(gqlErr.Data, query, c.Bool("compact"))
		}
		return err
	}
	for _, d := range diagnostics {
		fmt.Fprintln(e.stderr, "incomplete:", d)
	}
	if err := e.printJSON(data, query, c.Bool("compact")); err != nil {
		return err
	}
	if len(diagnostics) > 0 && c.Bool("strict") {
		return cli.Exit(fmt.Sprintf("%d connection(s) incomplete", len(diagnostics)), 3)
	}
	return nil
}

// printJSON writes data with the fields in the order of the query
func (e *env) printJSON(data map[string]interface{}, query string, compact bool) error {
	indent := "  "
	if compact {
		indent = ""
	}
	buf, err := render.JSON(data, query, indent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\n", buf)
	return err
}

// readQuery gets the query from the argument, a file (@name) or stdin (- or no argument)
func readQuery(arg string, stdin io.Reader) (string, error) {
	var buf []byte
	var err error
	switch {
	case arg == "" || arg == "-":
		buf, err = io.ReadAll(stdin)
	case strings.HasPrefix(arg, "@"):
		buf, err = os.ReadFile(arg[1:])
	default:
		return arg, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w reading query", err)
	}
	if strings.TrimSpace(string(buf)) == "" {
		return "", errors.New("no query")
	}
	return string(buf), nil
}

// parseVariables combines a JSON object with NAME=VALUE pairs (which take precedence)
func parseVariables(object string, pairs []string) (map[string]interface{}, error) {
	variables := make(map[string]interface{})
	if object != "" {
		if err := json.Unmarshal([]byte(object), &variables); err != nil {
			return nil, fmt.Errorf("%w in --variables", err)
		}
	}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--var %q is not NAME=VALUE", pair)
		}
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value // not JSON so use the string
		}
		variables[name] = v
	}
	if len(variables) == 0 {
		return nil, nil
	}
	return variables, nil
}

func (e *env) table() *tabwriter.Writer {
	return tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
}

func (e *env) teams(c *cli.Context) error {
	client, err := e.connect()
	if err != nil {
		return err
	}
	teams, err := client.Teams.All(c.Context)
	if err != nil {
		return err
	}
	w := e.table()
	fmt.Fprintln(w, "KEY\tNAME\tID")
	for _, t := range teams {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Key, t.Name, t.ID)
	}
	return w.Flush()
}

func (e *env) states(c *cli.Context) error {
	name, err := arg(c, "TEAM")
	if err != nil {
		return err
	}
	client, err := e.connect()
	if err != nil {
		return err
	}
	teamID, err := client.Teams.IDByName(c.Context, name)
	if err != nil {
		return fmt.Errorf("%w: team %q", err, name)
	}
	states, err := client.Teams.States(c.Context, teamID)
	if err != nil {
		return err
	}
	w := e.table()
	fmt.Fprintln(w, "NAME\tTYPE\tID")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Type, s.ID)
	}
	return w.Flush()
}

func (e *env) me(c *cli.Context) error {
	client, err := e.connect()
	if err != nil {
		return err
	}
	me, err := client.Users.Me(c.Context)
	if err != nil {
		return err
	}
	org := ""
	if me.Organization != nil {
		org = " of " + me.Organization.Name
	}
	_, err = fmt.Fprintf(e.stdout, "%s <%s>%s (%s)\n", me.Name, me.Email, org, me.ID)
	return err
}

func (e *env) resolveTeam(c *cli.Context) error {
	return e.resolve(c, func(client *linearql.Client, name string) (string, error) {
		return client.Teams.IDByName(c.Context, name)
	})
}

func (e *env) resolveState(c *cli.Context) error {
	return e.resolve(c, func(client *linearql.Client, name string) (string, error) {
		teamID, err := e.teamID(c, client, true)
		if err != nil {
			return "", err
		}
		return client.Teams.StateIDByName(c.Context, name, teamID)
	})
}

func (e *env) resolveProject(c *cli.Context) error {
	return e.resolve(c, func(client *linearql.Client, name string) (string, error) {
		teamID, err := e.teamID(c, client, false)
		if err != nil {
			return "", err
		}
		return client.Projects.IDByName(c.Context, name, teamID)
	})
}

func (e *env) resolveUser(c *cli.Context) error {
	return e.resolve(c, func(client *linearql.Client, name string) (string, error) {
		if strings.Contains(name, "@") {
			return client.Users.IDByEmail(c.Context, name)
		}
		return client.Users.IDByName(c.Context, name)
	})
}

// resolve prints the ID found by lookup for the command's argument
func (e *env) resolve(c *cli.Context, lookup func(*linearql.Client, string) (string, error)) error {
	name, err := arg(c, "NAME")
	if err != nil {
		return err
	}
	client, err := e.connect()
	if err != nil {
		return err
	}
	id, err := lookup(client, name)
	if err != nil {
		return fmt.Errorf("%w: %s %q", err, c.Command.Name, name)
	}
	_, err = fmt.Fprintln(e.stdout, id)
	return err
}

// teamID looks up the team given by --team ("" if not given and not required)
func (e *env) teamID(c *cli.Context, client *linearql.Client, required bool) (string, error) {
	name := c.String("team")
	if name == "" {
		if required {
			return "", errors.New("--team is required")
		}
		return "", nil
	}
	id, err := client.Teams.IDByName(c.Context, name)
	if err != nil {
		return "", fmt.Errorf("%w: team %q", err, name)
	}
	return id, nil
}

func (e *env) issueGet(c *cli.Context) error {
	id, err := arg(c, "ID")
	if err != nil {
		return err
	}
	client, err := e.connect()
	if err != nil {
		return err
	}
	issue, err := client.Issues.Get(c.Context, id)
	if err != nil {
		return fmt.Errorf("%w: issue %s", err, id)
	}
	buf, err := json.MarshalIndent(struct {
		*linearql.Issue
		Metadata map[string]interface{} `json:"metadata,omitempty"`
	}{issue, issue.Metadata}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\n", buf)
	return err
}

func (e *env) issueCreate(c *cli.Context) error {
	in := linearql.IssueInput{
		Title:       c.String("title"),
		TeamName:    c.String("team"),
		Description: c.String("description"),
		StateName:   c.String("state"),
		ProjectName: c.String("project"),
		ParentID:    c.String("parent"),
		LabelIDs:    c.StringSlice("label"),
	}
	if p := c.Int("priority"); p >= 0 {
		priority := linearql.Priority(p)
		in.Priority = &priority
	}
	if m := c.String("metadata"); m != "" {
		if err := json.Unmarshal([]byte(m), &in.Metadata); err != nil {
			return fmt.Errorf("%w in --metadata", err)
		}
	}
	// check before looking up the assignee
	if err := in.Validate(); err != nil {
		return err
	}

	client, err := e.connect()
	if err != nil {
		return err
	}
	if assignee := c.String("assignee"); assignee != "" {
		lookup := client.Users.IDByName
		if strings.Contains(assignee, "@") {
			lookup = client.Users.IDByEmail
		}
		if in.AssigneeID, err = lookup(c.Context, assignee); err != nil {
			return fmt.Errorf("%w: assignee %q", err, assignee)
		}
	}

	issue, err := client.Issues.Create(c.Context, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(e.stdout, "%s\t%s\n", issue.Identifier, issue.URL)
	return err
}

func (e *env) issueDelete(c *cli.Context) error {
	id, err := arg(c, "ID")
	if err != nil {
		return err
	}
	client, err := e.connect()
	if err != nil {
		return err
	}
	return client.Issues.Delete(c.Context, id)
}

func (e *env) validate(c *cli.Context) error {
	wanted := make(map[string]bool)
	for _, name := range c.Args().Slice() {
		wanted[name] = true
	}
	var client *linearql.Client
	if !c.Bool("describe") {
		var err error
		if client, err = e.connect(); err != nil {
			return err
		}
	}

	invalid := 0
	for _, m := range models {
		if len(wanted) > 0 && !wanted[m.typeName] {
			continue
		}
		delete(wanted, m.typeName)
		if client == nil {
			def, err := linearql.DescribeModel(m.model, m.typeName)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.stdout, def)
			continue
		}
		report, err := client.ValidateModel(c.Context, m.model, m.typeName)
		if err != nil {
			return err
		}
		if !report.Valid() {
			invalid++
		}
		fmt.Fprintln(e.stdout, report)
	}
	if len(wanted) > 0 {
		var names []string
		for name := range wanted {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("no model for type(s) %s", strings.Join(names, ", "))
	}
	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d model(s) do not match the schema", invalid), 2)
	}
	return nil
}
