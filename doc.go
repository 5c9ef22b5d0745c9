// Package linearql is a client for the Linear (https://linear.app) GraphQL API.
// (LINEARQL is just LINEAR + GraphQL.)

// Its main feature is that you never have to worry about pagination.  Any list in a
// Linear result is a "connection" - an object with the nodes of one page and a pageInfo
// that says if there are more.  The client finds every connection in a result, at any
// depth and whatever the field is called, and fetches the remaining pages for you.
// For example, here is a complete program that lists every issue of a team:

//package main
//
//import (
//	"context"
//	"fmt"
//
//	"github.com/andrewwphillips/linearql"
//)
//
//func main() {
//	client := linearql.MustNew("") // uses LINEAR_API_KEY
//	data, err := client.Execute(context.Background(), `query($cursor: String) {
//	  team(id: "ENG") { issues(after: $cursor) { nodes { identifier title } pageInfo { hasNextPage endCursor } } }
//	}`, nil)
//	if err != nil {
//		panic(err)
//	}
//	fmt.Println(data["team"])
//}

// The result contains all the issues, not just the first page.  Pages that can't be obtained
// don't cause an error - the connection keeps the nodes it has and ExecuteReport returns a
// Diagnostic saying what went wrong.

// There are also managers for the common objects (Teams, Projects, Users and Issues) that
// return Go structs and look up things by name, eg:
//	id, err := client.Teams.IDByName(ctx, "Engineering")
// Lookups are cached in memory (see CacheTTL) and optionally on disk (see Store).

package linearql

// TODO:
// subscriptions over the websocket transport (only single results are handled)
// rate-limit aware throttling using the X-RateLimit-Requests-Remaining header
