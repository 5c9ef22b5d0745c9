// Command linearql runs GraphQL requests against Linear, completing every paginated connection
// in the results, and has commands for looking up teams, states, projects, users and issues.
//
//	linearql query '{ teams { nodes { id name } } }'
//	linearql resolve state --team Engineering "In Progress"
//	linearql issue create --team Engineering --title "Fix the build"
//	linearql serve --addr :8080        # offline server with demo data
//
// Any command can be pointed at the demo server instead of Linear with --demo.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "linearql:", err)
		code := 1
		var exit cli.ExitCoder
		if errors.As(err, &exit) {
			code = exit.ExitCode()
		}
		os.Exit(code)
	}
}
