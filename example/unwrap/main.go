// Unwrap shows a client completing paginated connections, offline, against the demo server
// (which returns no more than 4 nodes per page).
package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"

	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql"
	"github.com/andrewwphillips/linearql/internal/handler"
	"github.com/andrewwphillips/linearql/internal/render"
)

const query = `query TeamIssues($cursor: String) {
  teams {
    nodes {
      key
      issues(after: $cursor) {
        nodes { identifier title }
        pageInfo { hasNextPage endCursor }
      }
    }
  }
}`

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	h := handler.New(handler.Demo(), handler.PageSize(4), handler.APIKey("lin_api_demo"), handler.Logger(logger))
	server := httptest.NewServer(h)
	defer server.Close()

	client := linearql.MustNew("lin_api_demo", linearql.Endpoint(server.URL), linearql.Logger(logger))
	data, diagnostics, err := client.ExecuteReport(context.Background(), query, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("query failed")
	}
	for _, d := range diagnostics {
		logger.Warn().Stringer("diagnostic", d).Msg("incomplete connection")
	}

	buf, err := render.JSON(data, query, "  ")
	if err != nil {
		logger.Fatal().Err(err).Send()
	}
	fmt.Println(string(buf))
	logger.Info().Int("requests", h.Requests()).Msg("done")
}
