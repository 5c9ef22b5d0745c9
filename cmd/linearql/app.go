package main

// app.go creates the command line app: global flags, config loading, logging and the client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/andrewwphillips/linearql"
	"github.com/andrewwphillips/linearql/internal/config"
	"github.com/andrewwphillips/linearql/internal/handler"
)

// demoKey is the API key of the demo server started by --demo
const demoKey = "lin_api_demo"

// env is shared by all commands of one run
type env struct {
	stdout, stderr io.Writer
	cfg            config.Config
	logger         zerolog.Logger
	client         *linearql.Client // created on first use
	demo           *http.Server     // nil unless --demo
}

func newApp(stdout, stderr io.Writer) *cli.App {
	e := &env{stdout: stdout, stderr: stderr}
	return &cli.App{
		Name:      "linearql",
		Usage:     "query the Linear GraphQL API with automatic pagination",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file (default " + config.DefaultPath() + ")"},
			&cli.StringFlag{Name: "api-key", Usage: "Linear API key (overrides $" + config.EnvAPIKey + ")"},
			&cli.StringFlag{Name: "endpoint", Usage: "GraphQL endpoint URL"},
			&cli.StringFlag{Name: "transport", Usage: `"http" or "ws" (graphql-transport-ws)`},
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error"},
			&cli.BoolFlag{Name: "demo", Usage: "use an in-process server with demo data instead of Linear"},
		},
		Before:   e.setup,
		After:    e.close,
		Commands: e.commands(),
		// errors are printed by main
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// setup loads the config and applies the global flags over it
func (e *env) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if c.IsSet("api-key") {
		cfg.APIKey = c.String("api-key")
	}
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}
	if c.IsSet("transport") {
		cfg.Transport = c.String("transport")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("%w in log level", err)
	}
	e.logger = zerolog.New(zerolog.ConsoleWriter{Out: e.stderr, NoColor: true}).
		Level(level).With().Timestamp().Logger()

	if c.Bool("demo") {
		return e.startDemo()
	}
	return nil
}

// startDemo serves the demo data on a loopback port and points the config at it
func (e *env) startDemo() error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("%w starting demo server", err)
	}
	e.demo = &http.Server{Handler: newDemoHandler(e.logger, handler.PageSize(10))}
	go func() {
		if err := e.demo.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error().Err(err).Msg("demo server stopped")
		}
	}()

	addr := listener.Addr().String()
	e.cfg.APIKey = demoKey
	e.cfg.Endpoint = "http://" + addr + "/graphql"
	e.cfg.WSEndpoint = "ws://" + addr + "/graphql"
	e.cfg.StorePath = "" // never mix demo IDs with real ones
	e.logger.Info().Str("addr", addr).Msg("using demo server")
	return nil
}

// newDemoHandler returns a handler serving the demo data (used by --demo and serve)
func newDemoHandler(logger zerolog.Logger, options ...func(*handler.Handler)) *handler.Handler {
	return handler.New(handler.Demo(), append([]func(*handler.Handler){
		handler.APIKey(demoKey),
		handler.Schema(handler.DemoSchema),
		handler.Logger(logger),
	}, options...)...)
}

func (e *env) close(*cli.Context) error {
	var err error
	if e.client != nil {
		err = e.client.Close()
	}
	if e.demo != nil {
		err = errors.Join(err, e.demo.Close())
	}
	return err
}

// connect returns the client, creating it from the config the first time
func (e *env) connect() (*linearql.Client, error) {
	if e.client != nil {
		return e.client, nil
	}
	cfg := e.cfg
	options := []linearql.Option{
		linearql.Endpoint(cfg.Endpoint),
		linearql.Logger(e.logger),
		linearql.CacheTTL(cfg.CacheTTL),
		linearql.Retry(cfg.Retry),
		linearql.MaxDepth(cfg.MaxDepth),
		linearql.MaxPages(cfg.MaxPages),
		linearql.Concurrency(cfg.Concurrency),
		linearql.QueryCursors(cfg.QueryCursors),
		linearql.Unwrapping(cfg.Unwrap),
	}
	if cfg.Transport == "ws" {
		options = append(options, linearql.WebSocketEndpoint(cfg.WSEndpoint))
	}
	if cfg.StorePath != "" {
		options = append(options, linearql.Store(cfg.StorePath, cfg.StoreTTL))
	}

	client, err := linearql.New(cfg.APIKey, options...)
	if err != nil {
		return nil, err
	}
	e.client = client
	return client, nil
}
