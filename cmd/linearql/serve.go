package main

// serve.go runs the demo server so that other GraphQL clients can try connection unwrapping

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/andrewwphillips/linearql/internal/handler"
)

func (e *env) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve demo data as an imitation of the Linear API (HTTP POST and graphql-transport-ws on /graphql)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "address to listen on"},
			&cli.IntFlag{Name: "page-size", Value: 5, Usage: "largest page of any connection"},
			&cli.StringFlag{Name: "key", Value: demoKey, Usage: "API key clients must send"},
		},
		Action: e.serve,
	}
}

func (e *env) serve(c *cli.Context) error {
	reg := prometheus.NewRegistry()
	mux, err := demoMux(reg, e.newServeHandler(c))
	if err != nil {
		return err
	}
	server := &http.Server{Addr: c.String("addr"), Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdown)
	}()

	e.logger.Info().Str("addr", server.Addr).Str("key", c.String("key")).Msg("serving demo data on /graphql")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (e *env) newServeHandler(c *cli.Context) *handler.Handler {
	return newDemoHandler(e.logger, handler.PageSize(c.Int("page-size")), handler.APIKey(c.String("key")))
}

// demoMux routes /graphql to h (counting requests) and /metrics to the registry
func demoMux(reg *prometheus.Registry, h http.Handler) (*http.ServeMux, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linearql",
		Subsystem: "demo",
		Name:      "requests_total",
		Help:      "Requests received by the demo server",
	}, []string{"code", "method"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "linearql",
		Subsystem: "demo",
		Name:      "request_duration_seconds",
		Help:      "Time taken to answer requests to the demo server",
		Buckets:   prometheus.DefBuckets,
	}, []string{"code", "method"})
	for _, c := range []prometheus.Collector{requests, duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", promhttp.InstrumentHandlerDuration(duration, promhttp.InstrumentHandlerCounter(requests, h)))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux, nil
}
