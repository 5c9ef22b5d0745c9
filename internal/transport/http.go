package transport

// http.go implements the HTTP (POST) transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrewwphillips/linearql/internal/metric"
)

// maxErrorBody limits how much of an error response body is kept in a StatusError
const maxErrorBody = 512

type (
	// Config holds the settings shared by both transports
	Config struct {
		Endpoint   string // URL of the GraphQL API (DefaultEndpoint if empty)
		APIKey     string
		UserAgent  string
		HTTPClient *http.Client // http.DefaultClient if nil
		Retry      RetryConfig
		Logger     zerolog.Logger
		Metrics    *metric.Metrics
		Now        func() time.Time // for checking key expiry (time.Now if nil)
	}

	// HTTP sends each request as an HTTP POST - it is safe for concurrent use
	HTTP struct {
		cfg    Config
		auth   string
		logger zerolog.Logger
	}
)

// NewHTTP creates an HTTP transport
func NewHTTP(cfg Config) *HTTP {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HTTP{
		cfg:  cfg,
		auth: Authorization(cfg.APIKey),
		logger: cfg.Logger.With().Str("component", "transport").Str("transport", "http").
			Str("key", Fingerprint(cfg.APIKey)).Logger(),
	}
}

// Execute sends the query and returns the "data" of the response
func (h *HTTP) Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	if err := CheckKey(h.cfg.APIKey, h.cfg.Now()); err != nil {
		return nil, err
	}
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%w encoding GraphQL request", err)
	}

	var data map[string]interface{}
	attempt := 0
	err = retry(ctx, h.cfg.Retry, func() error {
		attempt++
		start := time.Now()
		var err error
		data, err = h.post(ctx, body)
		h.cfg.Metrics.Request("http", outcome(err), time.Since(start))
		h.logger.Debug().Err(err).Int("attempt", attempt).Dur("took", time.Since(start)).Msg("request")
		return err
	})
	return data, err
}

// post sends one request, marking errors that are not worth retrying
func (h *HTTP) post(ctx context.Context, body []byte) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, NonRetryable(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if h.auth != "" {
		req.Header.Set("Authorization", h.auth)
	}
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}

	resp, err := h.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, NonRetryable(ctx.Err())
		}
		return nil, err // network errors are retried
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w reading response", err)
	}

	if resp.StatusCode != http.StatusOK {
		// GraphQL servers often return 400 with a GraphQL error body
		if r, err := decodeResponse(buf); err == nil && len(r.Errors) > 0 {
			return classify(r.result())
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(buf), maxErrorBody)}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, statusErr
		}
		return nil, NonRetryable(statusErr)
	}

	r, err := decodeResponse(buf)
	if err != nil {
		return nil, NonRetryable(err)
	}
	return classify(r.result())
}

// classify marks GraphQL errors as non-retryable, except for rate limiting
func classify(data map[string]interface{}, err error) (map[string]interface{}, error) {
	if gqlErr, ok := err.(*GraphQLError); ok && gqlErr.Code() != "RATELIMITED" {
		return data, NonRetryable(err)
	}
	return data, err
}

// outcome is the metric label for the result of a request
func outcome(err error) string {
	switch e := err.(type) {
	case nil:
		return "ok"
	case *GraphQLError:
		return "graphql_error"
	case *StatusError:
		return "status_error"
	case *NonRetryableError:
		return outcome(e.Err)
	}
	return "error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
