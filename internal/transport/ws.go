package transport

// ws.go implements a client for the graphql-transport-ws websocket protocol.  Each request uses
// its own connection: connection_init -> connection_ack -> subscribe -> next... -> complete.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const (
	subProtocol = "graphql-transport-ws"
	ackTimeout  = 10 * time.Second
)

type (
	// WebSocket sends each request over a new websocket - it is safe for concurrent use
	WebSocket struct {
		cfg    Config
		dialer websocket.Dialer
		auth   string
		logger zerolog.Logger
	}

	wsMessage struct {
		Type    string          `json:"type"`
		ID      string          `json:"id,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}
)

// NewWebSocket creates a websocket transport.  cfg.Endpoint should be a ws:// or wss:// URL
// (DefaultWebSocketEndpoint if empty).  If dialer is nil websocket.DefaultDialer is used.
func NewWebSocket(cfg Config, dialer *websocket.Dialer) *WebSocket {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultWebSocketEndpoint
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	d := *dialer // copy so we can set our sub-protocol
	d.Subprotocols = []string{subProtocol}
	return &WebSocket{
		cfg:    cfg,
		dialer: d,
		auth:   Authorization(cfg.APIKey),
		logger: cfg.Logger.With().Str("component", "transport").Str("transport", "ws").
			Str("key", Fingerprint(cfg.APIKey)).Logger(),
	}
}

// Execute runs a query or mutation over a new websocket returning the "data" of the (last) result
func (w *WebSocket) Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	if err := CheckKey(w.cfg.APIKey, w.cfg.Now()); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("%w encoding GraphQL request", err)
	}

	var data map[string]interface{}
	err = retry(ctx, w.cfg.Retry, func() error {
		start := time.Now()
		var err error
		data, err = w.exchange(ctx, payload)
		w.cfg.Metrics.Request("ws", outcome(err), time.Since(start))
		w.logger.Debug().Err(err).Dur("took", time.Since(start)).Msg("request")
		return err
	})
	return data, err
}

// exchange performs the whole protocol for one operation
func (w *WebSocket) exchange(ctx context.Context, payload []byte) (map[string]interface{}, error) {
	header := http.Header{}
	if w.cfg.UserAgent != "" {
		header.Set("User-Agent", w.cfg.UserAgent)
	}
	conn, resp, err := w.dialer.DialContext(ctx, w.cfg.Endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			statusErr := &StatusError{StatusCode: resp.StatusCode}
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, statusErr
			}
			return nil, NonRetryable(statusErr)
		}
		return nil, fmt.Errorf("%w dialing %s", err, w.cfg.Endpoint)
	}
	defer conn.Close()

	// Closing the connection unblocks any read when the context is cancelled
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	data, err := w.operate(conn, payload)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, NonRetryable(ctxErr)
	}
	return data, err
}

func (w *WebSocket) operate(conn *websocket.Conn, payload []byte) (map[string]interface{}, error) {
	if conn.Subprotocol() != subProtocol {
		return nil, NonRetryable(fmt.Errorf("server does not support %s", subProtocol))
	}

	// Handshake
	initPayload, _ := json.Marshal(map[string]string{"Authorization": w.auth})
	if err := conn.WriteJSON(wsMessage{Type: "connection_init", Payload: initPayload}); err != nil {
		return nil, fmt.Errorf("%w sending connection_init", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))
	for {
		message, err := read(conn)
		if err != nil {
			return nil, fmt.Errorf("%w waiting for connection_ack", err)
		}
		if message.Type == "connection_ack" {
			break
		}
		if message.Type == "ping" {
			_ = conn.WriteJSON(wsMessage{Type: "pong"})
			continue
		}
		return nil, NonRetryable(fmt.Errorf("unexpected %q message waiting for connection_ack", message.Type))
	}
	_ = conn.SetReadDeadline(time.Time{})

	id := uuid.NewString()
	if err := conn.WriteJSON(wsMessage{Type: "subscribe", ID: id, Payload: payload}); err != nil {
		return nil, fmt.Errorf("%w sending subscribe", err)
	}

	var data map[string]interface{}
	for {
		message, err := read(conn)
		if err != nil {
			return nil, err
		}
		if message.ID != "" && message.ID != id {
			w.logger.Debug().Str("id", message.ID).Msg("message for unknown operation ignored")
			continue
		}
		switch message.Type {
		case "next":
			r, err := decodeResponse(message.Payload)
			if err != nil {
				return nil, NonRetryable(err)
			}
			if data, err = classify(r.result()); err != nil {
				return data, err
			}
		case "error":
			var errs gqlerror.List
			if err := json.Unmarshal(message.Payload, &errs); err != nil {
				return nil, NonRetryable(fmt.Errorf("%w decoding error message", err))
			}
			return classify(nil, &GraphQLError{Errors: errs})
		case "complete":
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if data == nil {
				data = map[string]interface{}{}
			}
			return data, nil
		case "ping":
			_ = conn.WriteJSON(wsMessage{Type: "pong"})
		case "pong":
		default:
			return nil, NonRetryable(fmt.Errorf("unexpected %q message", message.Type))
		}
	}
}

func read(conn *websocket.Conn) (*wsMessage, error) {
	_, buf, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var message wsMessage
	if err := json.Unmarshal(buf, &message); err != nil {
		return nil, NonRetryable(fmt.Errorf("%w decoding websocket message", err))
	}
	return &message, nil
}
