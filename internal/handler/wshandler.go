package handler

// wshandler.go handles requests sent over a websocket using the graphql-transport-ws protocol
// (sub-protocol name: graphql-transport-ws).  Queries and mutations are answered with a single
// "next" message followed by "complete".  Subscriptions are not supported.

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const (
	subProtocol        = "graphql-transport-ws"
	maxOperationsPerWS = 64
	writeTimeout       = 5 * time.Second
)

// Close codes defined by the protocol
const (
	closeBadRequest   = 4400
	closeUnauthorized = 4401
	closeForbidden    = 4403
	closeInitTimeout  = 4408
	closeDuplicateID  = 4409
	closeTooManyInits = 4429
)

type (
	wsConnection struct {
		*websocket.Conn // handle for WS communications

		h *Handler

		writeMu sync.Mutex     // gorilla connections allow only one writer at a time
		active  map[string]bool // IDs of operations in progress
		mu      sync.Mutex      // protects active
		wg      sync.WaitGroup
	}

	wsMessage struct {
		Type    string          `json:"type"`
		ID      string          `json:"id,omitempty"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}
)

var upgrader = websocket.Upgrader{
	CheckOrigin:  func(r *http.Request) bool { return true },
	Subprotocols: []string{subProtocol},
}

// serveWS is called in response to a GraphQL HTTP request wanting to upgrade to a WS
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade")
		// nothing else required here as w's HTTP status has already been set
		return
	}
	c := &wsConnection{Conn: conn, h: h, active: make(map[string]bool)}
	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		c.wg.Wait()
		if err := c.Close(); err != nil {
			h.logger.Debug().Err(err).Msg("websocket close")
		}
	}()

	if c.Subprotocol() != subProtocol {
		c.close(websocket.CloseProtocolError, "Unsupported sub-protocol")
		return
	}
	if !c.init() {
		return
	}

	for {
		message, err := c.read()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug().Err(err).Msg("websocket read")
			}
			return
		}

		switch message.Type {
		case "subscribe":
			if !c.start(ctx, message) {
				return
			}
		case "complete":
			// nothing to cancel since operations are answered straight away
		case "ping":
			c.write(wsMessage{Type: "pong"})
		case "pong":
		case "connection_init":
			c.close(closeTooManyInits, "Too many initialisation requests")
			return
		default:
			c.close(closeBadRequest, "Unexpected message type "+message.Type)
			return
		}
	}
}

// init handles the initial handshake by receiving a "connection_init" message and sending
// "connection_ack".  If an API key is required it must be in the payload (as "Authorization").
func (c *wsConnection) init() bool {
	_ = c.SetReadDeadline(time.Now().Add(c.h.initialTimeout))
	message, err := c.read()
	if err != nil {
		c.close(closeInitTimeout, "Connection initialisation timeout")
		return false
	}
	_ = c.SetReadDeadline(time.Time{})
	if message.Type != "connection_init" {
		c.close(closeUnauthorized, "Unauthorized")
		return false
	}

	var payload struct {
		Authorization string `json:"Authorization"`
	}
	if len(message.Payload) > 0 {
		_ = json.Unmarshal(message.Payload, &payload)
	}
	if !c.h.authorized(payload.Authorization) {
		c.close(closeForbidden, "Forbidden")
		return false
	}
	return c.write(wsMessage{Type: "connection_ack"})
}

// start runs an operation in its own goroutine.  It returns false if the connection was closed.
func (c *wsConnection) start(ctx context.Context, message *wsMessage) bool {
	c.mu.Lock()
	duplicate := c.active[message.ID]
	full := len(c.active) >= maxOperationsPerWS
	if !duplicate && !full {
		c.active[message.ID] = true
	}
	c.mu.Unlock()
	if duplicate || message.ID == "" {
		c.close(closeDuplicateID, "Subscriber for "+message.ID+" already exists")
		return false
	}
	if full {
		c.close(closeBadRequest, "Too many operations")
		return false
	}

	g := gqlRequest{h: c.h}
	decoder := json.NewDecoder(bytes.NewReader(message.Payload))
	decoder.UseNumber()
	if err := decoder.Decode(&g); err != nil {
		c.close(closeBadRequest, "Invalid subscribe payload")
		return false
	}
	FixNumberVariables(g.Variables)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.active, message.ID)
			c.mu.Unlock()
		}()

		result := g.Execute(ctx)
		if result.Data == nil && len(result.Errors) > 0 {
			c.send("error", message.ID, result.Errors)
			return
		}
		if c.send("next", message.ID, result) {
			c.write(wsMessage{Type: "complete", ID: message.ID})
		}
	}()
	return true
}

// send writes a message with a JSON payload
func (c *wsConnection) send(messageType, id string, payload interface{}) bool {
	buf, err := json.Marshal(payload)
	if err != nil {
		buf, _ = json.Marshal(gqlerror.List{gqlerror.Errorf("Error encoding JSON response: %v", err)})
		messageType = "error"
	}
	return c.write(wsMessage{Type: messageType, ID: id, Payload: buf})
}

func (c *wsConnection) write(message wsMessage) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.WriteJSON(message); err != nil {
		c.h.logger.Debug().Err(err).Str("type", message.Type).Msg("websocket write")
		return false
	}
	return true
}

// close sends a close message with a protocol error code
func (c *wsConnection) close(code int, text string) {
	c.h.logger.Debug().Int("code", code).Str("reason", text).Msg("closing websocket")
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeTimeout))
}

func (c *wsConnection) read() (*wsMessage, error) {
	_, buf, err := c.ReadMessage()
	if err != nil {
		return nil, err
	}
	var message wsMessage
	if err := json.Unmarshal(buf, &message); err != nil {
		return nil, err
	}
	return &message, nil
}
