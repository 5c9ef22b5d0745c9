package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/posener/wstest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrewwphillips/linearql/internal/transport"
)

type wsMsg struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// seen records what the fake websocket server received
type seen struct {
	auth      string
	query     string
	variables map[string]interface{}
}

// wsServer returns a handler implementing the server side of graphql-transport-ws.  reply is
// called with the subscribe message ID and returns the messages to send back.
func wsServer(t *testing.T, out chan<- seen, reply func(id string) []wsMsg) http.Handler {
	upgrader := websocket.Upgrader{Subprotocols: []string{"graphql-transport-ws"}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var s seen
		var init wsMsg
		if conn.ReadJSON(&init) != nil || init.Type != "connection_init" {
			return
		}
		var initPayload map[string]string
		_ = json.Unmarshal(init.Payload, &initPayload)
		s.auth = initPayload["Authorization"]
		if conn.WriteJSON(wsMsg{Type: "connection_ack"}) != nil {
			return
		}

		var sub wsMsg
		if conn.ReadJSON(&sub) != nil || sub.Type != "subscribe" {
			return
		}
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		_ = json.Unmarshal(sub.Payload, &req)
		s.query, s.variables = req.Query, req.Variables
		out <- s

		for _, m := range reply(sub.ID) {
			if conn.WriteJSON(m) != nil {
				return
			}
		}
		_, _, _ = conn.ReadMessage() // wait for client to close
	})
}

func TestWebSocketQuery(t *testing.T) {
	out := make(chan seen, 1)
	dialer := wstest.NewDialer(wsServer(t, out, func(id string) []wsMsg {
		return []wsMsg{
			{Type: "next", ID: id, Payload: json.RawMessage(`{"data":{"viewer":{"name":"Al","count":2}}}`)},
			{Type: "complete", ID: id},
		}
	}))

	ws := transport.NewWebSocket(transport.Config{
		Endpoint: "ws://example.org/graphql",
		APIKey:   "lin_oauth_xyz",
		Logger:   zerolog.Nop(),
	}, dialer)
	data, err := ws.Execute(context.Background(), "{ viewer { name count } }", map[string]interface{}{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"viewer": map[string]interface{}{"name": "Al", "count": int64(2)}}, data)

	s := <-out
	assert.Equal(t, "Bearer lin_oauth_xyz", s.auth)
	assert.Equal(t, "{ viewer { name count } }", s.query)
	assert.Equal(t, map[string]interface{}{"a": "b"}, s.variables)
}

func TestWebSocketErrors(t *testing.T) {
	tests := map[string]func(id string) []wsMsg{
		"error_message": func(id string) []wsMsg {
			return []wsMsg{{Type: "error", ID: id, Payload: json.RawMessage(`[{"message":"bad query"}]`)}}
		},
		"errors_in_next": func(id string) []wsMsg {
			return []wsMsg{
				{Type: "next", ID: id, Payload: json.RawMessage(`{"errors":[{"message":"bad query"}]}`)},
				{Type: "complete", ID: id},
			}
		},
	}

	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			out := make(chan seen, 1)
			ws := transport.NewWebSocket(transport.Config{Endpoint: "ws://example.org/graphql", Logger: zerolog.Nop()},
				wstest.NewDialer(wsServer(t, out, reply)))
			_, err := ws.Execute(context.Background(), "{ x }", nil)

			var gqlErr *transport.GraphQLError
			require.ErrorAs(t, err, &gqlErr)
			assert.Contains(t, err.Error(), "bad query")
		})
	}
}

func TestWebSocketEmptyResult(t *testing.T) {
	out := make(chan seen, 1)
	ws := transport.NewWebSocket(transport.Config{Endpoint: "ws://example.org/graphql", Logger: zerolog.Nop()},
		wstest.NewDialer(wsServer(t, out, func(id string) []wsMsg {
			return []wsMsg{{Type: "complete", ID: id}}
		})))
	data, err := ws.Execute(context.Background(), "{ x }", nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}
