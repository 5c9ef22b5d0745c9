package handler_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/posener/wstest"

	"github.com/andrewwphillips/linearql/internal/handler"
)

const (
	actionSend  = iota // send a message to the server
	actionRecv         // receive a message that contains the text
	actionError        // expect the server to close the WS with the close code
)

type wsAction struct {
	action int
	param  interface{} // message to send or text expected (string) or close code (int)
}

func TestWebSocket(t *testing.T) {
	wsData := map[string]struct {
		protocol string // sub-protocol requested ("" for graphql-transport-ws)
		apiKey   string // required by the server
		actions  []wsAction
	}{
		"query": {
			actions: []wsAction{
				{actionSend, `{"type": "connection_init"}`},
				{actionRecv, `{"type":"connection_ack"}`},
				{actionSend, `{"type":"subscribe","id":"ID-1","payload":{"query":"{ team(id: \"ENG\") { name } }"}}`},
				{actionRecv, `{"type":"next","id":"ID-1","payload":{"data":{"team":{"name":"Engineering"}}}}`},
				{actionRecv, `{"type":"complete","id":"ID-1"}`},
			},
		},
		"variables": {
			actions: []wsAction{
				{actionSend, `{"type": "connection_init", "payload": {}}`},
				{actionRecv, `"connection_ack"`},
				{actionSend, `{"type":"subscribe","id":"2","payload":{"query":"query($n: Int) { teams(first: $n) { nodes { key } } }","variables":{"n":1}}}`},
				{actionRecv, `"payload":{"data":{"teams":{"nodes":[{"key":"ENG"}]}}}`},
				{actionRecv, `"complete"`},
			},
		},
		"ping": {
			actions: []wsAction{
				{actionSend, `{"type": "connection_init"}`},
				{actionRecv, `"connection_ack"`},
				{actionSend, `{"type": "ping"}`},
				{actionRecv, `{"type":"pong"}`},
			},
		},
		"error": {
			actions: []wsAction{
				{actionSend, `{"type": "connection_init"}`},
				{actionRecv, `"connection_ack"`},
				{actionSend, `{"type":"subscribe","id":"3","payload":{"query":"{ teams {"}}`},
				{actionRecv, `{"type":"error","id":"3","payload":[{"message":"Expected Name`},
			},
		},
		"api_key": {
			apiKey: "lin_api_demo",
			actions: []wsAction{
				{actionSend, `{"type": "connection_init", "payload": {"Authorization": "lin_api_demo"}}`},
				{actionRecv, `"connection_ack"`},
			},
		},
		"forbidden": {
			apiKey: "lin_api_demo",
			actions: []wsAction{
				{actionSend, `{"type": "connection_init", "payload": {"Authorization": "lin_api_wrong"}}`},
				{actionError, 4403},
			},
		},
		"no_init": {
			actions: []wsAction{
				{actionSend, `{"type":"subscribe","id":"1","payload":{"query":"{ viewer { id } }"}}`},
				{actionError, 4401},
			},
		},
		"two_inits": {
			actions: []wsAction{
				{actionSend, `{"type": "connection_init"}`},
				{actionRecv, `"connection_ack"`},
				{actionSend, `{"type": "connection_init"}`},
				{actionError, 4429},
			},
		},
		"old_protocol": {
			protocol: "graphql-ws",
			actions: []wsAction{
				{actionError, websocket.CloseProtocolError},
			},
		},
	}

	for name, testData := range wsData {
		t.Run(name, func(t *testing.T) {
			h := handler.New(handler.Demo(), handler.APIKey(testData.apiKey), handler.InitialTimeout(time.Second))
			dialer := wstest.NewDialer(h)
			dialer.Subprotocols = []string{"graphql-transport-ws"}
			if testData.protocol != "" {
				dialer.Subprotocols = []string{testData.protocol}
			}
			conn, _, err := dialer.Dial("ws://localhost/graphql", nil)
			if err != nil {
				t.Fatalf("Dial error: %v", err)
			}
			defer conn.Close()

			for i, a := range testData.actions {
				switch a.action {
				case actionSend:
					err := conn.WriteMessage(websocket.TextMessage, []byte(a.param.(string)))
					Assertf(t, err == nil, "%d: write error %v", i, err)

				case actionRecv:
					_ = conn.SetReadDeadline(time.Now().Add(time.Second))
					_, buf, err := conn.ReadMessage()
					Assertf(t, err == nil, "%d: read error %v", i, err)
					Assertf(t, strings.Contains(string(buf), a.param.(string)), "%d: expected %s in %s", i, a.param, buf)

				case actionError:
					_ = conn.SetReadDeadline(time.Now().Add(time.Second))
					_, _, err := conn.ReadMessage()
					var closeErr *websocket.CloseError
					Assertf(t, errors.As(err, &closeErr) && closeErr.Code == a.param.(int),
						"%d: expected close code %d, got %v", i, a.param, err)
				}
			}
		})
	}
}

// TestWebSocketConcurrent sends several operations over the same websocket
func TestWebSocketConcurrent(t *testing.T) {
	h := handler.New(handler.Demo())
	dialer := wstest.NewDialer(h)
	dialer.Subprotocols = []string{"graphql-transport-ws"}
	conn, _, err := dialer.Dial("ws://localhost/graphql", nil)
	if err != nil {
		t.Fatalf("Dial error: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_ = conn.WriteJSON(JsonObject{"type": "connection_init"})
	var message struct {
		Type    string
		ID      string
		Payload json.RawMessage
	}
	err = conn.ReadJSON(&message)
	Assertf(t, err == nil && message.Type == "connection_ack", "Expected ack, got %v %v", message, err)

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		_ = conn.WriteJSON(JsonObject{"type": "subscribe", "id": id, "payload": JsonObject{"query": `{ viewer { id } }`}})
	}
	completed := map[string]bool{}
	for len(completed) < len(ids) {
		if err := conn.ReadJSON(&message); err != nil {
			t.Fatalf("Read error: %v", err)
		}
		switch message.Type {
		case "next":
			Assertf(t, string(message.Payload) == `{"data":{"viewer":{"id":"U1"}}}`, "%s: got %s", message.ID, message.Payload)
		case "complete":
			completed[message.ID] = true
		default:
			t.Fatalf("Unexpected message %v", message)
		}
	}
	Assertf(t, h.Requests() == len(ids), "Expected %d requests, got %d", len(ids), h.Requests())
}
