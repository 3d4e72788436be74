// Package testhelpers provides shared utilities for testing the Banter
// server: spinning up test servers, dialing WebSocket clients, speaking the
// chat protocol, and asserting on received events.
package testhelpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Event is a decoded wire event, keyed by field name.
type Event map[string]any

// CreateTestServer starts a test HTTP server with the given handler.
// Callers must Close it after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// WebSocketURL converts a test server's base URL to its ws:// endpoint.
func WebSocketURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

// ConnectWebSocket dials the WebSocket endpoint with an allowed origin.
func ConnectWebSocket(url string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	headers.Set("Origin", "http://localhost:8080")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// Join sends the join handshake for the given display name.
func Join(conn *websocket.Conn, name string) error {
	return conn.WriteJSON(map[string]string{"type": "join", "name": name})
}

// SendChat sends one chat message.
func SendChat(conn *websocket.Conn, body string) error {
	return conn.WriteJSON(map[string]string{"type": "chat", "body": body})
}

// SendTyping sends a typing start signal.
func SendTyping(conn *websocket.Conn) error {
	return conn.WriteJSON(map[string]string{"type": "typingStart"})
}

// ReadEvent reads the next event from the connection, failing the test if
// nothing arrives within the timeout.
func ReadEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read event: %v", err)
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("Failed to decode event %q: %v", data, err)
	}
	return evt
}

// ExpectEvent reads events until one of the wanted type arrives, failing
// the test if it does not show up within the timeout. Events of other types
// are discarded, which keeps tests robust against interleaved broadcasts.
func ExpectEvent(t *testing.T, conn *websocket.Conn, eventType string, timeout time.Duration) Event {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("Timed out waiting for %q event", eventType)
		}
		evt := ReadEvent(t, conn, remaining)
		if evt["type"] == eventType {
			return evt
		}
	}
}

// ExpectSilence asserts that no event arrives on the connection within the
// given window.
func ExpectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no event, received %q", data)
	}
}

// Users extracts the users field of an event as a string slice.
func Users(t *testing.T, evt Event) []string {
	t.Helper()

	raw, ok := evt["users"].([]any)
	if !ok {
		t.Fatalf("Event has no users list: %v", evt)
	}

	users := make([]string, 0, len(raw))
	for _, u := range raw {
		name, ok := u.(string)
		if !ok {
			t.Fatalf("User entry is not a string: %v", u)
		}
		users = append(users, name)
	}
	return users
}

// CloseWebSocket closes a connection with a normal closure frame.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest creates and executes an HTTP request with a short timeout.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 5 * time.Second}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	return resp
}

// AssertStatusCode checks the response status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}
