package integration

import (
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/banterchat/banter/internal/server"
	"github.com/banterchat/banter/test/testhelpers"
)

const eventTimeout = 2 * time.Second

// startChatServer starts the global hub and a fresh HTTP server for one test.
func startChatServer(t *testing.T) *httptest.Server {
	t.Helper()

	server.StartHub()
	ts := testhelpers.CreateTestServer(server.SetupRoutes())
	t.Cleanup(ts.Close)
	return ts
}

// connectAndJoin dials the server, completes the join handshake, and reads
// back the joiner's own announcement and presence confirmation.
func connectAndJoin(t *testing.T, ts *httptest.Server, name string) *websocket.Conn {
	t.Helper()

	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts))
	if err != nil {
		t.Fatalf("Failed to connect %s: %v", name, err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := testhelpers.Join(conn, name); err != nil {
		t.Fatalf("Failed to join as %s: %v", name, err)
	}

	joined := testhelpers.ExpectEvent(t, conn, server.EventJoined, eventTimeout)
	if joined["senderName"] != name {
		t.Fatalf("Expected own join announcement for %s, got %v", name, joined)
	}
	testhelpers.ExpectEvent(t, conn, server.EventPresenceList, eventTimeout)
	return conn
}

func TestJoinHandshake(t *testing.T) {
	ts := startChatServer(t)

	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts))
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if err := testhelpers.Join(conn, "Alice"); err != nil {
		t.Fatalf("Failed to send join: %v", err)
	}

	joined := testhelpers.ExpectEvent(t, conn, server.EventJoined, eventTimeout)
	if joined["senderName"] != "Alice" {
		t.Errorf("Expected senderName Alice, got %v", joined["senderName"])
	}
	if joined["message"] != "Alice has joined the chat" {
		t.Errorf("Unexpected join message: %v", joined["message"])
	}
	if id, ok := joined["senderId"].(string); !ok || id == "" {
		t.Errorf("Expected a non-empty senderId, got %v", joined["senderId"])
	}
	if !slices.Contains(testhelpers.Users(t, joined), "Alice") {
		t.Error("Join announcement should list Alice as present")
	}

	presence := testhelpers.ExpectEvent(t, conn, server.EventPresenceList, eventTimeout)
	if !slices.Contains(testhelpers.Users(t, presence), "Alice") {
		t.Error("Presence confirmation should list Alice")
	}
}

func TestPeerSeesJoinAnnouncement(t *testing.T) {
	ts := startChatServer(t)

	alice := connectAndJoin(t, ts, "Alice")
	_ = connectAndJoin(t, ts, "Bob")

	joined := testhelpers.ExpectEvent(t, alice, server.EventJoined, eventTimeout)
	if joined["senderName"] != "Bob" {
		t.Errorf("Expected Bob's announcement, got %v", joined)
	}
	users := testhelpers.Users(t, joined)
	if !slices.Contains(users, "Alice") || !slices.Contains(users, "Bob") {
		t.Errorf("Expected both names in the presence list, got %v", users)
	}
}

func TestChatReachesAllParticipantsIncludingSender(t *testing.T) {
	ts := startChatServer(t)

	alice := connectAndJoin(t, ts, "Alice")
	bob := connectAndJoin(t, ts, "Bob")
	testhelpers.ExpectEvent(t, alice, server.EventJoined, eventTimeout)

	if err := testhelpers.SendChat(alice, "hello everyone"); err != nil {
		t.Fatalf("Failed to send chat: %v", err)
	}

	for name, conn := range map[string]*websocket.Conn{"Alice": alice, "Bob": bob} {
		msg := testhelpers.ExpectEvent(t, conn, server.EventMessage, eventTimeout)
		if msg["senderName"] != "Alice" {
			t.Errorf("%s: expected senderName Alice, got %v", name, msg["senderName"])
		}
		if msg["body"] != "hello everyone" {
			t.Errorf("%s: unexpected body %v", name, msg["body"])
		}
		if stamp, ok := msg["timestamp"].(string); !ok || stamp == "" {
			t.Errorf("%s: expected a rendered timestamp, got %v", name, msg["timestamp"])
		}
	}
}

func TestTypingSignalSkipsSender(t *testing.T) {
	ts := startChatServer(t)

	alice := connectAndJoin(t, ts, "Alice")
	bob := connectAndJoin(t, ts, "Bob")
	testhelpers.ExpectEvent(t, alice, server.EventJoined, eventTimeout)

	if err := testhelpers.SendTyping(bob); err != nil {
		t.Fatalf("Failed to send typing signal: %v", err)
	}

	typing := testhelpers.ExpectEvent(t, alice, server.EventTyping, eventTimeout)
	if typing["senderName"] != "Bob" {
		t.Errorf("Expected typing from Bob, got %v", typing)
	}

	testhelpers.ExpectSilence(t, bob, 300*time.Millisecond)
}

func TestDisconnectBroadcastsLeftThenPresence(t *testing.T) {
	ts := startChatServer(t)

	alice := connectAndJoin(t, ts, "Alice")
	bob := connectAndJoin(t, ts, "Bob")
	testhelpers.ExpectEvent(t, alice, server.EventJoined, eventTimeout)

	if err := testhelpers.CloseWebSocket(bob); err != nil {
		t.Fatalf("Failed to close Bob's connection: %v", err)
	}

	var left testhelpers.Event
	for {
		left = testhelpers.ExpectEvent(t, alice, server.EventLeft, eventTimeout)
		if left["senderName"] == "Bob" {
			break
		}
	}
	if left["message"] != "Bob has left the chat" {
		t.Errorf("Unexpected leave message: %v", left["message"])
	}

	// The refreshed presence list follows the leave announcement directly.
	presence := testhelpers.ReadEvent(t, alice, eventTimeout)
	if presence["type"] != server.EventPresenceList {
		t.Fatalf("Expected presence list after leave, got %v", presence)
	}
	if slices.Contains(testhelpers.Users(t, presence), "Bob") {
		t.Error("Bob should be gone from the presence list")
	}
}

func TestDisconnectBeforeJoinIsSilent(t *testing.T) {
	ts := startChatServer(t)

	alice := connectAndJoin(t, ts, "Alice")

	ghost, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts))
	if err != nil {
		t.Fatalf("Failed to connect ghost client: %v", err)
	}
	if err := testhelpers.CloseWebSocket(ghost); err != nil {
		t.Fatalf("Failed to close ghost client: %v", err)
	}

	testhelpers.ExpectSilence(t, alice, 300*time.Millisecond)
}

func TestBlankJoinNameIgnored(t *testing.T) {
	ts := startChatServer(t)

	alice := connectAndJoin(t, ts, "Alice")

	conn, err := testhelpers.ConnectWebSocket(testhelpers.WebSocketURL(ts))
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if err := testhelpers.Join(conn, "   "); err != nil {
		t.Fatalf("Failed to send blank join: %v", err)
	}

	testhelpers.ExpectSilence(t, alice, 300*time.Millisecond)
	testhelpers.ExpectSilence(t, conn, 100*time.Millisecond)
}
