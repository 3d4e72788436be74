// Package server defines the wire-level event types exchanged between the
// Banter server and its clients. Every frame is a JSON object carrying a
// "type" discriminator alongside the payload fields for that event kind.
package server

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Inbound event kinds, sent by clients.
const (
	EventJoin        = "join"
	EventChat        = "chat"
	EventTypingStart = "typingStart"
)

// Outbound event kinds, sent by the server.
const (
	EventJoined       = "joined"
	EventPresenceList = "presenceList"
	EventMessage      = "message"
	EventTyping       = "typing"
	EventLeft         = "left"
)

// timestampLayout renders chat timestamps as a locale-style clock reading.
const timestampLayout = "3:04:05 PM"

// inboundEvent is the envelope decoded from every client frame. Name and
// Body are only meaningful for join and chat events respectively.
type inboundEvent struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Body string `json:"body,omitempty"`
}

// joinedEvent announces a participant to every connection, including the
// one that just joined.
type joinedEvent struct {
	Type       string   `json:"type"`
	SenderID   string   `json:"senderId"`
	SenderName string   `json:"senderName"`
	Users      []string `json:"users"`
	Message    string   `json:"message"`
}

// presenceListEvent carries the full ordered list of display names.
type presenceListEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// messageEvent carries one chat message. It is fanned out to all
// connections, sender included; clients tell sent from received by
// comparing SenderID against their own id.
type messageEvent struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Body       string `json:"body"`
	Timestamp  string `json:"timestamp"`
}

// typingEvent tells peers that a participant is composing a message.
type typingEvent struct {
	Type       string `json:"type"`
	SenderName string `json:"senderName"`
}

// leftEvent announces a departure to the remaining connections.
type leftEvent struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Message    string `json:"message"`
}

func encodeJoined(id, name string, users []string) ([]byte, error) {
	return json.Marshal(joinedEvent{
		Type:       EventJoined,
		SenderID:   id,
		SenderName: name,
		Users:      users,
		Message:    fmt.Sprintf("%s has joined the chat", name),
	})
}

func encodePresenceList(users []string) ([]byte, error) {
	return json.Marshal(presenceListEvent{Type: EventPresenceList, Users: users})
}

func encodeMessage(id, name, body string, at time.Time) ([]byte, error) {
	return json.Marshal(messageEvent{
		Type:       EventMessage,
		SenderID:   id,
		SenderName: name,
		Body:       body,
		Timestamp:  at.Format(timestampLayout),
	})
}

func encodeTyping(name string) ([]byte, error) {
	return json.Marshal(typingEvent{Type: EventTyping, SenderName: name})
}

func encodeLeft(id, name string) ([]byte, error) {
	return json.Marshal(leftEvent{
		Type:       EventLeft,
		SenderID:   id,
		SenderName: name,
		Message:    fmt.Sprintf("%s has left the chat", name),
	})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
