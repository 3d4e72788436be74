// Package server routes inbound client events. Each event kind maps to a
// registry mutation and a fan-out set: join and disconnect touch presence
// and broadcast to everyone, chat goes to everyone including the sender,
// and typing goes to everyone but the sender.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"
)

// errUnknownConnection marks an event from a connection that never joined.
// It is a protocol no-op, not a fault: a client may disconnect, chat, or
// signal typing before completing the join handshake.
var errUnknownConnection = errors.New("connection has not joined")

// route classifies one raw frame and dispatches it. Malformed or invalid
// frames are dropped; the sender is the trust boundary and a bad frame must
// never crash or stall the hub.
func (h *Hub) route(sender *Client, data []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		log.Printf("Dropping malformed frame from %s: %v", sender.addr, err)
		return
	}

	switch evt.Type {
	case EventJoin:
		h.handleJoin(sender, evt.Name)
	case EventChat:
		h.handleChat(sender, evt.Body)
	case EventTypingStart:
		h.handleTyping(sender)
	default:
		log.Printf("Dropping frame with unknown type %q from %s", evt.Type, sender.addr)
	}
}

// handleJoin registers the sender under its chosen name, announces it to
// every connection, and confirms the presence list back to the sender. A
// repeat join from the same connection is a rename and runs the same path.
func (h *Hub) handleJoin(sender *Client, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		log.Printf("Dropping join with empty name from %s", sender.addr)
		return
	}

	h.registry.Register(sender.id, name)
	sender.name = name
	users := h.registry.Snapshot()

	joined, err := encodeJoined(sender.id, name, users)
	if err != nil {
		log.Printf("Error encoding joined event for %s: %v", sender.id, err)
		return
	}
	h.broadcast(joined, nil)

	presence, err := encodePresenceList(users)
	if err != nil {
		log.Printf("Error encoding presence list for %s: %v", sender.id, err)
		return
	}
	h.sendTo(sender, presence)

	log.Printf("%s joined as %q. Participants: %d", sender.id, name, len(users))
}

// handleChat fans a chat message out to every connection, the sender
// included; clients distinguish their own messages by sender id.
func (h *Hub) handleChat(sender *Client, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		log.Printf("Dropping chat with empty body from %s", sender.addr)
		return
	}
	if sender.name == "" {
		log.Printf("Dropping chat from %s: %v", sender.addr, errUnknownConnection)
		return
	}

	payload, err := encodeMessage(sender.id, sender.name, body, time.Now())
	if err != nil {
		log.Printf("Error encoding chat message from %s: %v", sender.id, err)
		return
	}
	h.broadcast(payload, nil)
}

// handleTyping relays a typing signal to every connection but the sender.
func (h *Hub) handleTyping(sender *Client) {
	payload, err := h.typing.Relay(sender.name)
	if err != nil {
		if !errors.Is(err, errUnknownConnection) {
			log.Printf("Error relaying typing signal from %s: %v", sender.id, err)
		}
		return
	}
	h.broadcast(payload, sender)
}

// handleDisconnect finalizes a connection. If the connection had joined,
// the remaining participants get exactly one left event followed by the
// refreshed presence list; a disconnect before joining is silent.
//
// The registry purge does not depend on the client still being in the
// client set: a connection evicted earlier for a failed delivery must still
// leave the presence list when its transport disconnect arrives. The
// registry returns the name only once, so the left broadcast stays
// idempotent either way.
func (h *Hub) handleDisconnect(client *Client) {
	h.dropClient(client)

	name, joined := h.registry.Unregister(client.id)
	if !joined {
		return
	}

	left, err := encodeLeft(client.id, name)
	if err != nil {
		log.Printf("Error encoding left event for %s: %v", client.id, err)
		return
	}
	h.broadcast(left, nil)

	presence, err := encodePresenceList(h.registry.Snapshot())
	if err != nil {
		log.Printf("Error encoding presence list after %s left: %v", client.id, err)
		return
	}
	h.broadcast(presence, nil)

	log.Printf("%s (%q) left. Participants: %d", client.id, name, h.registry.Len())
}
