// Package server coordinates connection lifecycle, presence, and event
// fan-out for the Banter chat system via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"
)

// Hub owns all connected clients and serializes every connection-originated
// event. Registration, disconnects, and inbound frames are processed to
// completion by a single goroutine, so no third connection can ever observe
// a half-applied join or leave.
type Hub struct {
	clients    map[*Client]bool
	registry   *Registry
	typing     TypingNotifier
	inbound    chan inboundFrame
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// inboundFrame is one raw client frame awaiting routing, paired with the
// connection that produced it.
type inboundFrame struct {
	sender *Client
	data   []byte
}

// NewHub creates a Hub ready to manage connections. Run must be started in
// its own goroutine before clients are registered.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		registry:   NewRegistry(),
		inbound:    make(chan inboundFrame),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Registry exposes the hub's presence registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run is the hub's event loop. Each case runs to completion before the next
// event is taken, which is the only ordering guarantee the protocol makes:
// every recipient sees events in the order the hub processed them.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.handleDisconnect(client)

		case frame := <-h.inbound:
			h.route(frame.sender, frame.data)
		}
	}
}

// addClient admits a connection and starts its pump goroutines. The client
// is not in the registry yet; that happens only when it sends a join event.
func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	clientCount := len(h.clients)
	h.mutex.Unlock()
	log.Printf("Connection %s accepted from %s. Total connections: %d", client.id, client.addr, clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// dropClient removes a connection from the client set and closes its send
// channel, skipping both when the client is already gone (a failed-delivery
// eviction may have removed it first). It reports whether the client was
// still present.
func (h *Hub) dropClient(client *Client) bool {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	log.Printf("Connection %s from %s closed. Total connections: %d", client.id, client.addr, clientCount)
	return true
}

// notifyDisconnect delivers a client's terminal disconnect to the hub
// loop. Once the hub is shutting down the loop no longer receives, so the
// send gives up on ctx cancellation instead of blocking the pump goroutine
// forever and stalling Shutdown's wait.
func (h *Hub) notifyDisconnect(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// sendTo queues payload for one client. Failures are non-fatal: a client
// whose buffer is full or whose channel is closed is logged and evicted.
func (h *Hub) sendTo(client *Client, payload []byte) {
	if !h.safeSend(client, payload) {
		h.removeFailedClients([]*Client{client})
	}
}

// broadcast fans payload out to every connected client except the excluded
// one. Delivery to each recipient is independent; a dead or backed-up
// client is skipped and evicted, never waited on.
func (h *Hub) broadcast(payload []byte, exclude *Client) {
	var failed []*Client
	for _, client := range h.clientSnapshot() {
		if exclude != nil && client == exclude {
			continue
		}
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

// safeSend attempts a non-blocking delivery to one client while holding the
// read lock, so the client cannot be unregistered mid-send.
func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// clientSnapshot captures the current client set so fan-out can iterate
// without holding the lock.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients evicts clients whose delivery failed. Their own
// disconnect will correct the presence list shortly; nothing is retried.
func (h *Hub) removeFailedClients(failed []*Client) {
	if len(failed) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range failed {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			log.Printf("Connection %s from %s evicted after failed delivery", client.id, client.addr)
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients closes every active connection during hub shutdown.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.clientSnapshot()
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing client connection from %s: %v", client.addr, err)
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown stops the hub and waits for the pump goroutines to finish, or
// until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

var hub = NewHub()
