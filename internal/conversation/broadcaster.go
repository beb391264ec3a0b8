// ABOUTME: In-memory room fan-out for realtime message delivery
// ABOUTME: Connections join rooms keyed by conversation id and receive published payloads

package conversation

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// connectionBufferSize is the channel buffer for each connection.
	connectionBufferSize = 64
)

// connection is one live realtime client. rooms tracks its memberships
// so Disconnect can remove it everywhere. mu/closed guard the channel
// against a publish racing a disconnect: sends and close are serialized
// so a send can never hit a closed channel.
type connection struct {
	id    string
	ch    chan any
	rooms map[string]struct{}

	mu     sync.Mutex
	closed bool
}

// trySend delivers payload without blocking. Returns false if the
// connection is gone or its buffer is full.
func (c *connection) trySend(payload any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.ch <- payload:
		return true
	default:
		return false
	}
}

// shutdown marks the connection closed and closes its channel exactly
// once. Safe to call multiple times.
func (c *connection) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.ch)
}

// Broadcaster provides in-memory pub/sub over rooms, one room per
// conversation. Membership lives from Join until Disconnect; there is
// no leave operation. Delivery is best-effort: payloads are dropped for
// connections whose channels are full, and publish never fails because
// a recipient is gone.
type Broadcaster struct {
	mu     sync.RWMutex
	conns  map[string]*connection            // connID -> connection
	rooms  map[string]map[string]*connection // roomID -> connID -> connection
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		conns:  make(map[string]*connection),
		rooms:  make(map[string]map[string]*connection),
		logger: logger.With("component", "broadcaster"),
	}
}

// Connect registers a new live connection and returns its id along with
// the channel its deliveries arrive on. The channel is closed on
// Disconnect.
func (b *Broadcaster) Connect() (string, <-chan any) {
	c := &connection{
		id:    uuid.New().String(),
		ch:    make(chan any, connectionBufferSize),
		rooms: make(map[string]struct{}),
	}

	b.mu.Lock()
	b.conns[c.id] = c
	b.mu.Unlock()

	b.logger.Debug("connection registered", "conn_id", c.id)
	return c.id, c.ch
}

// Join adds the connection to a room. Joining twice has no additional
// effect; joining after disconnect is silently ignored.
func (b *Broadcaster) Join(connID, roomID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.conns[connID]
	if !ok {
		return
	}

	if _, member := c.rooms[roomID]; member {
		return
	}

	if b.rooms[roomID] == nil {
		b.rooms[roomID] = make(map[string]*connection)
	}
	b.rooms[roomID][connID] = c
	c.rooms[roomID] = struct{}{}

	b.logger.Debug("connection joined room", "conn_id", connID, "room_id", roomID)
}

// Publish delivers payload to every connection currently in the room,
// including the sender's own connection if it is joined. Non-blocking:
// payloads are dropped for connections whose channels are full.
func (b *Broadcaster) Publish(roomID string, payload any) {
	b.mu.RLock()
	members, ok := b.rooms[roomID]
	if !ok || len(members) == 0 {
		b.mu.RUnlock()
		return
	}

	// Copy member channels under read lock to avoid holding it during sends
	targets := make([]*connection, 0, len(members))
	for _, c := range members {
		targets = append(targets, c)
	}
	b.mu.RUnlock()

	for _, c := range targets {
		// A member may disconnect between the snapshot above and this
		// send; trySend treats it the same as a full buffer and drops.
		if !c.trySend(payload) {
			b.logger.Debug("dropped payload for connection",
				"room_id", roomID,
				"conn_id", c.id)
		}
	}
}

// Disconnect removes the connection from all room memberships and
// closes its channel. Future publishes no longer reach it.
func (b *Broadcaster) Disconnect(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.conns[connID]
	if !ok {
		return
	}

	for roomID := range c.rooms {
		delete(b.rooms[roomID], connID)
		if len(b.rooms[roomID]) == 0 {
			delete(b.rooms, roomID)
		}
	}

	delete(b.conns, connID)
	c.shutdown()

	b.logger.Debug("connection removed", "conn_id", connID)
}

// Close shuts down the broadcaster and closes all connection channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, c := range b.conns {
		c.shutdown()
		delete(b.conns, id)
	}
	b.rooms = make(map[string]map[string]*connection)

	b.logger.Debug("broadcaster closed")
}

// ConnectionCount returns the number of live connections.
func (b *Broadcaster) ConnectionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.conns)
}
