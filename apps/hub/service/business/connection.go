package business

import (
	"hash/maphash"
	"sync"
	"sync/atomic"

	"github.com/pitabwire/util"
)

// Client is one authenticated websocket connection. Outbound events are
// enqueued into a buffered channel drained by the transport's write pump;
// once the client is closed, enqueues become no-ops so that nothing is
// delivered after disconnect cleanup has run.
type Client struct {
	ID     string
	UserID string
	Email  string
	Name   string

	send chan OutboundEvent

	mu     sync.Mutex
	closed bool
	rooms  map[string]RoomKey
}

// NewClient creates a client for an authenticated connection.
func NewClient(userID, email, name string, sendBuffer int) *Client {
	if sendBuffer <= 0 {
		sendBuffer = 1
	}
	return &Client{
		ID:     util.IDString(),
		UserID: userID,
		Email:  email,
		Name:   name,
		send:   make(chan OutboundEvent, sendBuffer),
		rooms:  make(map[string]RoomKey),
	}
}

// Enqueue hands an event to the write pump without blocking. Returns false
// when the client is closed or its buffer is full; a full buffer marks a
// consumer that cannot keep up and the event is dropped for this connection.
func (c *Client) Enqueue(evt OutboundEvent) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	select {
	case c.send <- evt:
		c.mu.Unlock()
		return true
	default:
		c.mu.Unlock()
		return false
	}
}

// Outbound exposes the event channel for the transport's write pump.
func (c *Client) Outbound() <-chan OutboundEvent {
	return c.send
}

// Close stops delivery and closes the outbound channel. Safe to call more
// than once. Events already buffered are discarded by the pump observing
// the channel close.
func (c *Client) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
}

// TrackJoin records a room membership on the connection.
func (c *Client) TrackJoin(room RoomKey) {
	c.mu.Lock()
	c.rooms[room.String()] = room
	c.mu.Unlock()
}

// TrackLeave removes a room membership from the connection.
func (c *Client) TrackLeave(room RoomKey) {
	c.mu.Lock()
	delete(c.rooms, room.String())
	c.mu.Unlock()
}

// InRoom reports whether the connection has joined the room.
func (c *Client) InRoom(room RoomKey) bool {
	c.mu.Lock()
	_, ok := c.rooms[room.String()]
	c.mu.Unlock()
	return ok
}

// Rooms returns a snapshot of the rooms this connection has joined.
func (c *Client) Rooms() []RoomKey {
	c.mu.Lock()
	out := make([]RoomKey, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	c.mu.Unlock()
	return out
}

const (
	// poolShardCount must be a power of 2 for the mask in getShard.
	poolShardCount = 32
)

type poolShard struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// clientPool tracks active connections across shards so that lookups and
// removals on different connections rarely contend. A global atomic counter
// keeps size() lock-free.
type clientPool struct {
	shards      [poolShardCount]*poolShard
	hashSeed    maphash.Seed
	currentSize int32
}

func newClientPool() *clientPool {
	pool := &clientPool{
		hashSeed: maphash.MakeSeed(),
	}
	for i := range poolShardCount {
		pool.shards[i] = &poolShard{
			clients: make(map[string]*Client, 64),
		}
	}
	return pool
}

func (p *clientPool) getShard(key string) *poolShard {
	h := maphash.String(p.hashSeed, key)
	return p.shards[h&(poolShardCount-1)]
}

func (p *clientPool) add(c *Client) {
	shard := p.getShard(c.ID)
	shard.mu.Lock()
	if _, exists := shard.clients[c.ID]; !exists {
		shard.clients[c.ID] = c
		atomic.AddInt32(&p.currentSize, 1)
	}
	shard.mu.Unlock()
}

func (p *clientPool) get(connID string) (*Client, bool) {
	shard := p.getShard(connID)
	shard.mu.RLock()
	c, ok := shard.clients[connID]
	shard.mu.RUnlock()
	return c, ok
}

func (p *clientPool) remove(connID string) {
	shard := p.getShard(connID)
	shard.mu.Lock()
	if _, exists := shard.clients[connID]; exists {
		delete(shard.clients, connID)
		atomic.AddInt32(&p.currentSize, -1)
	}
	shard.mu.Unlock()
}

func (p *clientPool) size() int32 {
	return atomic.LoadInt32(&p.currentSize)
}

// forEach iterates over per-shard snapshots so fn never runs under a lock.
func (p *clientPool) forEach(fn func(*Client)) {
	var all []*Client
	for i := range poolShardCount {
		shard := p.shards[i]
		shard.mu.RLock()
		for _, c := range shard.clients {
			all = append(all, c)
		}
		shard.mu.RUnlock()
	}
	for _, c := range all {
		fn(c)
	}
}
