// Package ws provides a sharded WebSocket hub with per-topic replay buffers,
// topic authorization and Redis-backed presence.
package ws

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Pragadees15/sport-backend/pkg/metrics"
)

const (
	presencePrefix = "presence:"
	presenceTTL    = 60 * time.Second
)

// Message wraps a WebSocket payload with sequencing for replay.
type Message struct {
	Topic string          `json:"topic"`
	Seq   uint64          `json:"seq"`
	Data  json.RawMessage `json:"data"`
}

// TopicAuthorizer decides whether a user may subscribe to a topic.
type TopicAuthorizer func(ctx context.Context, userID uuid.UUID, topic string) bool

// ringBuffer holds the last N messages for a topic.
type ringBuffer struct {
	mu    sync.RWMutex
	buf   []Message
	size  int
	start int
	count int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{buf: make([]Message, size), size: size}
}

// add appends a message, overwriting old entries when full.
func (r *ringBuffer) add(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := (r.start + r.count) % r.size
	if r.count == r.size {
		r.start = (r.start + 1) % r.size
		r.count--
	}
	r.buf[idx] = msg
	r.count++
}

// getSince returns messages with Seq > since.
func (r *ringBuffer) getSince(since uint64) []Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Message
	for i := 0; i < r.count; i++ {
		msg := r.buf[(r.start+i)%r.size]
		if msg.Seq > since {
			out = append(out, msg)
		}
	}
	return out
}

// Client represents a single WebSocket connection.
type Client struct {
	id            string
	userID        uuid.UUID
	conn          *websocket.Conn
	send          chan Message
	subsMu        sync.RWMutex
	subscriptions map[string]uint64
	hub           *Hub
}

func (c *Client) subscribed(topic string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}

// Hub manages all WebSocket clients, sharded for concurrency.
type Hub struct {
	shards     []*hubShard
	shardCount uint32

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message

	buffers map[string]*ringBuffer
	bufMu   sync.Mutex
	seqMu   sync.Mutex
	nextSeq uint64

	// connection count per user, touched only from the run loop
	userConns map[uuid.UUID]int

	upgrader  websocket.Upgrader
	authorize TopicAuthorizer
	redis     *redis.Client
	logger    *zap.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	shutdown chan struct{}
	wg       sync.WaitGroup
}

type hubShard struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates a Hub with the given shard count and replay buffer size per topic.
// The authorizer gates subscription requests; redis may be nil to disable presence.
func NewHub(logger *zap.Logger, redisClient *redis.Client, authorize TopicAuthorizer, shardCount, replaySize int) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	h := &Hub{
		shards:     make([]*hubShard, shardCount),
		shardCount: uint32(shardCount),
		register:   make(chan *Client, 1000),
		unregister: make(chan *Client, 1000),
		broadcast:  make(chan Message, 10000),
		buffers:    make(map[string]*ringBuffer),
		userConns:  make(map[uuid.UUID]int),
		nextSeq:    1,
		authorize:  authorize,
		redis:      redisClient,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	for i := range h.shards {
		h.shards[i] = &hubShard{clients: make(map[*Client]struct{})}
	}

	h.wg.Add(1)
	go h.run()

	return h
}

// run handles registration, unregistration and broadcasting.
func (h *Hub) run() {
	defer h.wg.Done()

	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-h.shutdown:
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	sh := h.shardFor(client.id)
	sh.mu.Lock()
	sh.clients[client] = struct{}{}
	sh.mu.Unlock()

	metrics.WSConnections.Inc()
	h.userConns[client.userID]++
	if h.userConns[client.userID] == 1 {
		h.markOnline(client.userID)
	}

	h.logger.Debug("WebSocket client registered",
		zap.String("client_id", client.id),
		zap.String("user_id", client.userID.String()))
}

func (h *Hub) handleUnregister(client *Client) {
	sh := h.shardFor(client.id)
	sh.mu.Lock()
	_, present := sh.clients[client]
	delete(sh.clients, client)
	sh.mu.Unlock()

	if !present {
		return
	}

	close(client.send)
	metrics.WSConnections.Dec()

	// Drop presence only when the user's last connection goes away
	h.userConns[client.userID]--
	if h.userConns[client.userID] <= 0 {
		delete(h.userConns, client.userID)
		h.markOffline(client.userID)
	}

	h.logger.Debug("WebSocket client unregistered", zap.String("client_id", client.id))
}

func (h *Hub) handleBroadcast(msg Message) {
	h.bufMu.Lock()
	buf, ok := h.buffers[msg.Topic]
	if !ok {
		buf = newRingBuffer(1000)
		h.buffers[msg.Topic] = buf
	}
	buf.add(msg)
	h.bufMu.Unlock()

	for _, sh := range h.shards {
		sh.mu.RLock()
		for c := range sh.clients {
			if !c.subscribed(msg.Topic) {
				continue
			}
			select {
			case c.send <- msg:
				metrics.WSMessagesSent.Inc()
			default:
				// Slow client, drop rather than block the hub
				h.logger.Warn("Dropping message for slow client",
					zap.String("client_id", c.id),
					zap.String("topic", msg.Topic))
			}
		}
		sh.mu.RUnlock()
	}
}

func (h *Hub) shardFor(key string) *hubShard {
	hasher := fnv.New32a()
	hasher.Write([]byte(key))
	return h.shards[hasher.Sum32()%h.shardCount]
}

// ServeWS upgrades HTTP to WebSocket and registers a client for the given user.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		id:            uuid.NewString(),
		userID:        userID,
		conn:          conn,
		send:          make(chan Message, 256),
		subscriptions: make(map[string]uint64),
		hub:           h,
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

// Broadcast publishes a message to a topic for all subscribed clients.
func (h *Hub) Broadcast(topic string, data []byte) {
	h.seqMu.Lock()
	seq := h.nextSeq
	h.nextSeq++
	h.seqMu.Unlock()
	h.broadcast <- Message{Topic: topic, Seq: seq, Data: data}
}

// Replay returns buffered messages for a topic since the given sequence.
func (h *Hub) Replay(topic string, since uint64) []Message {
	h.bufMu.Lock()
	defer h.bufMu.Unlock()
	if buf, ok := h.buffers[topic]; ok {
		return buf.getSince(since)
	}
	return nil
}

// IsOnline reports whether a user has a live presence key.
func (h *Hub) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	if h.redis == nil {
		return false, nil
	}
	n, err := h.redis.Exists(ctx, presencePrefix+userID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (h *Hub) markOnline(userID uuid.UUID) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Set(h.ctx, presencePrefix+userID.String(), "1", presenceTTL).Err(); err != nil {
		h.logger.Warn("Failed to set presence key", zap.Error(err))
	}
}

func (h *Hub) refreshPresence(userID uuid.UUID) {
	h.markOnline(userID)
}

func (h *Hub) markOffline(userID uuid.UUID) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(h.ctx, presencePrefix+userID.String()).Err(); err != nil {
		h.logger.Warn("Failed to delete presence key", zap.Error(err))
	}
}

// Shutdown gracefully stops the hub and closes all connections.
func (h *Hub) Shutdown() error {
	h.logger.Info("Shutting down WebSocket hub")

	close(h.shutdown)
	h.cancel()
	h.wg.Wait()

	for _, sh := range h.shards {
		sh.mu.Lock()
		for client := range sh.clients {
			client.conn.Close()
		}
		sh.mu.Unlock()
	}

	return nil
}

// readPump handles incoming subscription requests and keepalives.
func (c *Client) readPump() {
	defer func() { c.hub.unregister <- c; c.conn.Close() }()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		c.hub.refreshPresence(c.userID)
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		// interpret msg as JSON subscription: {"subscribe":["chat:<id>"]}
		var req map[string][]string
		if err := json.Unmarshal(msg, &req); err != nil {
			continue
		}
		if subs, ok := req["subscribe"]; ok {
			for _, topic := range subs {
				if c.hub.authorize != nil && !c.hub.authorize(c.hub.ctx, c.userID, topic) {
					c.hub.logger.Warn("Subscription denied",
						zap.String("user_id", c.userID.String()),
						zap.String("topic", topic))
					continue
				}
				c.subsMu.Lock()
				c.subscriptions[topic] = 0
				c.subsMu.Unlock()
				for _, m := range c.hub.Replay(topic, 0) {
					select {
					case c.send <- m:
					default:
					}
				}
			}
		}
		if unsubs, ok := req["unsubscribe"]; ok {
			c.subsMu.Lock()
			for _, topic := range unsubs {
				delete(c.subscriptions, topic)
			}
			c.subsMu.Unlock()
		}
	}
}

// writePump sends messages and heartbeats to the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() { ticker.Stop(); c.conn.Close() }()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
