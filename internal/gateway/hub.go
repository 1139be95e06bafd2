package gateway

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"candlewatch/internal/metrics"
	"candlewatch/internal/model"
)

// Hub fans event frames out to connected display clients and keeps a replay
// buffer for reconnects. It is also a model.ReportSink.
type Hub struct {
	auth    *Authenticator
	metrics *metrics.Metrics
	replay  *ReplayBuffer

	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
}

// HubConfig configures a Hub.
type HubConfig struct {
	ReplaySize int
	Auth       *Authenticator // nil disables auth
}

// NewHub creates a hub. m may be nil.
func NewHub(cfg HubConfig, m *metrics.Metrics) *Hub {
	return &Hub{
		auth:    cfg.Auth,
		metrics: m,
		replay:  NewReplayBuffer(cfg.ReplaySize),
		clients: make(map[*Client]bool),
	}
}

// Name identifies the sink.
func (h *Hub) Name() string { return "gateway" }

// Handle broadcasts every event in r.
func (h *Hub) Handle(_ context.Context, r model.Report) error {
	for _, env := range model.Envelopes(r) {
		h.Broadcast(env)
	}
	return nil
}

// Broadcast assigns the next sequence number to env and sends it to every
// client. Slow clients miss frames rather than block the hub; they can
// recover them with ?since=<seq> on reconnect.
func (h *Hub) Broadcast(env model.Envelope) {
	// Sequencing, buffering and sending share one critical section so a
	// client registering concurrently sees each frame exactly once.
	h.mu.Lock()
	h.seq++
	frame := buildFrame(env, h.seq, time.Now().UTC())
	h.replay.Push(h.seq, frame)
	for c := range h.clients {
		select {
		case c.send <- frame:
		default:
		}
	}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSBroadcasts.Inc()
	}
}

// buildFrame hand-crafts the frame JSON around the pre-encoded payload:
// {"seq":N,"ts":"...","type":"...","symbol":"...","trace_id":"...","data":{...}}
func buildFrame(env model.Envelope, seq int64, now time.Time) []byte {
	buf := make([]byte, 0, len(env.Data)+len(env.Symbol)+len(env.TraceID)+112)
	buf = append(buf, `{"seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, `,"ts":"`...)
	buf = now.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","type":`...)
	buf = strconv.AppendQuote(buf, string(env.Type))
	buf = append(buf, `,"symbol":`...)
	buf = strconv.AppendQuote(buf, env.Symbol)
	if env.TraceID != "" {
		buf = append(buf, `,"trace_id":`...)
		buf = strconv.AppendQuote(buf, env.TraceID)
	}
	buf = append(buf, `,"data":`...)
	buf = append(buf, env.Data...)
	buf = append(buf, '}')
	return buf
}

// register adds a client and queues every buffered frame after since.
func (h *Hub) register(conn *websocket.Conn, since int64) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	for _, e := range h.replay.Since(since) {
		select {
		case c.send <- e.Data:
		default:
		}
	}
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
	log.Printf("[gateway] ws client connected (%d total)", count)

	go c.writePump()
	go c.readPump()
	return c
}

// sendTo queues msg for c if it is still registered.
func (h *Hub) sendTo(c *Client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// removeClient drops c. Safe to call more than once.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	close(c.send)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSClients.Set(float64(count))
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the last assigned sequence number.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		h.removeClient(c)
	}
}
