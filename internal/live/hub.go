// Package live pushes the character roster to websocket clients. A client
// receives the whole roster when it connects and again after every change,
// local or replicated, so a read-only view stays current without polling.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/roster/internal/observe"
	"github.com/MrWong99/roster/internal/replicate"
	"github.com/MrWong99/roster/internal/roster"
)

const (
	defaultBuffer       = 8
	defaultWriteTimeout = 5 * time.Second
)

// SnapshotFunc returns the current roster for newly connected clients.
type SnapshotFunc func(ctx context.Context) ([]roster.Character, error)

// Message is the JSON frame sent to clients.
type Message struct {
	Type       string          `json:"type"`
	At         time.Time       `json:"at"`
	Characters json.RawMessage `json:"characters"`
}

// MessageRoster is the only [Message.Type] sent today.
const MessageRoster = "roster"

// Hub fans roster changes out to connected clients. A client whose queue is
// full is dropped rather than allowed to stall the broadcaster. Hub is an
// [http.Handler]; mount it on the path clients dial.
type Hub struct {
	snapshot     SnapshotFunc
	metrics      *observe.Metrics
	buffer       int
	writeTimeout time.Duration
	accept       *websocket.AcceptOptions
	now          func() time.Time

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	send chan []byte

	// gone is closed when the hub drops the client.
	gone     chan struct{}
	goneOnce sync.Once
	status   websocket.StatusCode
	reason   string
}

func (c *client) drop(status websocket.StatusCode, reason string) {
	c.goneOnce.Do(func() {
		c.status = status
		c.reason = reason
		close(c.gone)
	})
}

// Option configures a [Hub].
type Option func(*Hub)

// WithMetrics sets the instruments the hub records to. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithBuffer sets how many messages may queue per client before it is
// dropped.
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.writeTimeout = d
		}
	}
}

// WithOriginPatterns allows cross-origin clients whose Origin host matches
// one of patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Hub) { h.accept.OriginPatterns = patterns }
}

// NewHub returns a hub that greets clients with the roster from snapshot.
func NewHub(snapshot SnapshotFunc, opts ...Option) *Hub {
	h := &Hub{
		snapshot:     snapshot,
		buffer:       defaultBuffer,
		writeTimeout: defaultWriteTimeout,
		accept:       &websocket.AcceptOptions{},
		now:          time.Now,
		clients:      make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	if h.metrics == nil {
		h.metrics = observe.DefaultMetrics()
	}
	return h
}

// Publish sends ch to every client. It never blocks; use it as a
// [replicate.Notifier] subscription.
func (h *Hub) Publish(ch replicate.Change) {
	msg, err := h.encode(ch.Characters, ch.At)
	if err != nil {
		slog.Warn("live: encode roster", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, c)
			c.drop(websocket.StatusPolicyViolation, "too slow")
			slog.Info("live: dropped slow client")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.drop(websocket.StatusGoingAway, "server shutting down")
	}
	return nil
}

// ServeHTTP upgrades the request and streams roster messages until the
// client goes away or is dropped.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		slog.Debug("live: accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	c := &client{send: make(chan []byte, h.buffer), gone: make(chan struct{})}
	if !h.add(c) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	h.metrics.LiveClients.Add(r.Context(), 1)
	defer func() {
		h.remove(c)
		h.metrics.LiveClients.Add(context.WithoutCancel(r.Context()), -1)
	}()

	// Clients never send anything; CloseRead handles control frames and
	// cancels ctx when the peer disconnects.
	ctx := conn.CloseRead(r.Context())

	// Registered before the snapshot is taken, so a change racing the
	// greeting is delivered afterwards rather than lost.
	if err := h.greet(ctx, conn); err != nil {
		observe.Logger(ctx).Debug("live: greeting failed", "err", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.gone:
			conn.Close(c.status, c.reason)
			return
		case msg := <-c.send:
			if err := h.write(ctx, conn, msg); err != nil {
				observe.Logger(ctx).Debug("live: write failed", "err", err)
				return
			}
		}
	}
}

func (h *Hub) greet(ctx context.Context, conn *websocket.Conn) error {
	cs, err := h.snapshot(ctx)
	if err != nil {
		return fmt.Errorf("live: snapshot: %w", err)
	}
	msg, err := h.encode(cs, h.now())
	if err != nil {
		return err
	}
	return h.write(ctx, conn, msg)
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) encode(cs []roster.Character, at time.Time) ([]byte, error) {
	doc, err := roster.Encode(cs)
	if err != nil {
		return nil, fmt.Errorf("live: encode roster: %w", err)
	}
	return json.Marshal(Message{Type: MessageRoster, At: at, Characters: json.RawMessage(doc)})
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
