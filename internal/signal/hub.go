package signal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Greeting is the body answered to a plain HTTP GET on the channel
// endpoint. Kept for compatibility with SockJS-era health checks.
const Greeting = "Welcome to SockJS!\n"

const (
	// sendQueueSize bounds the per-subscriber queue. A subscriber that
	// falls this far behind is dropped rather than allowed to stall the
	// broadcast.
	sendQueueSize = 16

	writeTimeout = 10 * time.Second
)

// HubConfig configures a Hub.
type HubConfig struct {
	// Registry is the Prometheus registerer for hub metrics.
	// Defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Logger receives connection lifecycle logs. Defaults to slog.Default.
	Logger *slog.Logger
}

// Hub is the server end of the signalling channel: an explicitly-lifetimed
// registry of subscribers that multiplexes compilation events to every
// connected page. Create with NewHub, tear down with Close.
//
// Events are delivered to each subscriber in broadcast order. Each
// subscriber has its own buffered queue and write loop, so a slow or dead
// subscriber is dropped in isolation and never delays the others.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	last        *Event
	closed      bool

	upgrader websocket.Upgrader
	metrics  *hubMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewHub creates a hub with no subscribers.
func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // dev server, any origin may connect
			},
		},
		metrics: newHubMetrics(cfg.Registry),
		logger:  logger.With("component", "hub"),
		tracer:  otel.Tracer("sockline"),
	}
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// ServeHTTP answers the channel endpoint. WebSocket upgrade requests join
// the subscriber set; anything else gets the fixed greeting so proxies and
// health checks can probe the path with a plain GET.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(Greeting))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subscribers[sub] = struct{}{}
	// Late joiners learn the current build status immediately.
	if h.last != nil {
		if data, err := h.last.Encode(); err == nil {
			sub.send <- data
		}
	}
	h.mu.Unlock()

	h.metrics.subscribers.Inc()
	h.logger.Debug("subscriber connected", "remote", r.RemoteAddr)

	go sub.writeLoop(h)
	go sub.readLoop(h)
}

// writeLoop drains the subscriber's queue onto the connection.
func (s *subscriber) writeLoop(h *Hub) {
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.drop(s, true)
				return
			}
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// readLoop discards inbound frames until the connection closes. The
// channel is one-way; reading only serves to detect disconnects.
func (s *subscriber) readLoop(h *Hub) {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			h.drop(s, false)
			return
		}
	}
}

// drop removes a subscriber and closes its connection. Safe to call more
// than once; only the first call takes effect.
func (h *Hub) drop(s *subscriber, stalled bool) {
	h.mu.Lock()
	_, ok := h.subscribers[s]
	if ok {
		delete(h.subscribers, s)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	h.metrics.subscribers.Dec()
	if stalled {
		h.metrics.dropped.Inc()
	}
	s.close()
	h.logger.Debug("subscriber disconnected", "stalled", stalled)
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// Broadcast delivers an event to every subscriber in order. Subscribers
// whose queue is full are dropped; delivery to the rest is unaffected.
func (h *Hub) Broadcast(ctx context.Context, ev Event) {
	data, err := ev.Encode()
	if err != nil {
		h.logger.Error("event encode failed", "error", err)
		return
	}

	var stalled []*subscriber

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.last = &ev
	count := len(h.subscribers)
	for sub := range h.subscribers {
		select {
		case sub.send <- data:
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.Unlock()

	_, span := h.tracer.Start(ctx, "hub.broadcast", trace.WithAttributes(
		attribute.String("event.type", string(ev.Type)),
		attribute.Int("subscribers", count),
	))
	span.End()

	h.metrics.events.WithLabelValues(string(ev.Type)).Inc()

	for _, sub := range stalled {
		h.drop(sub, true)
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber and rejects future connections.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
		delete(h.subscribers, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.close()
		h.metrics.subscribers.Dec()
	}
}
