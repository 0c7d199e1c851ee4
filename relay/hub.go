// Package relay couples one engine session to many WebSocket
// subscribers: a producer goroutine reads, filters, and serializes
// each engine event once, the hub fans the payload out with
// per-subscriber back-pressure, and the server owns the HTTP surface.
package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// subscriberQueue bounds the per-subscriber backlog. A subscriber
	// that falls this far behind is dropped rather than stalling the
	// broadcast.
	subscriberQueue = 256
	// writeTimeout bounds one socket write before the subscriber is
	// declared dead.
	writeTimeout = 5 * time.Second
	// closeGrace bounds the goodbye close frame on removal.
	closeGrace = time.Second
)

// Subscriber is one registered WebSocket consumer. Its writer
// goroutine owns the socket writes; the hub only ever touches the
// queue.
type Subscriber struct {
	ID          string
	Remote      string
	ConnectedAt time.Time

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// SubscriberInfo is the /clients summary form.
type SubscriberInfo struct {
	ID          string `json:"id"`
	Remote      string `json:"remote-addr"`
	ConnectedAt string `json:"connected-at"`
}

// Hub is the subscriber registry plus the broadcast step. It is the
// relay's one shared mutable structure; the mutex guards the map and
// broadcast iterates a snapshot, so a failure on one subscriber never
// invalidates delivery to the rest.
type Hub struct {
	log     zerolog.Logger
	metrics *Metrics

	mu   sync.Mutex
	subs map[string]*Subscriber
}

// NewHub returns an empty registry.
func NewHub(log zerolog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		subs:    make(map[string]*Subscriber),
	}
}

// Add registers an upgraded connection and starts its writer.
func (h *Hub) Add(conn *websocket.Conn) *Subscriber {
	sub := &Subscriber{
		ID:          uuid.NewString(),
		Remote:      conn.RemoteAddr().String(),
		ConnectedAt: time.Now(),
		conn:        conn,
		send:        make(chan []byte, subscriberQueue),
		done:        make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()
	h.metrics.Subscribers.Set(float64(n))

	go h.writeLoop(sub)
	h.log.Info().Str("subscriber", sub.ID).Str("remote", sub.Remote).Int("total", n).Msg("subscriber connected")
	return sub
}

// Broadcast offers one already-serialized payload to every subscriber
// in a registry snapshot. A subscriber whose queue is full is dropped;
// the rest are unaffected.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.Unlock()

	for _, sub := range snapshot {
		select {
		case sub.send <- payload:
		default:
			h.metrics.DroppedSubs.Inc()
			h.Remove(sub.ID, "slow consumer")
		}
	}
}

// writeLoop drains one subscriber's queue onto its socket. A write
// error removes exactly that subscriber.
func (h *Hub) writeLoop(sub *Subscriber) {
	for {
		select {
		case payload := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.metrics.DroppedSubs.Inc()
				h.Remove(sub.ID, "write failed")
				return
			}
		case <-sub.done:
			return
		}
	}
}

// Remove deregisters a subscriber and closes its socket. A given
// entry is removed exactly once, whatever races to remove it.
func (h *Hub) Remove(id, reason string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	n := len(h.subs)
	h.mu.Unlock()
	if !ok {
		return
	}
	h.metrics.Subscribers.Set(float64(n))

	sub.once.Do(func() {
		close(sub.done)
		deadline := time.Now().Add(closeGrace)
		_ = sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = sub.conn.Close()
	})
	h.log.Info().Str("subscriber", id).Str("reason", reason).Int("total", n).Msg("subscriber removed")
}

// Len is the current registry size.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Summaries lists the registry for /clients. Order is not meaningful.
func (h *Hub) Summaries() []SubscriberInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SubscriberInfo, 0, len(h.subs))
	for _, sub := range h.subs {
		out = append(out, SubscriberInfo{
			ID:          sub.ID,
			Remote:      sub.Remote,
			ConnectedAt: sub.ConnectedAt.Format(time.RFC3339Nano),
		})
	}
	return out
}

// CloseAll removes every subscriber, sending each a close frame.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Remove(id, "shutdown")
	}
}
