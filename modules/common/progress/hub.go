package progress

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// SnapshotFunc returns the current state of topic. A nil value means there is
// nothing to send yet; final means no further messages will be published.
type SnapshotFunc func(ctx context.Context, topic string) (v any, final bool, err error)

// Hub fans progress messages out to websocket subscribers, one topic per job.
// Slow subscribers are dropped instead of blocking publishers.
type Hub struct {
	mu       sync.RWMutex
	topics   map[string]map[*subscriber]struct{}
	snapshot SnapshotFunc
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

type subscriber struct {
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		topics: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// progress streams carry no credentials; any origin may listen
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// SetSnapshot installs the lookup ServeWS uses to greet new subscribers.
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.snapshot = fn
}

// Subscribe registers a listener on topic. The returned cancel func
// unsubscribes and closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan []byte, func()) {
	sub := &subscriber{send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	return sub.send, func() { h.unsubscribe(topic, sub) }
}

func (h *Hub) unsubscribe(topic string, sub *subscriber) {
	h.mu.Lock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Publish marshals v as JSON and delivers it to every subscriber of topic.
func (h *Hub) Publish(topic string, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("marshal progress message")
		return
	}

	var dropped []*subscriber
	h.mu.RLock()
	for sub := range h.topics[topic] {
		select {
		case sub.send <- msg:
		default:
			dropped = append(dropped, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range dropped {
		h.log.Warn().Str("topic", topic).Msg("dropping slow progress subscriber")
		h.unsubscribe(topic, sub)
	}
}

// Stats - active topics and subscribers
func (h *Hub) Stats() (topics, subscribers int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, subs := range h.topics {
		subscribers += len(subs)
	}
	return len(h.topics), subscribers
}

// ServeWS upgrades GET /ws?job=<id> and streams that job's progress.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("job")
	if topic == "" {
		http.Error(w, `{"error": "job query parameter is required"}`, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// subscribe before the snapshot so nothing published in between is lost
	messages, cancel := h.Subscribe(topic)
	h.log.Debug().Str("topic", topic).Msg("progress subscriber connected")

	first, final := h.currentState(r.Context(), topic)
	go writePump(conn, first, final, messages)
	readPump(conn, cancel)
}

// currentState marshals the topic snapshot, if a lookup is installed.
func (h *Hub) currentState(ctx context.Context, topic string) ([]byte, bool) {
	if h.snapshot == nil {
		return nil, false
	}
	v, final, err := h.snapshot(ctx, topic)
	if err != nil {
		h.log.Warn().Err(err).Str("topic", topic).Msg("progress snapshot failed")
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	msg, err := json.Marshal(v)
	if err != nil {
		h.log.Error().Err(err).Str("topic", topic).Msg("marshal progress snapshot")
		return nil, false
	}
	return msg, final
}

// readPump discards client frames and unsubscribes once the peer goes away.
func readPump(conn *websocket.Conn, cancel func()) {
	defer func() {
		cancel()
		conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends first (when set) and then the topic stream. A final
// snapshot ends the stream right away with a close frame.
func writePump(conn *websocket.Conn, first []byte, final bool, messages <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	if first != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, first); err != nil {
			return
		}
		if final {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "job finished"))
			return
		}
	}

	for {
		select {
		case msg, ok := <-messages:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
