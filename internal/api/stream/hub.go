// Package stream pushes freshly computed scores to WebSocket subscribers.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/m-a-n-a-v/vettr/backend/internal/contracts"
	"github.com/m-a-n-a-v/vettr/backend/internal/metrics"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingInterval   = (pongTimeout * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Event is the message written to subscribers
type Event struct {
	Type  string                    `json:"type"`
	Score *contracts.CompositeScore `json:"score"`
}

const eventScore = "score"

type subscriber struct {
	id     string
	entity string // empty = all entities
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans computed scores out to connected clients.
// A client that cannot keep up is disconnected instead of blocking the scorer.
// ⭐ SSOT: 실시간 점수 구독 관리는 여기서만
type Hub struct {
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	subscribers map[string]*subscriber

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(m *metrics.Metrics, log zerolog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subscribers: make(map[string]*subscriber),
		metrics:     m,
		log:         log.With().Str("component", "stream.hub").Logger(),
	}
}

// ServeHTTP upgrades the request and registers a subscriber.
// ?entity=<id> limits the stream to one entity.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{
		id:     uuid.NewString(),
		entity: r.URL.Query().Get("entity"),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()
	h.metrics.SubscriberDelta(1)

	h.log.Info().Str("subscriber", sub.id).Str("entity", sub.entity).Msg("subscriber connected")

	go h.writePump(sub)
	go h.readPump(sub)
}

// PublishScore implements scoring.Publisher
func (h *Hub) PublishScore(score *contracts.CompositeScore) {
	if score == nil {
		return
	}
	payload, err := json.Marshal(Event{Type: eventScore, Score: score})
	if err != nil {
		h.log.Error().Err(err).Str("entity_id", score.EntityID).Msg("marshal score event failed")
		return
	}

	var slow []string
	h.mu.RLock()
	for id, sub := range h.subscribers {
		if sub.entity != "" && sub.entity != score.EntityID {
			continue
		}
		select {
		case sub.send <- payload:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		h.log.Warn().Str("subscriber", id).Msg("subscriber too slow, disconnecting")
		h.remove(id)
	}
}

// Count returns the number of connected subscribers
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.subscribers))
	for id := range h.subscribers {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		h.remove(id)
	}
}

// remove closes the send channel once; the write pump then closes the connection
func (h *Hub) remove(id string) {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok {
		delete(h.subscribers, id)
		close(sub.send)
	}
	h.mu.Unlock()

	if ok {
		h.metrics.SubscriberDelta(-1)
		h.log.Info().Str("subscriber", id).Msg("subscriber disconnected")
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug().Err(err).Str("subscriber", sub.id).Msg("websocket write failed")
				h.remove(sub.id)
				return
			}

		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(sub.id)
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed
func (h *Hub) readPump(sub *subscriber) {
	defer h.remove(sub.id)

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("subscriber", sub.id).Msg("websocket read failed")
			}
			return
		}
	}
}
