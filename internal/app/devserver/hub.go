package devserver

import (
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/exp/slog"

	syncdomain "campsync/internal/domain/sync"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 10 * time.Second
)

// subscriber is one websocket client attached to a scope.
type subscriber struct {
	scope string
	ch    chan syncdomain.PushEvent
}

// Hub fans push events out to every subscriber of a scope. Slow subscribers
// drop events rather than stall the rest.
type Hub struct {
	log *slog.Logger

	mu     gosync.Mutex
	subs   map[int]*subscriber
	nextID int
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{log: log, subs: make(map[int]*subscriber)}
}

// Broadcast delivers an event to every subscriber of the scope.
func (h *Hub) Broadcast(scope string, ev syncdomain.PushEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if sub.scope != scope {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.log.Warn("dropping push event for slow subscriber", "scope", scope)
		}
	}
}

func (h *Hub) add(scope string) (int, <-chan syncdomain.PushEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := &subscriber{scope: scope, ch: make(chan syncdomain.PushEvent, subscriberBuffer)}
	h.subs[id] = sub
	return id, sub.ch
}

func (h *Hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// serve pumps events to one websocket connection until it drops.
func (h *Hub) serve(conn *websocket.Conn, scope string) {
	id, events := h.add(scope)
	defer h.remove(id)
	defer conn.Close()

	// the read side only watches for the peer closing
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.log.Debug("subscriber write failed", "scope", scope, "error", err)
				return
			}
		}
	}
}
