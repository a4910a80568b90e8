package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"bondswap/core/events"
	"bondswap/core/types"
)

const (
	wsWriteTimeout     = 10 * time.Second
	subscriptionBuffer = 64
)

// eventHub fans committed events out to websocket subscribers. A subscriber
// that falls a full buffer behind misses events rather than stalling the host.
type eventHub struct {
	mu   sync.Mutex
	subs map[chan *types.Event]struct{}
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan *types.Event]struct{})}
}

// Emit implements events.Emitter.
func (h *eventHub) Emit(evt events.Event) {
	typed, ok := evt.(events.Typed)
	if !ok {
		return
	}
	rendered := typed.Event()
	if rendered == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- rendered:
		default:
		}
	}
}

func (h *eventHub) subscribe() (<-chan *types.Event, func()) {
	ch := make(chan *types.Event, subscriptionBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *eventHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// handleEvents streams events whose type starts with the optional ?type=
// prefix.
func (s *server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, errors.New("event stream disabled"))
		return
	}
	prefix := strings.TrimSpace(r.URL.Query().Get("type"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	updates, cancel := s.events.subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-updates:
			if prefix != "" && !strings.HasPrefix(evt.Type, prefix) {
				continue
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				if websocket.CloseStatus(err) == -1 {
					s.logger.Debug("event stream write failed", "error", err.Error())
				}
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
