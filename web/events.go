// ABOUTME: Pushes repository change notifications to open pages over websockets
// ABOUTME: Pages refetch what they show when a message arrives
package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const eventWriteTimeout = 2 * time.Second

// ChangeMessage is what a connected page receives for every repository event.
type ChangeMessage struct {
	Kind       string `json:"kind"`
	Collection string `json:"collection,omitempty"`
	ID         string `json:"id,omitempty"`
}

func changeFor(ev db.Event) ChangeMessage {
	return ChangeMessage{Kind: ev.Kind.String(), Collection: ev.Collection, ID: ev.ID}
}

type changeHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

func newChangeHub(logger *zap.Logger) *changeHub {
	return &changeHub{logger: logger, conns: make(map[*websocket.Conn]struct{})}
}

func (h *changeHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *changeHub) add(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *changeHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// broadcast writes msg to every connection, dropping the ones that fail.
func (h *changeHub) broadcast(msg ChangeMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("dropping event listener", zap.Error(err))
			_ = conn.Close()
			delete(h.conns, conn)
		}
	}
}

func (h *changeHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}

func (h *changeHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	if !h.add(conn) {
		_ = conn.Close()
		return
	}
	defer h.remove(conn)

	// Pages never send anything meaningful; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
