package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	obsmetrics "github.com/matchpoint-hq/matchpoint/app/observability/metrics"
	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// Hub tracks live websocket connections per user and pushes notifications
// to every open connection of the target user. A user may hold several
// connections (multiple tabs or devices).
type Hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[int64]map[*websocket.Conn]*sync.Mutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[int64]map[*websocket.Conn]*sync.Mutex),
	}
}

func (h *Hub) Add(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]*sync.Mutex)
	}
	// The websocket allows a single writer at a time, so each connection
	// carries its own write lock.
	h.conns[userID][conn] = &sync.Mutex{}
	obsmetrics.Get().WsConnectionsActive.Add(context.Background(), 1)
}

func (h *Hub) Remove(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.conns[userID]
	if !ok {
		return
	}
	if _, present := set[conn]; !present {
		return
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
	obsmetrics.Get().WsConnectionsActive.Add(context.Background(), -1)
}

// Publish sends the notification to every live connection of the user.
// Write failures close the connection; the database row is the durable
// copy, so a missed push is recoverable.
func (h *Hub) Publish(n *types.Notification) {
	type target struct {
		conn *websocket.Conn
		wmu  *sync.Mutex
	}

	h.mu.RLock()
	targets := make([]target, 0, len(h.conns[n.UserID]))
	for conn, wmu := range h.conns[n.UserID] {
		targets = append(targets, target{conn, wmu})
	}
	h.mu.RUnlock()

	payload := api.SafeMarshal(n)
	for _, t := range targets {
		t.wmu.Lock()
		err := t.conn.WriteMessage(websocket.TextMessage, payload)
		t.wmu.Unlock()
		if err != nil {
			h.logger.Warn("Websocket push failed, dropping connection",
				slog.Int64("user_id", n.UserID), slog.Any("error", err))
			t.conn.Close()
			h.Remove(n.UserID, t.conn)
		}
	}
}

// ConnectionCount reports the number of live connections for a user.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}
