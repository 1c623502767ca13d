package notify

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/api/auth"
)

type Handler struct {
	service  Service
	hub      *Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service Service, hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger.With(slog.String("handler", "notify")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeWS handles GET /api/notifications/ws. The session middleware has
// already authenticated the request; browsers authenticate the upgrade
// through the auth cookie.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the handshake error response.
		h.logger.WarnContext(r.Context(), "Websocket upgrade failed", slog.Any("error", err))
		return
	}

	h.hub.Add(principal.ID, conn)
	defer func() {
		h.hub.Remove(principal.ID, conn)
		conn.Close()
	}()

	// Inbound frames are ignored; the read loop only detects closure.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// List handles GET /api/notifications.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.service.List(r.Context(), principal.ID, unreadOnly, limit, offset)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success":       true,
		"notifications": notifications,
	})
}

// MarkRead handles POST /api/notifications/{notificationID}/read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "notificationID"), 10, 64)
	if err != nil || id <= 0 {
		api.WriteError(w, r, api.ErrValidation("invalid notificationID"))
		return
	}

	if err := h.service.MarkRead(r.Context(), principal.ID, id); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
