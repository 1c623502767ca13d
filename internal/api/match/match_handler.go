package match

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matchpoint-hq/matchpoint/internal/api"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With(slog.String("handler", "match")),
	}
}

type resultRequest struct {
	HomeScore *int `json:"home_score"`
	AwayScore *int `json:"away_score"`
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.ErrValidation("invalid " + name)
	}
	return id, nil
}

// Create handles POST /api/matches.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var params CreateMatchParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.WriteError(w, r, err)
		return
	}

	m, err := h.service.CreateMatch(r.Context(), params)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"match":   m,
	})
}

// Get handles GET /api/matches/{matchID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	m, err := h.service.GetMatch(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"match":   m,
	})
}

// ListByTeam handles GET /api/teams/{teamID}/matches.
func (h *Handler) ListByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	matches, err := h.service.ListTeamMatches(r.Context(), teamID, limit, offset)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"matches": matches,
	})
}

// Update handles PUT /api/matches/{matchID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var params UpdateMatchParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.WriteError(w, r, err)
		return
	}

	m, err := h.service.UpdateMatch(r.Context(), id, params)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"match":   m,
	})
}

// Delete handles DELETE /api/matches/{matchID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteMatch(r.Context(), id); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// RecordResult handles POST /api/matches/{matchID}/result.
func (h *Handler) RecordResult(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "matchID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req resultRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	if req.HomeScore == nil || req.AwayScore == nil {
		api.WriteError(w, r, api.ErrValidation("home_score and away_score are required"))
		return
	}

	m, err := h.service.RecordResult(r.Context(), id, *req.HomeScore, *req.AwayScore)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"match":   m,
	})
}
