package league

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/api/auth"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With(slog.String("handler", "league")),
	}
}

type createLeagueRequest struct {
	Name   string `json:"name"`
	Season string `json:"season"`
}

type registerTeamRequest struct {
	TeamID int64 `json:"team_id"`
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.ErrValidation("invalid " + name)
	}
	return id, nil
}

// Create handles POST /api/leagues. Restricted to organizers at the route
// level.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return
	}

	var req createLeagueRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		api.WriteError(w, r, api.ErrValidation("league name is required"))
		return
	}

	l, err := h.service.CreateLeague(r.Context(), req.Name, req.Season, principal.ID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"league":  l,
	})
}

// Get handles GET /api/leagues/{leagueID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "leagueID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	l, err := h.service.GetLeague(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"league":  l,
	})
}

// List handles GET /api/leagues.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	leagues, err := h.service.ListLeagues(r.Context(), limit, offset)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"leagues": leagues,
	})
}

// RegisterTeam handles POST /api/leagues/{leagueID}/teams.
func (h *Handler) RegisterTeam(w http.ResponseWriter, r *http.Request) {
	leagueID, err := idParam(r, "leagueID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req registerTeamRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	if req.TeamID <= 0 {
		api.WriteError(w, r, api.ErrValidation("team_id is required"))
		return
	}

	if err := h.service.RegisterTeam(r.Context(), leagueID, req.TeamID); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
	})
}

// UnregisterTeam handles DELETE /api/leagues/{leagueID}/teams/{teamID}.
func (h *Handler) UnregisterTeam(w http.ResponseWriter, r *http.Request) {
	leagueID, err := idParam(r, "leagueID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.service.UnregisterTeam(r.Context(), leagueID, teamID); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// Standings handles GET /api/leagues/{leagueID}/standings.
func (h *Handler) Standings(w http.ResponseWriter, r *http.Request) {
	leagueID, err := idParam(r, "leagueID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	standings, err := h.service.Standings(r.Context(), leagueID)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success":   true,
		"standings": standings,
	})
}
