package team

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/api/auth"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger.With(slog.String("handler", "team")),
	}
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type joinRequestBody struct {
	Message *string `json:"message,omitempty"`
}

type decideRequestBody struct {
	Approve bool `json:"approve"`
}

type inviteRequestBody struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type respondInvitationBody struct {
	Accept bool `json:"accept"`
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.ErrValidation("invalid " + name)
	}
	return id, nil
}

func principalOrError(w http.ResponseWriter, r *http.Request) (*types.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return nil, false
	}
	return principal, true
}

// Create handles POST /api/teams.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}

	var req createTeamRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		api.WriteError(w, r, api.ErrValidation("team name is required"))
		return
	}

	t, err := h.service.CreateTeam(r.Context(), principal.ID, req.Name)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"team":    t,
	})
}

// Get handles GET /api/teams/{teamID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	t, err := h.service.GetTeam(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"team":    t,
	})
}

// List handles GET /api/teams.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	teams, err := h.service.ListTeams(r.Context(), limit, offset)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"teams":   teams,
	})
}

// Update handles PUT /api/teams/{teamID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req createTeamRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		api.WriteError(w, r, api.ErrValidation("team name is required"))
		return
	}

	t, err := h.service.UpdateTeam(r.Context(), principal, id, req.Name)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"team":    t,
	})
}

// Delete handles DELETE /api/teams/{teamID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	id, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if err := h.service.DeleteTeam(r.Context(), principal, id); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// ListMembers handles GET /api/teams/{teamID}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	members, err := h.service.ListMembers(r.Context(), id)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"members": members,
	})
}

// RemoveMember handles DELETE /api/teams/{teamID}/members/{userID}.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	userID, err := idParam(r, "userID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	if err := h.service.RemoveMember(r.Context(), principal, teamID, userID); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// RequestJoin handles POST /api/teams/{teamID}/join-requests.
func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req joinRequestBody
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}

	jr, err := h.service.RequestJoin(r.Context(), teamID, principal.ID, req.Message)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"request": jr,
	})
}

// ListJoinRequests handles GET /api/teams/{teamID}/join-requests.
func (h *Handler) ListJoinRequests(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	requests, err := h.service.ListJoinRequests(r.Context(), principal, teamID, r.URL.Query().Get("status"))
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success":  true,
		"requests": requests,
	})
}

// DecideJoinRequest handles POST /api/join-requests/{requestID}/decision.
func (h *Handler) DecideJoinRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	requestID, err := idParam(r, "requestID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req decideRequestBody
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}

	jr, err := h.service.DecideJoinRequest(r.Context(), principal, requestID, req.Approve)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"request": jr,
	})
}

// Invite handles POST /api/teams/{teamID}/invitations.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	var req inviteRequestBody
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		api.WriteError(w, r, api.ErrValidation("email is required"))
		return
	}
	if req.Role == "" {
		req.Role = types.TeamRoleAthlete
	}

	inv, err := h.service.InviteMember(r.Context(), principal, teamID, req.Email, req.Role)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success":    true,
		"invitation": inv,
	})
}

// RespondInvitation handles POST /api/invitations/{token}/response.
func (h *Handler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalOrError(w, r)
	if !ok {
		return
	}

	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		api.WriteError(w, r, api.ErrValidation("invalid invitation token"))
		return
	}

	var req respondInvitationBody
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}

	if err := h.service.RespondInvitation(r.Context(), principal, token, req.Accept); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}
