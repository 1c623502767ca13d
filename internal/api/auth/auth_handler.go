package auth

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/markbates/goth/gothic"

	obsmetrics "github.com/matchpoint-hq/matchpoint/app/observability/metrics"
	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

type Handler struct {
	service Service
	issuer  *TokenIssuer
	limiter *LoginLimiter
	cookie  CookieSettings
	logger  *slog.Logger
}

func NewHandler(service Service, issuer *TokenIssuer, limiter *LoginLimiter, cookie CookieSettings, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		issuer:  issuer,
		limiter: limiter,
		cookie:  cookie,
		logger:  logger.With(slog.String("handler", "auth")),
	}
}

// clientIP trusts RemoteAddr, which the RealIP middleware has already
// rewritten from X-Forwarded-For when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}

	// Emails are matched exactly as stored; no case folding here.
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		api.WriteError(w, r, api.ErrMissingCredentials())
		return
	}

	ip := clientIP(r)
	if !h.limiter.Allow(ip, req.Email) {
		obsmetrics.Get().LoginRateLimitedTotal.Add(ctx, 1)
		h.logger.WarnContext(ctx, "Login rate limited", slog.String("ip", ip))
		api.WriteError(w, r, api.ErrRateLimited())
		return
	}

	token, resolved, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	h.limiter.MarkSuccess(ip, req.Email)

	SetAuthCookie(w, h.cookie, token, h.issuer.TTL())
	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		Success:     true,
		AccessToken: token,
		User:        resolved.Public(),
	})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout is
// purely client-side: the cookie is cleared and any copied bearer token
// remains valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearAuthCookie(w, h.cookie)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

// Me handles GET /api/auth/me and echoes the session principal.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    principal,
	})
}

// CheckEmail handles GET /api/auth/check-email?email=...
func (h *Handler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		api.WriteError(w, r, api.ErrValidation("email query parameter is required"))
		return
	}

	exists, err := h.service.CheckEmail(r.Context(), email)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, CheckEmailResponse{Exists: exists})
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.Email == "" || req.Password == "":
		api.WriteError(w, r, api.ErrMissingCredentials())
		return
	case len(req.Password) < 8:
		api.WriteError(w, r, api.ErrValidation("password must be at least 8 characters"))
		return
	}

	identity, err := h.service.Register(r.Context(), req)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]interface{}{
		"success": true,
		"user":    identity,
	})
}

// ChangePassword handles POST /api/auth/change-password for the session user.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		api.WriteError(w, r, api.ErrUnauthorized(""))
		return
	}

	var req ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.WriteError(w, r, err)
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		api.WriteError(w, r, api.ErrMissingCredentials())
		return
	}
	if len(req.NewPassword) < 8 {
		api.WriteError(w, r, api.ErrValidation("password must be at least 8 characters"))
		return
	}

	if err := h.service.ChangePassword(r.Context(), principal.ID, req.OldPassword, req.NewPassword); err != nil {
		api.WriteError(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Password updated",
	})
}

// OAuthBegin handles GET /api/auth/oauth/{provider} and redirects to the
// provider's consent page.
func (h *Handler) OAuthBegin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = gothic.GetContextWithProvider(r, provider)
	gothic.BeginAuthHandler(w, r)
}

// OAuthCallback handles GET /api/auth/oauth/{provider}/callback. Provider
// accounts always land in the unified users table, so the issued token is
// tagged with the user origin.
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	r = gothic.GetContextWithProvider(r, provider)

	providerUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "OAuth callback failed",
			slog.String("provider", provider), slog.Any("error", err))
		api.WriteError(w, r, api.ErrUnauthorized("OAuth authentication failed"))
		return
	}

	identity, err := h.service.GetOrCreateUserFromProvider(r.Context(), provider, providerUser)
	if err != nil {
		api.WriteError(w, r, err)
		return
	}

	token, err := h.issuer.Issue(identity.ID, types.OriginUser)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Token issue failed after OAuth", slog.Any("error", err))
		api.WriteError(w, r, api.ErrAuthServerError())
		return
	}

	SetAuthCookie(w, h.cookie, token, h.issuer.TTL())
	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		Success:     true,
		AccessToken: token,
		User: (&Resolved{
			Identity: identity,
			Origin:   types.OriginUser,
		}).Public(),
	})
}
