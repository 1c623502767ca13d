package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	obsmetrics "github.com/matchpoint-hq/matchpoint/app/observability/metrics"
	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	claimsKey    contextKey = "authClaims"
)

// PrincipalFromContext returns the principal attached by Authenticate.
func PrincipalFromContext(ctx context.Context) (*types.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*types.Principal)
	return p, ok
}

// ClaimsFromContext returns the verified token claims for the request.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok
}

// ContextWithPrincipal is used by tests and the websocket handler to build
// pre-authenticated request contexts.
func ContextWithPrincipal(ctx context.Context, p *types.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func contextWithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// CookieSettings controls the auth cookie attributes. SameSite is strict
// and Secure is set only in production.
type CookieSettings struct {
	Name       string
	Production bool
}

// SetAuthCookie writes the http-only auth cookie.
func SetAuthCookie(w http.ResponseWriter, s CookieSettings, token string, ttl time.Duration) {
	sameSite := http.SameSiteLaxMode
	if s.Production {
		sameSite = http.SameSiteStrictMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.Production,
		SameSite: sameSite,
	})
}

// ClearAuthCookie expires the auth cookie.
func ClearAuthCookie(w http.ResponseWriter, s CookieSettings) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.Production,
	})
}

// extractToken pulls a candidate token from the Authorization header first,
// then the auth cookie.
func extractToken(r *http.Request, cookieName string) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) == 2 && strings.EqualFold(headerParts[0], "bearer") {
			return headerParts[1]
		}
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// Authenticate is the session middleware: it verifies the bearer token,
// loads the current identity by subject id (claims beyond id and origin tag
// are not trusted past verification) and attaches the normalized principal
// to the request context.
func Authenticate(logger *slog.Logger, issuer *TokenIssuer, service Service, cookieName string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			tokenString := extractToken(r, cookieName)
			if tokenString == "" {
				api.WriteError(w, r, api.ErrUnauthorized("Authentication required"))
				return
			}

			claims, err := issuer.Verify(tokenString)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					api.WriteError(w, r, api.ErrTokenExpired())
					return
				}
				l.WarnContext(ctx, "Token verification failed", slog.Any("error", err))
				api.WriteError(w, r, api.ErrUnauthorized("Invalid token"))
				return
			}

			principal, err := service.GetPrincipal(ctx, types.Origin(claims.Role), claims.UserID)
			if err != nil {
				// Tokens are not trusted past identity existence: an account
				// deleted after issuance no longer authenticates.
				if errors.Is(err, api.ErrNotFound) {
					api.WriteError(w, r, api.ErrUnauthorized("Account no longer exists"))
					return
				}
				l.ErrorContext(ctx, "Principal load failed", slog.Any("error", err))
				api.WriteError(w, r, api.ErrAuthServerError())
				return
			}

			ctx = ContextWithPrincipal(ctx, principal)
			ctx = contextWithClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RefreshSession opportunistically reissues the token when its remaining
// validity drops below the threshold. Applied only to idempotent (read)
// routes, after Authenticate. Refresh must never fail the primary request:
// every error is logged and swallowed.
func RefreshSession(logger *slog.Logger, issuer *TokenIssuer, threshold time.Duration, cookie CookieSettings) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						logger.ErrorContext(r.Context(), "Token refresh panicked", slog.Any("panic", rec))
					}
				}()

				claims, ok := ClaimsFromContext(r.Context())
				if !ok || claims.ExpiresAt == nil {
					return
				}
				if time.Until(claims.ExpiresAt.Time) >= threshold {
					return
				}

				token, err := issuer.Issue(claims.UserID, types.Origin(claims.Role))
				if err != nil {
					logger.WarnContext(r.Context(), "Token refresh failed", slog.Any("error", err))
					return
				}

				SetAuthCookie(w, cookie, token, issuer.TTL())
				// Echoed in a header for clients that do not use cookies.
				w.Header().Set("X-Auth-Token", token)
				obsmetrics.Get().TokenRefreshesTotal.Add(r.Context(), 1)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole denies the request unless the attached principal's effective
// role set intersects the required roles. A missing principal is an
// authentication failure (401), not an authorization one (403).
func RequireRole(logger *slog.Logger, roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				api.WriteError(w, r, api.ErrUnauthorized(""))
				return
			}
			if !principal.HasRole(roles...) {
				logger.WarnContext(r.Context(), "Role check failed",
					slog.Int64("user_id", principal.ID))
				api.WriteError(w, r, api.ErrForbidden())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
