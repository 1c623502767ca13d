package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	applogger "github.com/matchpoint-hq/matchpoint/app/logger"
	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/api/auth"
	"github.com/matchpoint-hq/matchpoint/internal/container"
)

// New assembles the HTTP surface. Session-protected groups sit behind the
// Authenticate middleware; opportunistic token refresh is applied only to
// idempotent read routes.
func New(c *container.Container) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(applogger.StructuredLogger(c.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Auth-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := auth.Authenticate(c.Logger, c.TokenIssuer, c.AuthService, c.Config.JWT.CookieName)
	refresh := auth.RefreshSession(c.Logger, c.TokenIssuer, c.Config.JWT.RefreshThreshold, c.Cookie)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		api.WriteJSONResponse(w, req, http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Public authentication surface.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", c.AuthHandler.Login)
			r.Post("/register", c.AuthHandler.Register)
			r.Get("/check-email", c.AuthHandler.CheckEmail)
			r.Get("/oauth/{provider}", c.AuthHandler.OAuthBegin)
			r.Get("/oauth/{provider}/callback", c.AuthHandler.OAuthCallback)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", c.AuthHandler.Logout)
				r.Post("/change-password", c.AuthHandler.ChangePassword)
				r.With(refresh).Get("/me", c.AuthHandler.Me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/users", func(r chi.Router) {
				r.With(refresh).Get("/profile", c.UserHandler.GetProfile)
				r.Put("/profile", c.UserHandler.UpdateProfile)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", c.TeamHandler.List)
				r.Post("/", c.TeamHandler.Create)
				r.With(refresh).Get("/{teamID}", c.TeamHandler.Get)
				r.Put("/{teamID}", c.TeamHandler.Update)
				r.Delete("/{teamID}", c.TeamHandler.Delete)

				r.Get("/{teamID}/members", c.TeamHandler.ListMembers)
				r.Delete("/{teamID}/members/{userID}", c.TeamHandler.RemoveMember)

				r.Post("/{teamID}/join-requests", c.TeamHandler.RequestJoin)
				r.Get("/{teamID}/join-requests", c.TeamHandler.ListJoinRequests)
				r.Post("/{teamID}/invitations", c.TeamHandler.Invite)

				r.Get("/{teamID}/matches", c.MatchHandler.ListByTeam)
			})

			r.Post("/join-requests/{requestID}/decision", c.TeamHandler.DecideJoinRequest)
			r.Post("/invitations/{token}/response", c.TeamHandler.RespondInvitation)

			r.Route("/matches", func(r chi.Router) {
				r.Post("/", c.MatchHandler.Create)
				r.Get("/{matchID}", c.MatchHandler.Get)
				r.Put("/{matchID}", c.MatchHandler.Update)
				r.Delete("/{matchID}", c.MatchHandler.Delete)
				r.Post("/{matchID}/result", c.MatchHandler.RecordResult)
			})

			r.Route("/leagues", func(r chi.Router) {
				r.Get("/", c.LeagueHandler.List)
				r.Get("/{leagueID}", c.LeagueHandler.Get)
				r.Get("/{leagueID}/standings", c.LeagueHandler.Standings)

				r.Group(func(r chi.Router) {
					r.Use(auth.RequireRole(c.Logger, "organizer", "admin"))
					r.Post("/", c.LeagueHandler.Create)
					r.Post("/{leagueID}/teams", c.LeagueHandler.RegisterTeam)
					r.Delete("/{leagueID}/teams/{teamID}", c.LeagueHandler.UnregisterTeam)
				})
			})

			r.Route("/notifications", func(r chi.Router) {
				r.With(refresh).Get("/", c.NotifyHandler.List)
				r.Get("/ws", c.NotifyHandler.ServeWS)
				r.Post("/{notificationID}/read", c.NotifyHandler.MarkRead)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireRole(c.Logger, "admin", "athlete_admin"))
				r.Get("/users", c.UserHandler.ListUsers)
			})
		})
	})

	return r
}
