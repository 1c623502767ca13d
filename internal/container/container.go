package container

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"

	"github.com/matchpoint-hq/matchpoint/config"
	"github.com/matchpoint-hq/matchpoint/internal/api/auth"
	"github.com/matchpoint-hq/matchpoint/internal/api/league"
	"github.com/matchpoint-hq/matchpoint/internal/api/match"
	"github.com/matchpoint-hq/matchpoint/internal/api/notify"
	"github.com/matchpoint-hq/matchpoint/internal/api/team"
	"github.com/matchpoint-hq/matchpoint/internal/api/user"
)

// Container wires repositories, services and handlers once at startup.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	TokenIssuer  *auth.TokenIssuer
	LoginLimiter *auth.LoginLimiter
	Cookie       auth.CookieSettings
	Hub          *notify.Hub

	AuthService   auth.Service
	UserService   user.Service
	TeamService   team.Service
	MatchService  match.Service
	LeagueService league.Service
	NotifyService notify.Service

	AuthHandler   *auth.Handler
	UserHandler   *user.Handler
	TeamHandler   *team.Handler
	MatchHandler  *match.Handler
	LeagueHandler *league.Handler
	NotifyHandler *notify.Handler
}

func NewContainer(cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool) *Container {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	if cfg.OAuth.Google.Key != "" {
		goth.UseProviders(google.New(
			cfg.OAuth.Google.Key,
			cfg.OAuth.Google.Secret,
			cfg.OAuth.Google.CallbackURL,
		))
	}

	c.TokenIssuer = auth.NewTokenIssuer(cfg.JWT)
	c.LoginLimiter = auth.NewLoginLimiter(
		auth.NewCacheAttemptStore(cfg.RateLimit.Window),
		cfg.RateLimit.MaxAttempts,
	)
	c.Cookie = auth.CookieSettings{
		Name:       cfg.JWT.CookieName,
		Production: cfg.IsProduction(),
	}
	c.Hub = notify.NewHub(logger)

	authRepo := auth.NewPostgresRepository(pool, logger)
	userRepo := user.NewPostgresRepository(pool, logger)
	teamRepo := team.NewPostgresRepository(pool, logger)
	matchRepo := match.NewPostgresRepository(pool, logger)
	leagueRepo := league.NewPostgresRepository(pool, logger)
	notifyRepo := notify.NewPostgresRepository(pool, logger)

	c.NotifyService = notify.NewService(notifyRepo, c.Hub, logger)
	c.AuthService = auth.NewService(authRepo, c.TokenIssuer, logger)
	c.UserService = user.NewService(userRepo, logger)
	c.TeamService = team.NewService(teamRepo, c.NotifyService, logger)
	c.MatchService = match.NewService(matchRepo, c.NotifyService, logger)
	c.LeagueService = league.NewService(leagueRepo, logger)

	c.AuthHandler = auth.NewHandler(c.AuthService, c.TokenIssuer, c.LoginLimiter, c.Cookie, logger)
	c.UserHandler = user.NewHandler(c.UserService, logger)
	c.TeamHandler = team.NewHandler(c.TeamService, logger)
	c.MatchHandler = match.NewHandler(c.MatchService, logger)
	c.LeagueHandler = league.NewHandler(c.LeagueService, logger)
	c.NotifyHandler = notify.NewHandler(c.NotifyService, c.Hub, logger)

	return c
}
