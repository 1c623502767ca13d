package league

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// Points awarded per result.
const (
	pointsWin  = 3
	pointsDraw = 1
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	CreateLeague(ctx context.Context, name, season string, createdBy int64) (*types.League, error)
	GetLeague(ctx context.Context, id int64) (*types.League, error)
	ListLeagues(ctx context.Context, limit, offset int) ([]*types.League, error)
	RegisterTeam(ctx context.Context, leagueID, teamID int64) error
	UnregisterTeam(ctx context.Context, leagueID, teamID int64) error
	Standings(ctx context.Context, leagueID int64) ([]*types.Standing, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo}
}

func (s *ServiceImpl) CreateLeague(ctx context.Context, name, season string, createdBy int64) (*types.League, error) {
	l, err := s.repo.Create(ctx, name, season, createdBy)
	if err != nil {
		s.logger.ErrorContext(ctx, "League creation failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return l, nil
}

func (s *ServiceImpl) GetLeague(ctx context.Context, id int64) (*types.League, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("League not found")
		}
		s.logger.ErrorContext(ctx, "League load failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return l, nil
}

func (s *ServiceImpl) ListLeagues(ctx context.Context, limit, offset int) ([]*types.League, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	leagues, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "League listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return leagues, nil
}

func (s *ServiceImpl) RegisterTeam(ctx context.Context, leagueID, teamID int64) error {
	if err := s.repo.RegisterTeam(ctx, leagueID, teamID); err != nil {
		switch {
		case errors.Is(err, api.ErrConflict):
			return api.ErrConflictResponse("Team is already registered in this league")
		case errors.Is(err, api.ErrNotFound):
			return api.ErrNotFoundResponse("League or team not found")
		}
		s.logger.ErrorContext(ctx, "Team registration failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	return nil
}

func (s *ServiceImpl) UnregisterTeam(ctx context.Context, leagueID, teamID int64) error {
	if err := s.repo.UnregisterTeam(ctx, leagueID, teamID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrNotFoundResponse("Registration not found")
		}
		s.logger.ErrorContext(ctx, "Team unregistration failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	return nil
}

// Standings computes the league table from finished matches. Teams and
// matches are fetched concurrently; the table itself is derived in memory.
func (s *ServiceImpl) Standings(ctx context.Context, leagueID int64) ([]*types.Standing, error) {
	if _, err := s.repo.GetByID(ctx, leagueID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("League not found")
		}
		s.logger.ErrorContext(ctx, "League load failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}

	var (
		teams   []*types.Team
		matches []*types.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		teams, err = s.repo.LeagueTeams(gctx, leagueID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.repo.FinishedMatches(gctx, leagueID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Standings data fetch failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}

	return ComputeStandings(teams, matches), nil
}

// ComputeStandings aggregates finished matches into a sorted table: points,
// then goal difference, then goals scored, then team name. Matches against
// teams no longer registered are ignored.
func ComputeStandings(teams []*types.Team, matches []*types.Match) []*types.Standing {
	table := make(map[int64]*types.Standing, len(teams))
	for _, t := range teams {
		table[t.ID] = &types.Standing{TeamID: t.ID, TeamName: t.Name}
	}

	for _, m := range matches {
		if !m.Finished() {
			continue
		}
		home, homeOK := table[m.HomeTeamID]
		away, awayOK := table[m.AwayTeamID]
		if !homeOK || !awayOK {
			continue
		}

		hs, as := *m.HomeScore, *m.AwayScore
		home.Played++
		away.Played++
		home.GoalsFor += hs
		home.GoalsAgainst += as
		away.GoalsFor += as
		away.GoalsAgainst += hs

		switch {
		case hs > as:
			home.Won++
			home.Points += pointsWin
			away.Lost++
		case hs < as:
			away.Won++
			away.Points += pointsWin
			home.Lost++
		default:
			home.Drawn++
			away.Drawn++
			home.Points += pointsDraw
			away.Points += pointsDraw
		}
	}

	standings := make([]*types.Standing, 0, len(table))
	for _, row := range table {
		row.GoalDiff = row.GoalsFor - row.GoalsAgainst
		standings = append(standings, row)
	}

	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDiff != b.GoalDiff {
			return a.GoalDiff > b.GoalDiff
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		return a.TeamName < b.TeamName
	})
	return standings
}
