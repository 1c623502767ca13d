package match

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

type CreateMatchParams struct {
	LeagueID   *int64    `json:"league_id,omitempty"`
	HomeTeamID int64     `json:"home_team_id"`
	AwayTeamID int64     `json:"away_team_id"`
	KickoffAt  time.Time `json:"kickoff_at"`
	Venue      *string   `json:"venue,omitempty"`
}

// UpdateMatchParams carries reschedule fields; nil leaves a column as is.
type UpdateMatchParams struct {
	KickoffAt *time.Time `json:"kickoff_at,omitempty"`
	Venue     *string    `json:"venue,omitempty"`
}

// Notifier publishes domain events to users. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{})
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	CreateMatch(ctx context.Context, params CreateMatchParams) (*types.Match, error)
	GetMatch(ctx context.Context, id int64) (*types.Match, error)
	ListTeamMatches(ctx context.Context, teamID int64, limit, offset int) ([]*types.Match, error)
	UpdateMatch(ctx context.Context, id int64, params UpdateMatchParams) (*types.Match, error)
	DeleteMatch(ctx context.Context, id int64) error
	RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*types.Match, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, notifier: notifier}
}

func (s *ServiceImpl) CreateMatch(ctx context.Context, params CreateMatchParams) (*types.Match, error) {
	if params.HomeTeamID == params.AwayTeamID {
		return nil, api.ErrValidation("a team cannot play itself")
	}
	if params.KickoffAt.IsZero() {
		return nil, api.ErrValidation("kickoff_at is required")
	}

	m, err := s.repo.Create(ctx, params)
	if err != nil {
		s.logger.ErrorContext(ctx, "Match creation failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return m, nil
}

func (s *ServiceImpl) GetMatch(ctx context.Context, id int64) (*types.Match, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("Match not found")
		}
		s.logger.ErrorContext(ctx, "Match load failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return m, nil
}

func (s *ServiceImpl) ListTeamMatches(ctx context.Context, teamID int64, limit, offset int) ([]*types.Match, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	matches, err := s.repo.ListByTeam(ctx, teamID, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Match listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return matches, nil
}

func (s *ServiceImpl) UpdateMatch(ctx context.Context, id int64, params UpdateMatchParams) (*types.Match, error) {
	m, err := s.repo.Update(ctx, id, params)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("Match not found")
		}
		s.logger.ErrorContext(ctx, "Match update failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return m, nil
}

func (s *ServiceImpl) DeleteMatch(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrNotFoundResponse("Match not found")
		}
		s.logger.ErrorContext(ctx, "Match deletion failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	return nil
}

// RecordResult finalizes the score and notifies every member of both teams.
func (s *ServiceImpl) RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*types.Match, error) {
	if homeScore < 0 || awayScore < 0 {
		return nil, api.ErrValidation("scores cannot be negative")
	}

	m, err := s.repo.RecordResult(ctx, id, homeScore, awayScore)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("Match not found or cancelled")
		}
		s.logger.ErrorContext(ctx, "Result recording failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}

	ids, err := s.repo.ParticipantIDs(ctx, id)
	if err != nil {
		// The result stands even when the fan-out query fails.
		s.logger.WarnContext(ctx, "Participant lookup for result notification failed",
			slog.Any("error", err))
		return m, nil
	}
	payload := map[string]interface{}{
		"match_id":   m.ID,
		"home_score": homeScore,
		"away_score": awayScore,
	}
	for _, userID := range ids {
		s.notifier.Notify(ctx, userID, types.NotifyMatchResult, payload)
	}
	return m, nil
}
