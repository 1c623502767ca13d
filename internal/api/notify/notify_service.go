package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Notify persists a notification and pushes it to the user's live
	// websocket connections. Best-effort: failures are logged, never
	// surfaced to the publishing workflow.
	Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{})

	List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*types.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	hub    *Hub
}

func NewService(repo Repository, hub *Hub, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, hub: hub}
}

func (s *ServiceImpl) Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{}) {
	n, err := s.repo.Insert(ctx, userID, kind, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Notification insert failed",
			slog.Int64("user_id", userID), slog.String("kind", kind), slog.Any("error", err))
		return
	}
	s.hub.Publish(n)
}

func (s *ServiceImpl) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*types.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	notifications, err := s.repo.ListForUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Notification listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return notifications, nil
}

func (s *ServiceImpl) MarkRead(ctx context.Context, userID, notificationID int64) error {
	if err := s.repo.MarkRead(ctx, userID, notificationID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrNotFoundResponse("Notification not found")
		}
		s.logger.ErrorContext(ctx, "Notification read update failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	return nil
}
