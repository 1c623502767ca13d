package team

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// invitationTTL is how long an invitation token stays redeemable.
const invitationTTL = 14 * 24 * time.Hour

// Notifier publishes domain events to users. Delivery is best-effort; the
// implementation owns error handling.
type Notifier interface {
	Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{})
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	CreateTeam(ctx context.Context, ownerID int64, name string) (*types.Team, error)
	GetTeam(ctx context.Context, id int64) (*types.Team, error)
	ListTeams(ctx context.Context, limit, offset int) ([]*types.Team, error)
	UpdateTeam(ctx context.Context, principal *types.Principal, id int64, name string) (*types.Team, error)
	DeleteTeam(ctx context.Context, principal *types.Principal, id int64) error

	ListMembers(ctx context.Context, teamID int64) ([]*types.TeamMember, error)
	RemoveMember(ctx context.Context, principal *types.Principal, teamID, userID int64) error

	RequestJoin(ctx context.Context, teamID, userID int64, message *string) (*types.JoinRequest, error)
	ListJoinRequests(ctx context.Context, principal *types.Principal, teamID int64, status string) ([]*types.JoinRequest, error)
	DecideJoinRequest(ctx context.Context, principal *types.Principal, requestID int64, approve bool) (*types.JoinRequest, error)

	InviteMember(ctx context.Context, principal *types.Principal, teamID int64, email, role string) (*types.Invitation, error)
	RespondInvitation(ctx context.Context, principal *types.Principal, token uuid.UUID, accept bool) error
}

type ServiceImpl struct {
	logger   *slog.Logger
	repo     Repository
	notifier Notifier
}

func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, notifier: notifier}
}

// canManage reports whether the principal manages the team, either through
// membership role or through a site-wide admin role.
func (s *ServiceImpl) canManage(ctx context.Context, principal *types.Principal, teamID int64) (bool, error) {
	if principal.HasRole("admin", "athlete_admin") {
		return true, nil
	}
	role, err := s.repo.MemberRole(ctx, teamID, principal.ID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return role == types.TeamRoleManager || role == types.TeamRoleAssistantManager, nil
}

func (s *ServiceImpl) requireManage(ctx context.Context, principal *types.Principal, teamID int64) error {
	ok, err := s.canManage(ctx, principal, teamID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Team permission check failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	if !ok {
		return api.ErrForbidden()
	}
	return nil
}

func (s *ServiceImpl) CreateTeam(ctx context.Context, ownerID int64, name string) (*types.Team, error) {
	t, err := s.repo.Create(ctx, name, ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Team creation failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return t, nil
}

func (s *ServiceImpl) GetTeam(ctx context.Context, id int64) (*types.Team, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("Team not found")
		}
		s.logger.ErrorContext(ctx, "Team load failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return t, nil
}

func (s *ServiceImpl) ListTeams(ctx context.Context, limit, offset int) ([]*types.Team, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	teams, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "Team listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return teams, nil
}

func (s *ServiceImpl) UpdateTeam(ctx context.Context, principal *types.Principal, id int64, name string) (*types.Team, error) {
	if err := s.requireManage(ctx, principal, id); err != nil {
		return nil, err
	}
	t, err := s.repo.Update(ctx, id, name)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("Team not found")
		}
		s.logger.ErrorContext(ctx, "Team update failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return t, nil
}

func (s *ServiceImpl) DeleteTeam(ctx context.Context, principal *types.Principal, id int64) error {
	if err := s.requireManage(ctx, principal, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrNotFoundResponse("Team not found")
		}
		s.logger.ErrorContext(ctx, "Team deletion failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	return nil
}

func (s *ServiceImpl) ListMembers(ctx context.Context, teamID int64) ([]*types.TeamMember, error) {
	members, err := s.repo.ListMembers(ctx, teamID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Member listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return members, nil
}

// RemoveMember allows self-removal (leaving) or removal by a team manager.
func (s *ServiceImpl) RemoveMember(ctx context.Context, principal *types.Principal, teamID, userID int64) error {
	if principal.ID != userID {
		if err := s.requireManage(ctx, principal, teamID); err != nil {
			return err
		}
	}
	if err := s.repo.RemoveMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrNotFoundResponse("Membership not found")
		}
		s.logger.ErrorContext(ctx, "Member removal failed", slog.Any("error", err))
		return api.ErrInternal()
	}
	return nil
}

func (s *ServiceImpl) RequestJoin(ctx context.Context, teamID, userID int64, message *string) (*types.JoinRequest, error) {
	if _, err := s.repo.MemberRole(ctx, teamID, userID); err == nil {
		return nil, api.ErrConflictResponse("Already a member of this team")
	} else if !errors.Is(err, api.ErrNotFound) {
		s.logger.ErrorContext(ctx, "Membership check failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}

	jr, err := s.repo.CreateJoinRequest(ctx, teamID, userID, message)
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return nil, api.ErrConflictResponse("A pending request for this team already exists")
		}
		s.logger.ErrorContext(ctx, "Join request creation failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}

	s.notifyManagers(ctx, teamID, types.NotifyJoinRequestReceived, map[string]interface{}{
		"request_id": jr.ID,
		"team_id":    teamID,
		"user_id":    userID,
	})
	return jr, nil
}

func (s *ServiceImpl) ListJoinRequests(ctx context.Context, principal *types.Principal, teamID int64, status string) ([]*types.JoinRequest, error) {
	if err := s.requireManage(ctx, principal, teamID); err != nil {
		return nil, err
	}
	requests, err := s.repo.ListJoinRequests(ctx, teamID, status)
	if err != nil {
		s.logger.ErrorContext(ctx, "Join request listing failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return requests, nil
}

func (s *ServiceImpl) DecideJoinRequest(ctx context.Context, principal *types.Principal, requestID int64, approve bool) (*types.JoinRequest, error) {
	jr, err := s.repo.GetJoinRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrNotFoundResponse("Join request not found")
		}
		s.logger.ErrorContext(ctx, "Join request load failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	if err := s.requireManage(ctx, principal, jr.TeamID); err != nil {
		return nil, err
	}

	status := types.RequestDeclined
	if approve {
		status = types.RequestApproved
	}
	decided, err := s.repo.DecideJoinRequest(ctx, requestID, status)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, api.ErrConflictResponse("Join request was already decided")
		}
		s.logger.ErrorContext(ctx, "Join request decision failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}

	if approve {
		if err := s.repo.AddMember(ctx, jr.TeamID, jr.UserID, types.TeamRoleAthlete); err != nil && !errors.Is(err, api.ErrConflict) {
			s.logger.ErrorContext(ctx, "Membership creation after approval failed", slog.Any("error", err))
			return nil, api.ErrInternal()
		}
	}

	s.notifier.Notify(ctx, jr.UserID, types.NotifyJoinRequestDecided, map[string]interface{}{
		"request_id": jr.ID,
		"team_id":    jr.TeamID,
		"status":     status,
	})
	return decided, nil
}

func (s *ServiceImpl) InviteMember(ctx context.Context, principal *types.Principal, teamID int64, email, role string) (*types.Invitation, error) {
	if err := s.requireManage(ctx, principal, teamID); err != nil {
		return nil, err
	}
	switch role {
	case types.TeamRoleManager, types.TeamRoleAssistantManager, types.TeamRoleAthlete:
	default:
		return nil, api.ErrValidation("invalid team role")
	}

	inv, err := s.repo.CreateInvitation(ctx, teamID, email, role, time.Now().Add(invitationTTL))
	if err != nil {
		s.logger.ErrorContext(ctx, "Invitation creation failed", slog.Any("error", err))
		return nil, api.ErrInternal()
	}
	return inv, nil
}

func (s *ServiceImpl) RespondInvitation(ctx context.Context, principal *types.Principal, token uuid.UUID, accept bool) error {
	inv, err := s.repo.GetInvitationByToken(ctx, token)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return api.ErrNotFoundResponse("Invitation not found")
		}
		s.logger.ErrorContext(ctx, "Invitation load failed", slog.Any("error", err))
		return api.ErrInternal()
	}

	if time.Now().After(inv.ExpiresAt) {
		_ = s.repo.DecideInvitation(ctx, inv.ID, types.InviteExpired)
		return api.ErrConflictResponse("Invitation has expired")
	}
	// The invitee proves ownership of the invited address by being logged
	// in under it; the token alone is not enough.
	if principal.Email != inv.Email {
		return api.ErrForbidden()
	}

	status := types.InviteDeclined
	if accept {
		status = types.InviteAccepted
	}
	if err := s.repo.DecideInvitation(ctx, inv.ID, status); err != nil {
		if errors.Is(err, api.ErrConflict) {
			return api.ErrConflictResponse("Invitation was already decided")
		}
		s.logger.ErrorContext(ctx, "Invitation decision failed", slog.Any("error", err))
		return api.ErrInternal()
	}

	if accept {
		if err := s.repo.AddMember(ctx, inv.TeamID, principal.ID, inv.Role); err != nil && !errors.Is(err, api.ErrConflict) {
			s.logger.ErrorContext(ctx, "Membership creation after acceptance failed", slog.Any("error", err))
			return api.ErrInternal()
		}
	}

	s.notifyManagers(ctx, inv.TeamID, types.NotifyInvitationDecided, map[string]interface{}{
		"invitation_id": inv.ID,
		"team_id":       inv.TeamID,
		"user_id":       principal.ID,
		"status":        status,
	})
	return nil
}

func (s *ServiceImpl) notifyManagers(ctx context.Context, teamID int64, kind string, payload map[string]interface{}) {
	ids, err := s.repo.ManagerIDs(ctx, teamID)
	if err != nil {
		s.logger.WarnContext(ctx, "Manager lookup for notification failed", slog.Any("error", err))
		return
	}
	for _, id := range ids {
		s.notifier.Notify(ctx, id, kind, payload)
	}
}
