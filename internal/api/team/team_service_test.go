package team

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, name string, ownerID int64) (*types.Team, error) {
	args := m.Called(ctx, name, ownerID)
	t, _ := args.Get(0).(*types.Team)
	return t, args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*types.Team, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*types.Team)
	return t, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, limit, offset int) ([]*types.Team, error) {
	args := m.Called(ctx, limit, offset)
	teams, _ := args.Get(0).([]*types.Team)
	return teams, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, name string) (*types.Team, error) {
	args := m.Called(ctx, id, name)
	t, _ := args.Get(0).(*types.Team)
	return t, args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) AddMember(ctx context.Context, teamID, userID int64, role string) error {
	return m.Called(ctx, teamID, userID, role).Error(0)
}

func (m *MockRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	return m.Called(ctx, teamID, userID).Error(0)
}

func (m *MockRepository) ListMembers(ctx context.Context, teamID int64) ([]*types.TeamMember, error) {
	args := m.Called(ctx, teamID)
	members, _ := args.Get(0).([]*types.TeamMember)
	return members, args.Error(1)
}

func (m *MockRepository) MemberRole(ctx context.Context, teamID, userID int64) (string, error) {
	args := m.Called(ctx, teamID, userID)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) ManagerIDs(ctx context.Context, teamID int64) ([]int64, error) {
	args := m.Called(ctx, teamID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockRepository) CreateJoinRequest(ctx context.Context, teamID, userID int64, message *string) (*types.JoinRequest, error) {
	args := m.Called(ctx, teamID, userID, message)
	jr, _ := args.Get(0).(*types.JoinRequest)
	return jr, args.Error(1)
}

func (m *MockRepository) GetJoinRequest(ctx context.Context, id int64) (*types.JoinRequest, error) {
	args := m.Called(ctx, id)
	jr, _ := args.Get(0).(*types.JoinRequest)
	return jr, args.Error(1)
}

func (m *MockRepository) ListJoinRequests(ctx context.Context, teamID int64, status string) ([]*types.JoinRequest, error) {
	args := m.Called(ctx, teamID, status)
	requests, _ := args.Get(0).([]*types.JoinRequest)
	return requests, args.Error(1)
}

func (m *MockRepository) DecideJoinRequest(ctx context.Context, id int64, status string) (*types.JoinRequest, error) {
	args := m.Called(ctx, id, status)
	jr, _ := args.Get(0).(*types.JoinRequest)
	return jr, args.Error(1)
}

func (m *MockRepository) CreateInvitation(ctx context.Context, teamID int64, email, role string, expiresAt time.Time) (*types.Invitation, error) {
	args := m.Called(ctx, teamID, email, role, expiresAt)
	inv, _ := args.Get(0).(*types.Invitation)
	return inv, args.Error(1)
}

func (m *MockRepository) GetInvitationByToken(ctx context.Context, token uuid.UUID) (*types.Invitation, error) {
	args := m.Called(ctx, token)
	inv, _ := args.Get(0).(*types.Invitation)
	return inv, args.Error(1)
}

func (m *MockRepository) DecideInvitation(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{}) {
	m.Called(ctx, userID, kind, payload)
}

func newTestService(repo Repository, notifier Notifier) *ServiceImpl {
	return NewService(repo, notifier, slog.New(slog.DiscardHandler))
}

func manager(id int64) *types.Principal {
	return &types.Principal{ID: id, Email: "manager@example.com", Roles: []string{"user"}, Role: "user"}
}

func TestCreateTeamSeedsManagerMembership(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockNotifier))

	repo.On("Create", ctx, "FC Example", int64(1)).
		Return(&types.Team{ID: 10, Name: "FC Example"}, nil)

	team, err := svc.CreateTeam(ctx, 1, "FC Example")
	require.NoError(t, err)
	assert.Equal(t, int64(10), team.ID)
}

func TestUpdateTeamPermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("team manager may update", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockNotifier))

		repo.On("MemberRole", ctx, int64(10), int64(1)).Return(types.TeamRoleManager, nil)
		repo.On("Update", ctx, int64(10), "New Name").
			Return(&types.Team{ID: 10, Name: "New Name"}, nil)

		team, err := svc.UpdateTeam(ctx, manager(1), 10, "New Name")
		require.NoError(t, err)
		assert.Equal(t, "New Name", team.Name)
	})

	t.Run("plain member is forbidden", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockNotifier))

		repo.On("MemberRole", ctx, int64(10), int64(2)).Return(types.TeamRoleAthlete, nil)

		_, err := svc.UpdateTeam(ctx, manager(2), 10, "New Name")
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 403, appErr.Status)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("site admin bypasses membership", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockNotifier))

		admin := &types.Principal{ID: 3, Roles: []string{"admin"}, Role: "admin"}
		repo.On("Update", ctx, int64(10), "New Name").
			Return(&types.Team{ID: 10, Name: "New Name"}, nil)

		_, err := svc.UpdateTeam(ctx, admin, 10, "New Name")
		require.NoError(t, err)
		repo.AssertNotCalled(t, "MemberRole", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRequestJoinNotifiesManagers(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := newTestService(repo, notifier)

	msg := "let me in"
	repo.On("MemberRole", ctx, int64(10), int64(5)).Return("", api.ErrNotFound)
	repo.On("CreateJoinRequest", ctx, int64(10), int64(5), &msg).
		Return(&types.JoinRequest{ID: 100, TeamID: 10, UserID: 5, Status: types.RequestPending}, nil)
	repo.On("ManagerIDs", ctx, int64(10)).Return([]int64{1, 2}, nil)
	notifier.On("Notify", ctx, int64(1), types.NotifyJoinRequestReceived, mock.Anything).Once()
	notifier.On("Notify", ctx, int64(2), types.NotifyJoinRequestReceived, mock.Anything).Once()

	jr, err := svc.RequestJoin(ctx, 10, 5, &msg)
	require.NoError(t, err)
	assert.Equal(t, types.RequestPending, jr.Status)
	notifier.AssertExpectations(t)
}

func TestRequestJoinExistingMemberConflicts(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := newTestService(repo, new(MockNotifier))

	repo.On("MemberRole", ctx, int64(10), int64(5)).Return(types.TeamRoleAthlete, nil)

	_, err := svc.RequestJoin(ctx, 10, 5, nil)
	var appErr *api.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 409, appErr.Status)
}

func TestDecideJoinRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("approval adds athlete membership and notifies", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, notifier)

		repo.On("GetJoinRequest", ctx, int64(100)).
			Return(&types.JoinRequest{ID: 100, TeamID: 10, UserID: 5, Status: types.RequestPending}, nil)
		repo.On("MemberRole", ctx, int64(10), int64(1)).Return(types.TeamRoleManager, nil)
		repo.On("DecideJoinRequest", ctx, int64(100), types.RequestApproved).
			Return(&types.JoinRequest{ID: 100, TeamID: 10, UserID: 5, Status: types.RequestApproved}, nil)
		repo.On("AddMember", ctx, int64(10), int64(5), types.TeamRoleAthlete).Return(nil)
		notifier.On("Notify", ctx, int64(5), types.NotifyJoinRequestDecided, mock.Anything).Once()

		jr, err := svc.DecideJoinRequest(ctx, manager(1), 100, true)
		require.NoError(t, err)
		assert.Equal(t, types.RequestApproved, jr.Status)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("decline does not add membership", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, notifier)

		repo.On("GetJoinRequest", ctx, int64(100)).
			Return(&types.JoinRequest{ID: 100, TeamID: 10, UserID: 5, Status: types.RequestPending}, nil)
		repo.On("MemberRole", ctx, int64(10), int64(1)).Return(types.TeamRoleManager, nil)
		repo.On("DecideJoinRequest", ctx, int64(100), types.RequestDeclined).
			Return(&types.JoinRequest{ID: 100, TeamID: 10, UserID: 5, Status: types.RequestDeclined}, nil)
		notifier.On("Notify", ctx, int64(5), types.NotifyJoinRequestDecided, mock.Anything).Once()

		_, err := svc.DecideJoinRequest(ctx, manager(1), 100, false)
		require.NoError(t, err)
		repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already decided is a conflict", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockNotifier))

		repo.On("GetJoinRequest", ctx, int64(100)).
			Return(&types.JoinRequest{ID: 100, TeamID: 10, UserID: 5, Status: types.RequestApproved}, nil)
		repo.On("MemberRole", ctx, int64(10), int64(1)).Return(types.TeamRoleManager, nil)
		repo.On("DecideJoinRequest", ctx, int64(100), types.RequestApproved).Return(nil, api.ErrNotFound)

		_, err := svc.DecideJoinRequest(ctx, manager(1), 100, true)
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 409, appErr.Status)
	})
}

func TestRespondInvitation(t *testing.T) {
	ctx := context.Background()
	token := uuid.New()

	invitee := &types.Principal{ID: 5, Email: "invitee@example.com", Roles: []string{"user"}}

	t.Run("accept adds membership with invited role", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, notifier)

		repo.On("GetInvitationByToken", ctx, token).Return(&types.Invitation{
			ID: 200, Token: token, TeamID: 10, Email: "invitee@example.com",
			Role: types.TeamRoleAssistantManager, Status: types.RequestPending,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}, nil)
		repo.On("DecideInvitation", ctx, int64(200), types.InviteAccepted).Return(nil)
		repo.On("AddMember", ctx, int64(10), int64(5), types.TeamRoleAssistantManager).Return(nil)
		repo.On("ManagerIDs", ctx, int64(10)).Return([]int64{1}, nil)
		notifier.On("Notify", ctx, int64(1), types.NotifyInvitationDecided, mock.Anything).Once()

		require.NoError(t, svc.RespondInvitation(ctx, invitee, token, true))
		repo.AssertExpectations(t)
	})

	t.Run("decline records the invitation status without membership", func(t *testing.T) {
		repo := new(MockRepository)
		notifier := new(MockNotifier)
		svc := newTestService(repo, notifier)

		repo.On("GetInvitationByToken", ctx, token).Return(&types.Invitation{
			ID: 200, Token: token, TeamID: 10, Email: "invitee@example.com",
			Role: types.TeamRoleAthlete, Status: types.RequestPending,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}, nil)
		repo.On("DecideInvitation", ctx, int64(200), types.InviteDeclined).Return(nil)
		repo.On("ManagerIDs", ctx, int64(10)).Return([]int64{1}, nil)
		notifier.On("Notify", ctx, int64(1), types.NotifyInvitationDecided, mock.Anything).Once()

		require.NoError(t, svc.RespondInvitation(ctx, invitee, token, false))
		repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("expired invitation conflicts", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockNotifier))

		repo.On("GetInvitationByToken", ctx, token).Return(&types.Invitation{
			ID: 200, Token: token, TeamID: 10, Email: "invitee@example.com",
			Status: types.RequestPending, ExpiresAt: time.Now().Add(-time.Hour),
		}, nil)
		repo.On("DecideInvitation", ctx, int64(200), types.InviteExpired).Return(nil)

		err := svc.RespondInvitation(ctx, invitee, token, true)
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 409, appErr.Status)
		repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token alone is not enough", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newTestService(repo, new(MockNotifier))

		repo.On("GetInvitationByToken", ctx, token).Return(&types.Invitation{
			ID: 200, Token: token, TeamID: 10, Email: "someone-else@example.com",
			Status: types.RequestPending, ExpiresAt: time.Now().Add(24 * time.Hour),
		}, nil)

		err := svc.RespondInvitation(ctx, invitee, token, true)
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 403, appErr.Status)
	})
}
