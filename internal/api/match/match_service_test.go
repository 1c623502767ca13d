package match

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, params CreateMatchParams) (*types.Match, error) {
	args := m.Called(ctx, params)
	match, _ := args.Get(0).(*types.Match)
	return match, args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*types.Match, error) {
	args := m.Called(ctx, id)
	match, _ := args.Get(0).(*types.Match)
	return match, args.Error(1)
}

func (m *MockRepository) ListByTeam(ctx context.Context, teamID int64, limit, offset int) ([]*types.Match, error) {
	args := m.Called(ctx, teamID, limit, offset)
	matches, _ := args.Get(0).([]*types.Match)
	return matches, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, params UpdateMatchParams) (*types.Match, error) {
	args := m.Called(ctx, id, params)
	match, _ := args.Get(0).(*types.Match)
	return match, args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*types.Match, error) {
	args := m.Called(ctx, id, homeScore, awayScore)
	match, _ := args.Get(0).(*types.Match)
	return match, args.Error(1)
}

func (m *MockRepository) ParticipantIDs(ctx context.Context, matchID int64) ([]int64, error) {
	args := m.Called(ctx, matchID)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, kind string, payload map[string]interface{}) {
	m.Called(ctx, userID, kind, payload)
}

func intPtr(n int) *int { return &n }

func TestCreateMatchValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(new(MockRepository), new(MockNotifier), slog.New(slog.DiscardHandler))

	t.Run("team cannot play itself", func(t *testing.T) {
		_, err := svc.CreateMatch(ctx, CreateMatchParams{
			HomeTeamID: 1, AwayTeamID: 1, KickoffAt: time.Now(),
		})
		var appErr *api.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 400, appErr.Status)
	})

	t.Run("kickoff required", func(t *testing.T) {
		_, err := svc.CreateMatch(ctx, CreateMatchParams{HomeTeamID: 1, AwayTeamID: 2})
		assert.Error(t, err)
	})
}

func TestRecordResultNotifiesBothSquads(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, notifier, slog.New(slog.DiscardHandler))

	finished := &types.Match{
		ID: 1, HomeTeamID: 10, AwayTeamID: 20, Status: types.MatchFinished,
		HomeScore: intPtr(3), AwayScore: intPtr(1),
	}
	repo.On("RecordResult", ctx, int64(1), 3, 1).Return(finished, nil)
	repo.On("ParticipantIDs", ctx, int64(1)).Return([]int64{5, 6, 7}, nil)
	for _, id := range []int64{5, 6, 7} {
		notifier.On("Notify", ctx, id, types.NotifyMatchResult, mock.Anything).Once()
	}

	m, err := svc.RecordResult(ctx, 1, 3, 1)
	require.NoError(t, err)
	assert.True(t, m.Finished())
	notifier.AssertExpectations(t)
}

func TestRecordResultRejectsNegativeScores(t *testing.T) {
	svc := NewService(new(MockRepository), new(MockNotifier), slog.New(slog.DiscardHandler))

	_, err := svc.RecordResult(context.Background(), 1, -1, 0)
	var appErr *api.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.Status)
}

func TestRecordResultSurvivesNotificationFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	notifier := new(MockNotifier)
	svc := NewService(repo, notifier, slog.New(slog.DiscardHandler))

	finished := &types.Match{
		ID: 1, HomeTeamID: 10, AwayTeamID: 20, Status: types.MatchFinished,
		HomeScore: intPtr(0), AwayScore: intPtr(0),
	}
	repo.On("RecordResult", ctx, int64(1), 0, 0).Return(finished, nil)
	repo.On("ParticipantIDs", ctx, int64(1)).Return(nil, assert.AnError)

	m, err := svc.RecordResult(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, m)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
