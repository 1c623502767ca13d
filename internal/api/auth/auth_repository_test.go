package auth

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresRepository(mockPool, slog.New(slog.DiscardHandler)), mockPool
}

func identityColumns() []string {
	return []string{"id", "email", "password", "role", "status", "first_name", "last_name", "position", "country"}
}

func TestLookupByEmailUnifiedTable(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	hash := "$2a$10$abcdefghijklmnopqrstuv"

	mockPool.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("u@example.com").
		WillReturnRows(pgxmock.NewRows(identityColumns()).
			AddRow(int64(1), "u@example.com", &hash, "user", "active", nil, nil, nil, nil))

	ident, err := repo.LookupByEmail(context.Background(), types.OriginUser, "u@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), ident.ID)
	assert.Equal(t, "user", ident.Role)
	require.NotNil(t, ident.PasswordHash)
	assert.Equal(t, hash, *ident.PasswordHash)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLookupByEmailLegacyHashColumn(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	hash := "$2b$10$abcdefghijklmnopqrstuv"

	// Legacy tables store the hash under password_hash, padded to the
	// same nine-column shape as the unified table.
	mockPool.ExpectQuery(`SELECT id, email, password_hash, .+ FROM athletes WHERE email = \$1`).
		WithArgs("a@example.com").
		WillReturnRows(pgxmock.NewRows(identityColumns()).
			AddRow(int64(7), "a@example.com", &hash, "athlete", "active", nil, nil, nil, nil))

	ident, err := repo.LookupByEmail(context.Background(), types.OriginAthlete, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "athlete", ident.Role)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestLookupByEmailNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery(`SELECT .+ FROM teams WHERE email = \$1`).
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.LookupByEmail(context.Background(), types.OriginTeam, "nobody@example.com")
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestEffectiveRoles(t *testing.T) {
	t.Run("union from join table", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT r.name FROM user_roles ur`).
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows([]string{"name"}).
				AddRow("manager").AddRow("organizer"))

		roles, err := repo.EffectiveRoles(context.Background(), 1, "manager")
		require.NoError(t, err)
		assert.Equal(t, []string{"manager", "organizer"}, roles)
	})

	t.Run("falls back to primary role", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT r.name FROM user_roles ur`).
			WithArgs(int64(2)).
			WillReturnRows(pgxmock.NewRows([]string{"name"}))

		roles, err := repo.EffectiveRoles(context.Background(), 2, "athlete")
		require.NoError(t, err)
		assert.Equal(t, []string{"athlete"}, roles)
	})
}

func TestEmailExists(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery(`SELECT EXISTS`).
		WithArgs("known@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.EmailExists(context.Background(), "known@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	hash := "$2a$10$abcdefghijklmnopqrstuv"

	mockPool.ExpectQuery(`INSERT INTO users`).
		WithArgs("dup@example.com", &hash, "user", (*string)(nil), (*string)(nil), (*string)(nil)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err := repo.CreateUser(context.Background(), CreateUserParams{
		Email:        "dup@example.com",
		PasswordHash: &hash,
	})
	assert.ErrorIs(t, err, api.ErrConflict)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestUpdatePassword(t *testing.T) {
	t.Run("updates existing user", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE users SET password = \$1`).
			WithArgs("$2a$10$newhash", int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.UpdatePassword(context.Background(), 1, "$2a$10$newhash"))
	})

	t.Run("missing user is not found", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE users SET password = \$1`).
			WithArgs("$2a$10$newhash", int64(404)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 404, "$2a$10$newhash"), api.ErrNotFound)
	})
}
