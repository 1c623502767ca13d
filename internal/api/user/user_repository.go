package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*types.Identity, error)
	UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*types.Identity, error)
	List(ctx context.Context, limit, offset int) ([]*types.Identity, error)
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresRepository struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresRepository(db DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{logger: logger, db: db}
}

const identitySelect = `id, email, password, role, status, first_name, last_name, position, country, created_at, updated_at`

func scanIdentity(row pgx.Row) (*types.Identity, error) {
	var ident types.Identity
	err := row.Scan(
		&ident.ID, &ident.Email, &ident.PasswordHash, &ident.Role, &ident.Status,
		&ident.FirstName, &ident.LastName, &ident.Position, &ident.Country,
		&ident.CreatedAt, &ident.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &ident, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*types.Identity, error) {
	ident, err := scanIdentity(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM users WHERE id = $1", identitySelect), id))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return ident, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*types.Identity, error) {
	ident, err := scanIdentity(r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			position   = COALESCE($4, position),
			country    = COALESCE($5, country),
			updated_at = now()
		 WHERE id = $1
		 RETURNING %s`, identitySelect),
		id, params.FirstName, params.LastName, params.Position, params.Country))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return ident, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*types.Identity, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM users ORDER BY id LIMIT $1 OFFSET $2", identitySelect),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: query failed: %w", err)
	}
	defer rows.Close()

	var users []*types.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("list users: scan failed: %w", err)
		}
		users = append(users, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: rows failed: %w", err)
	}
	return users, nil
}
