package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

// ProbeOrder is the fixed table-precedence sequence of credential
// resolution. It must not be reordered: an email present in both the
// unified table and a legacy table always resolves via the unified table.
var ProbeOrder = []types.Origin{
	types.OriginUser,
	types.OriginAthlete,
	types.OriginManager,
	types.OriginTeam,
}

// originQuery centralizes the per-origin table and hash-column mapping.
// The four tables are one sum type with variant column names for the same
// concept; the select lists are aligned so every variant scans identically.
type originQuery struct {
	table      string
	hashColumn string
	selectList string
}

var originQueries = map[types.Origin]originQuery{
	types.OriginUser: {
		table:      "users",
		hashColumn: "password",
		selectList: "id, email, password, role, status, first_name, last_name, position, country",
	},
	types.OriginAthlete: {
		table:      "athletes",
		hashColumn: "password_hash",
		selectList: "id, email, password_hash, 'athlete', 'active', first_name, last_name, position, country",
	},
	types.OriginManager: {
		table:      "managers",
		hashColumn: "password_hash",
		selectList: "id, email, password_hash, 'manager', 'active', first_name, last_name, NULL, NULL",
	},
	types.OriginTeam: {
		table:      "teams",
		hashColumn: "password_hash",
		selectList: "id, email, password_hash, 'team', 'active', name, NULL, NULL, NULL",
	},
}

var _ Repository = (*PostgresRepository)(nil)

// Repository defines the contract for credential-store access.
type Repository interface {
	// LookupByEmail finds an identity in the given origin table.
	// Returns api.ErrNotFound when no row matches.
	LookupByEmail(ctx context.Context, origin types.Origin, email string) (*types.Identity, error)

	// GetIdentity loads an identity by origin and id. Returns
	// api.ErrNotFound when the identity no longer exists.
	GetIdentity(ctx context.Context, origin types.Origin, id int64) (*types.Identity, error)

	// EffectiveRoles returns the union role set for a unified-table user:
	// the user_roles join rows, or the primary role column alone when the
	// join yields nothing. Never empty.
	EffectiveRoles(ctx context.Context, userID int64, primaryRole string) ([]string, error)

	// EmailExists checks all four credential tables.
	EmailExists(ctx context.Context, email string) (bool, error)

	CreateUser(ctx context.Context, params CreateUserParams) (*types.Identity, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
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

func (r *PostgresRepository) LookupByEmail(ctx context.Context, origin types.Origin, email string) (*types.Identity, error) {
	return r.lookup(ctx, origin, "email", email)
}

func (r *PostgresRepository) GetIdentity(ctx context.Context, origin types.Origin, id int64) (*types.Identity, error) {
	return r.lookup(ctx, origin, "id", id)
}

func (r *PostgresRepository) lookup(ctx context.Context, origin types.Origin, keyColumn string, key any) (*types.Identity, error) {
	q, ok := originQueries[origin]
	if !ok {
		return nil, fmt.Errorf("unknown credential origin %q", origin)
	}

	tracer := otel.Tracer("matchpoint/auth-repository")
	ctx, span := tracer.Start(ctx, "lookupIdentity")
	span.SetAttributes(
		attribute.String("db.sql.table", q.table),
		attribute.String("auth.origin", string(origin)),
	)
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", q.selectList, q.table, keyColumn)

	var ident types.Identity
	err := r.db.QueryRow(ctx, query, key).Scan(
		&ident.ID, &ident.Email, &ident.PasswordHash, &ident.Role, &ident.Status,
		&ident.FirstName, &ident.LastName, &ident.Position, &ident.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("lookup identity in %s: %w", q.table, err)
	}
	return &ident, nil
}

func (r *PostgresRepository) EffectiveRoles(ctx context.Context, userID int64, primaryRole string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT r.name FROM user_roles ur
		 JOIN roles r ON r.id = ur.role_id
		 WHERE ur.user_id = $1
		 ORDER BY r.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("effective roles: query failed: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("effective roles: scan failed: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("effective roles: rows failed: %w", err)
	}

	// The role column is the fallback source of truth when the join table
	// yields nothing; the effective set is never empty.
	if len(roles) == 0 {
		roles = []string{primaryRole}
	}
	return roles, nil
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
		     OR EXISTS (SELECT 1 FROM athletes WHERE email = $1)
		     OR EXISTS (SELECT 1 FROM managers WHERE email = $1)
		     OR EXISTS (SELECT 1 FROM teams WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("email exists: query failed: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) CreateUser(ctx context.Context, params CreateUserParams) (*types.Identity, error) {
	role := params.Role
	if role == "" {
		role = "user"
	}

	var ident types.Identity
	err := r.db.QueryRow(ctx,
		`INSERT INTO users (email, password, role, first_name, last_name, auth_provider)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, email, password, role, status, first_name, last_name, position, country`,
		params.Email, params.PasswordHash, role, params.FirstName, params.LastName, params.AuthProvider,
	).Scan(
		&ident.ID, &ident.Email, &ident.PasswordHash, &ident.Role, &ident.Status,
		&ident.FirstName, &ident.LastName, &ident.Position, &ident.Country,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, api.ErrConflict
		}
		return nil, fmt.Errorf("create user: insert failed: %w", err)
	}
	return &ident, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password = $1, updated_at = now() WHERE id = $2`,
		passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: db update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}
