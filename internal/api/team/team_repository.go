package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/matchpoint-hq/matchpoint/internal/api"
	"github.com/matchpoint-hq/matchpoint/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

type Repository interface {
	Create(ctx context.Context, name string, ownerID int64) (*types.Team, error)
	GetByID(ctx context.Context, id int64) (*types.Team, error)
	List(ctx context.Context, limit, offset int) ([]*types.Team, error)
	Update(ctx context.Context, id int64, name string) (*types.Team, error)
	Delete(ctx context.Context, id int64) error

	AddMember(ctx context.Context, teamID, userID int64, role string) error
	RemoveMember(ctx context.Context, teamID, userID int64) error
	ListMembers(ctx context.Context, teamID int64) ([]*types.TeamMember, error)
	MemberRole(ctx context.Context, teamID, userID int64) (string, error)
	ManagerIDs(ctx context.Context, teamID int64) ([]int64, error)

	CreateJoinRequest(ctx context.Context, teamID, userID int64, message *string) (*types.JoinRequest, error)
	GetJoinRequest(ctx context.Context, id int64) (*types.JoinRequest, error)
	ListJoinRequests(ctx context.Context, teamID int64, status string) ([]*types.JoinRequest, error)
	DecideJoinRequest(ctx context.Context, id int64, status string) (*types.JoinRequest, error)

	CreateInvitation(ctx context.Context, teamID int64, email, role string, expiresAt time.Time) (*types.Invitation, error)
	GetInvitationByToken(ctx context.Context, token uuid.UUID) (*types.Invitation, error)
	DecideInvitation(ctx context.Context, id int64, status string) error
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

const teamSelect = `id, name, email, owner_id, created_at, updated_at`

func scanTeam(row pgx.Row) (*types.Team, error) {
	var t types.Team
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, name string, ownerID int64) (*types.Team, error) {
	t, err := scanTeam(r.db.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO teams (name, owner_id) VALUES ($1, $2) RETURNING %s", teamSelect),
		name, ownerID))
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}

	// The creator manages the team they created.
	if err := r.AddMember(ctx, t.ID, ownerID, types.TeamRoleManager); err != nil {
		return nil, fmt.Errorf("create team: seed manager membership: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*types.Team, error) {
	t, err := scanTeam(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM teams WHERE id = $1", teamSelect), id))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*types.Team, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM teams ORDER BY name LIMIT $1 OFFSET $2", teamSelect),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list teams: query failed: %w", err)
	}
	defer rows.Close()

	var teams []*types.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("list teams: scan failed: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, name string) (*types.Team, error) {
	t, err := scanTeam(r.db.QueryRow(ctx,
		fmt.Sprintf("UPDATE teams SET name = $2, updated_at = now() WHERE id = $1 RETURNING %s", teamSelect),
		id, name))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update team: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM teams WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) AddMember(ctx context.Context, teamID, userID int64, role string) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO team_members (team_id, user_id, role) VALUES ($1, $2, $3)",
		teamID, userID, role)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return api.ErrConflict
		}
		return fmt.Errorf("add team member: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, teamID, userID int64) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM team_members WHERE team_id = $1 AND user_id = $2",
		teamID, userID)
	if err != nil {
		return fmt.Errorf("remove team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, teamID int64) ([]*types.TeamMember, error) {
	rows, err := r.db.Query(ctx,
		`SELECT tm.team_id, tm.user_id, tm.role, u.first_name, u.last_name, u.email, tm.joined_at
		 FROM team_members tm
		 JOIN users u ON u.id = tm.user_id
		 WHERE tm.team_id = $1
		 ORDER BY tm.joined_at`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: query failed: %w", err)
	}
	defer rows.Close()

	var members []*types.TeamMember
	for rows.Next() {
		var m types.TeamMember
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.FirstName, &m.LastName, &m.Email, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("list team members: scan failed: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// MemberRole returns the membership role, or api.ErrNotFound when the user
// is not on the team.
func (r *PostgresRepository) MemberRole(ctx context.Context, teamID, userID int64) (string, error) {
	var role string
	err := r.db.QueryRow(ctx,
		"SELECT role FROM team_members WHERE team_id = $1 AND user_id = $2",
		teamID, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", api.ErrNotFound
		}
		return "", fmt.Errorf("member role: %w", err)
	}
	return role, nil
}

// ManagerIDs returns the user ids holding a managing role on the team.
func (r *PostgresRepository) ManagerIDs(ctx context.Context, teamID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		"SELECT user_id FROM team_members WHERE team_id = $1 AND role IN ($2, $3)",
		teamID, types.TeamRoleManager, types.TeamRoleAssistantManager)
	if err != nil {
		return nil, fmt.Errorf("manager ids: query failed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("manager ids: scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const joinRequestSelect = `id, team_id, user_id, status, message, created_at, decided_at`

func scanJoinRequest(row pgx.Row) (*types.JoinRequest, error) {
	var jr types.JoinRequest
	err := row.Scan(&jr.ID, &jr.TeamID, &jr.UserID, &jr.Status, &jr.Message, &jr.CreatedAt, &jr.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &jr, nil
}

func (r *PostgresRepository) CreateJoinRequest(ctx context.Context, teamID, userID int64, message *string) (*types.JoinRequest, error) {
	jr, err := scanJoinRequest(r.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO join_requests (team_id, user_id, message)
		 VALUES ($1, $2, $3) RETURNING %s`, joinRequestSelect),
		teamID, userID, message))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, api.ErrConflict
		}
		return nil, fmt.Errorf("create join request: %w", err)
	}
	return jr, nil
}

func (r *PostgresRepository) GetJoinRequest(ctx context.Context, id int64) (*types.JoinRequest, error) {
	jr, err := scanJoinRequest(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM join_requests WHERE id = $1", joinRequestSelect), id))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get join request: %w", err)
	}
	return jr, nil
}

func (r *PostgresRepository) ListJoinRequests(ctx context.Context, teamID int64, status string) ([]*types.JoinRequest, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM join_requests
		 WHERE team_id = $1 AND ($2 = '' OR status = $2)
		 ORDER BY created_at`, joinRequestSelect),
		teamID, status)
	if err != nil {
		return nil, fmt.Errorf("list join requests: query failed: %w", err)
	}
	defer rows.Close()

	var requests []*types.JoinRequest
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("list join requests: scan failed: %w", err)
		}
		requests = append(requests, jr)
	}
	return requests, rows.Err()
}

// DecideJoinRequest flips a pending request to its final status. Deciding
// an already-decided request is a conflict.
func (r *PostgresRepository) DecideJoinRequest(ctx context.Context, id int64, status string) (*types.JoinRequest, error) {
	jr, err := scanJoinRequest(r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE join_requests SET status = $2, decided_at = now()
		 WHERE id = $1 AND status = 'pending' RETURNING %s`, joinRequestSelect),
		id, status))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Either missing or already decided; let the service sort
			// out which by re-reading.
			return nil, api.ErrNotFound
		}
		return nil, fmt.Errorf("decide join request: %w", err)
	}
	return jr, nil
}

const invitationSelect = `id, token, team_id, email, role, status, created_at, expires_at`

func scanInvitation(row pgx.Row) (*types.Invitation, error) {
	var inv types.Invitation
	err := row.Scan(&inv.ID, &inv.Token, &inv.TeamID, &inv.Email, &inv.Role, &inv.Status, &inv.CreatedAt, &inv.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PostgresRepository) CreateInvitation(ctx context.Context, teamID int64, email, role string, expiresAt time.Time) (*types.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO invitations (token, team_id, email, role, expires_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING %s`, invitationSelect),
		uuid.New(), teamID, email, role, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) GetInvitationByToken(ctx context.Context, token uuid.UUID) (*types.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM invitations WHERE token = $1", invitationSelect), token))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

func (r *PostgresRepository) DecideInvitation(ctx context.Context, id int64, status string) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE invitations SET status = $2 WHERE id = $1 AND status = 'pending'",
		id, status)
	if err != nil {
		return fmt.Errorf("decide invitation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrConflict
	}
	return nil
}
