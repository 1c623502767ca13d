package match

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
	Create(ctx context.Context, params CreateMatchParams) (*types.Match, error)
	GetByID(ctx context.Context, id int64) (*types.Match, error)
	ListByTeam(ctx context.Context, teamID int64, limit, offset int) ([]*types.Match, error)
	Update(ctx context.Context, id int64, params UpdateMatchParams) (*types.Match, error)
	Delete(ctx context.Context, id int64) error

	// RecordResult marks a scheduled match finished with final scores.
	RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*types.Match, error)

	// ParticipantIDs returns the member user ids of both teams, for
	// result notifications.
	ParticipantIDs(ctx context.Context, matchID int64) ([]int64, error)
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

const matchSelect = `id, league_id, home_team_id, away_team_id, kickoff_at, venue, status, home_score, away_score, created_at, updated_at`

func scanMatch(row pgx.Row) (*types.Match, error) {
	var m types.Match
	err := row.Scan(
		&m.ID, &m.LeagueID, &m.HomeTeamID, &m.AwayTeamID, &m.KickoffAt, &m.Venue,
		&m.Status, &m.HomeScore, &m.AwayScore, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, params CreateMatchParams) (*types.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO matches (league_id, home_team_id, away_team_id, kickoff_at, venue)
		 VALUES ($1, $2, $3, $4, $5) RETURNING %s`, matchSelect),
		params.LeagueID, params.HomeTeamID, params.AwayTeamID, params.KickoffAt, params.Venue))
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*types.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM matches WHERE id = $1", matchSelect), id))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID int64, limit, offset int) ([]*types.Match, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM matches
		 WHERE home_team_id = $1 OR away_team_id = $1
		 ORDER BY kickoff_at DESC LIMIT $2 OFFSET $3`, matchSelect),
		teamID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list matches: query failed: %w", err)
	}
	defer rows.Close()

	var matches []*types.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("list matches: scan failed: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *PostgresRepository) Update(ctx context.Context, id int64, params UpdateMatchParams) (*types.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE matches SET
			kickoff_at = COALESCE($2, kickoff_at),
			venue      = COALESCE($3, venue),
			updated_at = now()
		 WHERE id = $1 RETURNING %s`, matchSelect),
		id, params.KickoffAt, params.Venue))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update match: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM matches WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) RecordResult(ctx context.Context, id int64, homeScore, awayScore int) (*types.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE matches SET
			status = $2, home_score = $3, away_score = $4, updated_at = now()
		 WHERE id = $1 AND status <> $5 RETURNING %s`, matchSelect),
		id, types.MatchFinished, homeScore, awayScore, types.MatchCancelled))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("record result: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ParticipantIDs(ctx context.Context, matchID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT tm.user_id
		 FROM team_members tm
		 JOIN matches m ON tm.team_id IN (m.home_team_id, m.away_team_id)
		 WHERE m.id = $1`, matchID)
	if err != nil {
		return nil, fmt.Errorf("participant ids: query failed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("participant ids: scan failed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
