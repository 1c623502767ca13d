package league

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
	Create(ctx context.Context, name, season string, createdBy int64) (*types.League, error)
	GetByID(ctx context.Context, id int64) (*types.League, error)
	List(ctx context.Context, limit, offset int) ([]*types.League, error)

	RegisterTeam(ctx context.Context, leagueID, teamID int64) error
	UnregisterTeam(ctx context.Context, leagueID, teamID int64) error

	// LeagueTeams returns the registered teams with their names.
	LeagueTeams(ctx context.Context, leagueID int64) ([]*types.Team, error)

	// FinishedMatches returns the league's matches that carry a result.
	FinishedMatches(ctx context.Context, leagueID int64) ([]*types.Match, error)
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

const leagueSelect = `id, name, season, status, created_by, created_at`

func scanLeague(row pgx.Row) (*types.League, error) {
	var l types.League
	err := row.Scan(&l.ID, &l.Name, &l.Season, &l.Status, &l.CreatedBy, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *PostgresRepository) Create(ctx context.Context, name, season string, createdBy int64) (*types.League, error) {
	l, err := scanLeague(r.db.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO leagues (name, season, created_by) VALUES ($1, $2, $3) RETURNING %s", leagueSelect),
		name, season, createdBy))
	if err != nil {
		return nil, fmt.Errorf("create league: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*types.League, error) {
	l, err := scanLeague(r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM leagues WHERE id = $1", leagueSelect), id))
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get league: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*types.League, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM leagues ORDER BY created_at DESC LIMIT $1 OFFSET $2", leagueSelect),
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list leagues: query failed: %w", err)
	}
	defer rows.Close()

	var leagues []*types.League
	for rows.Next() {
		l, err := scanLeague(rows)
		if err != nil {
			return nil, fmt.Errorf("list leagues: scan failed: %w", err)
		}
		leagues = append(leagues, l)
	}
	return leagues, rows.Err()
}

func (r *PostgresRepository) RegisterTeam(ctx context.Context, leagueID, teamID int64) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO league_teams (league_id, team_id) VALUES ($1, $2)",
		leagueID, teamID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return api.ErrConflict
			case "23503":
				return api.ErrNotFound
			}
		}
		return fmt.Errorf("register team: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UnregisterTeam(ctx context.Context, leagueID, teamID int64) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM league_teams WHERE league_id = $1 AND team_id = $2",
		leagueID, teamID)
	if err != nil {
		return fmt.Errorf("unregister team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) LeagueTeams(ctx context.Context, leagueID int64) ([]*types.Team, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.name, t.email, t.owner_id, t.created_at, t.updated_at
		 FROM league_teams lt
		 JOIN teams t ON t.id = lt.team_id
		 WHERE lt.league_id = $1
		 ORDER BY t.name`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("league teams: query failed: %w", err)
	}
	defer rows.Close()

	var teams []*types.Team
	for rows.Next() {
		var t types.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("league teams: scan failed: %w", err)
		}
		teams = append(teams, &t)
	}
	return teams, rows.Err()
}

func (r *PostgresRepository) FinishedMatches(ctx context.Context, leagueID int64) ([]*types.Match, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, league_id, home_team_id, away_team_id, kickoff_at, venue,
		        status, home_score, away_score, created_at, updated_at
		 FROM matches
		 WHERE league_id = $1 AND status = $2
		   AND home_score IS NOT NULL AND away_score IS NOT NULL`,
		leagueID, types.MatchFinished)
	if err != nil {
		return nil, fmt.Errorf("finished matches: query failed: %w", err)
	}
	defer rows.Close()

	var matches []*types.Match
	for rows.Next() {
		var m types.Match
		err := rows.Scan(
			&m.ID, &m.LeagueID, &m.HomeTeamID, &m.AwayTeamID, &m.KickoffAt, &m.Venue,
			&m.Status, &m.HomeScore, &m.AwayScore, &m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("finished matches: scan failed: %w", err)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}
