package notify

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
	Insert(ctx context.Context, userID int64, kind string, payload map[string]interface{}) (*types.Notification, error)
	ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*types.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
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

const notificationSelect = `id, user_id, kind, payload, read_at, created_at`

func scanNotification(row pgx.Row) (*types.Notification, error) {
	var n types.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Kind, &n.Payload, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, api.ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, userID int64, kind string, payload map[string]interface{}) (*types.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx,
		fmt.Sprintf(`INSERT INTO notifications (user_id, kind, payload)
		 VALUES ($1, $2, $3) RETURNING %s`, notificationSelect),
		userID, kind, payload))
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*types.Notification, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM notifications
		 WHERE user_id = $1 AND ($2 = false OR read_at IS NULL)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`, notificationSelect),
		userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: query failed: %w", err)
	}
	defer rows.Close()

	var notifications []*types.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("list notifications: scan failed: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead scopes the update to the owning user so one user cannot mark
// another's notification.
func (r *PostgresRepository) MarkRead(ctx context.Context, userID, notificationID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at = now()
		 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return api.ErrNotFound
	}
	return nil
}
