package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/przetargo/api/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// Create は通知を作成し、新規に行が挿入されたかを返す。
// UNIQUE(identity_id, tender_id)により、同一案件の重複通知は黙ってスキップする。
func (r *PostgresNotificationRepo) Create(ctx context.Context, notification *model.Notification) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, identity_id, tender_id, title, match_score, is_read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (identity_id, tender_id) DO NOTHING`,
		notification.ID, notification.IdentityID, notification.TenderID,
		notification.Title, notification.MatchScore, notification.IsRead, notification.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListByIdentity はIdentityの通知一覧を作成日時の降順で返す。
func (r *PostgresNotificationRepo) ListByIdentity(ctx context.Context, identityID string, limit int) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, identity_id, tender_id, title, match_score, is_read, created_at, read_at
		 FROM notifications
		 WHERE identity_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		identityID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		err := rows.Scan(&n.ID, &n.IdentityID, &n.TenderID, &n.Title, &n.MatchScore, &n.IsRead, &n.CreatedAt, &n.ReadAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification rows iteration failed: %w", err)
	}

	return notifications, nil
}

// MarkRead は指定Identityが所有する通知を既読にする。
// 所有者スコープをWHERE句に含めることで、他Identityの通知は更新できない。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, identityID, notificationID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = true, read_at = now()
		 WHERE id = $1 AND identity_id = $2 AND is_read = false`,
		notificationID, identityID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountUnread はIdentityの未読通知数を返す。
func (r *PostgresNotificationRepo) CountUnread(ctx context.Context, identityID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE identity_id = $1 AND is_read = false`,
		identityID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteByIdentityID はIdentityの全通知を削除する。
func (r *PostgresNotificationRepo) DeleteByIdentityID(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE identity_id = $1`, identityID)
	if err != nil {
		return fmt.Errorf("failed to delete notifications by identity: %w", err)
	}
	return nil
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
