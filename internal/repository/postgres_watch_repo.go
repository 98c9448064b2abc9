package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/przetargo/api/internal/model"
)

// PostgresWatchRepo はPostgreSQLを使用したウォッチリストリポジトリ。
type PostgresWatchRepo struct {
	db *sql.DB
}

// NewPostgresWatchRepo はPostgresWatchRepoを生成する。
func NewPostgresWatchRepo(db *sql.DB) *PostgresWatchRepo {
	return &PostgresWatchRepo{db: db}
}

// FindByID は指定IDのウォッチを取得する。見つからない場合はnilを返す。
func (r *PostgresWatchRepo) FindByID(ctx context.Context, id string) (*model.TenderWatch, error) {
	watch := &model.TenderWatch{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, tender_id, status, match_score, created_at, updated_at
		 FROM tender_watches WHERE id = $1`,
		id,
	).Scan(&watch.ID, &watch.IdentityID, &watch.TenderID, &status, &watch.MatchScore, &watch.CreatedAt, &watch.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watch by ID: %w", err)
	}

	watch.Status = model.WatchStatus(status)
	return watch, nil
}

// FindByIdentityAndTender はIdentityと公告IDでウォッチを検索する。見つからない場合はnilを返す。
func (r *PostgresWatchRepo) FindByIdentityAndTender(ctx context.Context, identityID, tenderID string) (*model.TenderWatch, error) {
	watch := &model.TenderWatch{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identity_id, tender_id, status, match_score, created_at, updated_at
		 FROM tender_watches WHERE identity_id = $1 AND tender_id = $2`,
		identityID, tenderID,
	).Scan(&watch.ID, &watch.IdentityID, &watch.TenderID, &status, &watch.MatchScore, &watch.CreatedAt, &watch.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find watch: %w", err)
	}

	watch.Status = model.WatchStatus(status)
	return watch, nil
}

// Create はウォッチを作成する。
func (r *PostgresWatchRepo) Create(ctx context.Context, watch *model.TenderWatch) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tender_watches (id, identity_id, tender_id, status, match_score, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		watch.ID, watch.IdentityID, watch.TenderID, string(watch.Status),
		watch.MatchScore, watch.CreatedAt, watch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert watch: %w", err)
	}
	return nil
}

// ListByIdentityWithTender はIdentityのウォッチ一覧を公告情報付きで返す。
// tendersテーブルとJOINし、作成日時の降順で返す。
func (r *PostgresWatchRepo) ListByIdentityWithTender(ctx context.Context, identityID string) ([]model.TenderWatchWithTender, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.identity_id, w.tender_id, w.status, w.match_score, w.created_at, w.updated_at,
		        t.id, t.source, t.source_id, t.title, t.description,
		        t.organization_name, t.organization_contact, t.organization_email, t.organization_phone,
		        t.cpv_code, t.location, t.budget, t.publication_date, t.submission_deadline, t.link,
		        t.content_hash, t.created_at, t.updated_at
		 FROM tender_watches w
		 JOIN tenders t ON t.id = w.tender_id
		 WHERE w.identity_id = $1
		 ORDER BY w.created_at DESC`,
		identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	defer rows.Close()

	var result []model.TenderWatchWithTender
	for rows.Next() {
		var item model.TenderWatchWithTender
		var status string
		t := &item.Tender
		err := rows.Scan(
			&item.ID, &item.IdentityID, &item.TenderID, &status, &item.MatchScore, &item.CreatedAt, &item.UpdatedAt,
			&t.ID, &t.Source, &t.SourceID, &t.Title, &t.Description,
			&t.OrganizationName, &t.OrganizationContact, &t.OrganizationEmail, &t.OrganizationPhone,
			&t.CPVCode, &t.Location, &t.Budget, &t.PublicationDate, &t.SubmissionDeadline, &t.Link,
			&t.ContentHash, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch row: %w", err)
		}
		item.Status = model.WatchStatus(status)
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("watch rows iteration failed: %w", err)
	}

	return result, nil
}

// UpdateStatus はウォッチの進行状態を更新する。
func (r *PostgresWatchRepo) UpdateStatus(ctx context.Context, id string, status model.WatchStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tender_watches SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to update watch status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("watch not found: %s", id)
	}
	return nil
}

// Delete は指定IDのウォッチを削除する。
func (r *PostgresWatchRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tender_watches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}
	return nil
}

// DeleteByIdentityID はIdentityの全ウォッチを削除する。
func (r *PostgresWatchRepo) DeleteByIdentityID(ctx context.Context, identityID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tender_watches WHERE identity_id = $1`, identityID)
	if err != nil {
		return fmt.Errorf("failed to delete watches by identity: %w", err)
	}
	return nil
}

// compile-time interface check
var _ WatchRepository = (*PostgresWatchRepo)(nil)
