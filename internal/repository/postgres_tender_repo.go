package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/przetargo/api/internal/model"
)

// PostgresTenderRepo はPostgreSQLを使用した公告リポジトリ。
type PostgresTenderRepo struct {
	db *sql.DB
}

// NewPostgresTenderRepo はPostgresTenderRepoを生成する。
func NewPostgresTenderRepo(db *sql.DB) *PostgresTenderRepo {
	return &PostgresTenderRepo{db: db}
}

// tenderColumns はSELECT句で使用するカラムリスト。
const tenderColumns = `id, source, source_id, title, description,
	organization_name, organization_contact, organization_email, organization_phone,
	cpv_code, location, budget, publication_date, submission_deadline, link,
	content_hash, created_at, updated_at`

// scanTender は1行をmodel.Tenderに読み込む。
func scanTender(row interface{ Scan(...any) error }) (*model.Tender, error) {
	t := &model.Tender{}
	err := row.Scan(
		&t.ID, &t.Source, &t.SourceID, &t.Title, &t.Description,
		&t.OrganizationName, &t.OrganizationContact, &t.OrganizationEmail, &t.OrganizationPhone,
		&t.CPVCode, &t.Location, &t.Budget, &t.PublicationDate, &t.SubmissionDeadline, &t.Link,
		&t.ContentHash, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// FindByID は指定IDの公告を取得する。見つからない場合はnilを返す。
func (r *PostgresTenderRepo) FindByID(ctx context.Context, id string) (*model.Tender, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenderColumns+` FROM tenders WHERE id = $1`, id)

	tender, err := scanTender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tender by ID: %w", err)
	}
	return tender, nil
}

// FindBySourceID はソースとソースIDで公告を検索する。見つからない場合はnilを返す。
func (r *PostgresTenderRepo) FindBySourceID(ctx context.Context, source, sourceID string) (*model.Tender, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+tenderColumns+` FROM tenders WHERE source = $1 AND source_id = $2`,
		source, sourceID)

	tender, err := scanTender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tender by source ID: %w", err)
	}
	return tender, nil
}

// Upsert は公告を挿入または更新する。
// UNIQUE(source, source_id)で衝突判定し、content_hashが変わった場合のみ更新する。
// 挿入または更新が行われた場合はtrueを返す。
func (r *PostgresTenderRepo) Upsert(ctx context.Context, tender *model.Tender) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO tenders (
			id, source, source_id, title, description,
			organization_name, organization_contact, organization_email, organization_phone,
			cpv_code, location, budget, publication_date, submission_deadline, link,
			content_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			organization_name = excluded.organization_name,
			organization_contact = excluded.organization_contact,
			organization_email = excluded.organization_email,
			organization_phone = excluded.organization_phone,
			cpv_code = excluded.cpv_code,
			location = excluded.location,
			budget = excluded.budget,
			publication_date = excluded.publication_date,
			submission_deadline = excluded.submission_deadline,
			link = excluded.link,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		WHERE tenders.content_hash != excluded.content_hash`,
		tender.ID, tender.Source, tender.SourceID, tender.Title, tender.Description,
		tender.OrganizationName, tender.OrganizationContact, tender.OrganizationEmail, tender.OrganizationPhone,
		tender.CPVCode, tender.Location, tender.Budget, tender.PublicationDate, tender.SubmissionDeadline, tender.Link,
		tender.ContentHash, tender.CreatedAt, tender.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert tender: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListRecent は公開日の新しい順に公告を取得する。
func (r *PostgresTenderRepo) ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tenderColumns+` FROM tenders
		 WHERE ($1::timestamptz IS NULL OR publication_date >= $1)
		 ORDER BY publication_date DESC
		 LIMIT $2`,
		nullableTime(since), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tenders: %w", err)
	}
	defer rows.Close()

	return collectTenders(rows)
}

// Search はタイトル・発注者名・CPVコードに対する部分一致検索を行う。
func (r *PostgresTenderRepo) Search(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
	pattern := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tenderColumns+` FROM tenders
		 WHERE title ILIKE $1 OR organization_name ILIKE $1 OR cpv_code LIKE $2
		 ORDER BY publication_date DESC
		 LIMIT $3`,
		pattern, query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tenders: %w", err)
	}
	defer rows.Close()

	return collectTenders(rows)
}

// collectTenders はクエリ結果の全行をスライスに読み込む。
func collectTenders(rows *sql.Rows) ([]*model.Tender, error) {
	var tenders []*model.Tender
	for rows.Next() {
		t, err := scanTender(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tender row: %w", err)
		}
		tenders = append(tenders, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tender rows iteration failed: %w", err)
	}
	return tenders, nil
}

// nullableTime はゼロ値のtime.TimeをSQLのNULLに変換する。
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// compile-time interface check
var _ TenderRepository = (*PostgresTenderRepo)(nil)
