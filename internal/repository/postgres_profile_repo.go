package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/przetargo/api/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロファイルリポジトリ。
// プロバイダと共有するデータベース上のprofilesテーブルを操作する。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FetchByID は指定Identity IDのプロファイルを1行取得する。
// 行が存在しない場合はmodel.ErrProfileNotFoundを返す。
// 失敗時は構造化診断フィールド（code, message, detail, hint, identity id）をログに記録し、
// 共有状態には触れずに呼び出し元へエラーを伝播する。
func (r *PostgresProfileRepo) FetchByID(ctx context.Context, identityID string) (*model.Profile, error) {
	if identityID == "" {
		return nil, fmt.Errorf("identity ID is required")
	}

	profile := &model.Profile{}
	var companySize string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, phone, nip, company_name, website,
		        company_size, tender_description, created_at
		 FROM profiles WHERE id = $1`,
		identityID,
	).Scan(
		&profile.ID, &profile.FirstName, &profile.LastName, &profile.Phone,
		&profile.NIP, &profile.CompanyName, &profile.Website,
		&companySize, &profile.TenderDescription, &profile.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		logProfileQueryError("fetch profile failed", err, identityID)
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	profile.CompanySize = model.CompanySize(companySize)
	return profile, nil
}

// UpdateByID は指定Identity IDのプロファイルを部分更新する。
// パッチに含まれるフィールドのみをSET句に組み立て、更新後の行を返す。
func (r *PostgresProfileRepo) UpdateByID(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	if identityID == "" {
		return nil, fmt.Errorf("identity ID is required")
	}
	if patch.IsEmpty() {
		return r.FetchByID(ctx, identityID)
	}

	setClauses, args := buildProfileSet(patch)
	args = append(args, identityID)

	query := fmt.Sprintf(
		`UPDATE profiles SET %s WHERE id = $%d
		 RETURNING id, first_name, last_name, phone, nip, company_name, website,
		           company_size, tender_description, created_at`,
		setClauses, len(args),
	)

	profile := &model.Profile{}
	var companySize string
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&profile.ID, &profile.FirstName, &profile.LastName, &profile.Phone,
		&profile.NIP, &profile.CompanyName, &profile.Website,
		&companySize, &profile.TenderDescription, &profile.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		logProfileQueryError("update profile failed", err, identityID)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	profile.CompanySize = model.CompanySize(companySize)
	return profile, nil
}

// buildProfileSet はパッチの非nilフィールドからSET句とプレースホルダ引数を組み立てる。
func buildProfileSet(patch model.ProfilePatch) (string, []any) {
	var clauses []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FirstName != nil {
		add("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		add("last_name", *patch.LastName)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.NIP != nil {
		add("nip", *patch.NIP)
	}
	if patch.CompanyName != nil {
		add("company_name", *patch.CompanyName)
	}
	if patch.Website != nil {
		add("website", *patch.Website)
	}
	if patch.CompanySize != nil {
		add("company_size", string(*patch.CompanySize))
	}
	if patch.TenderDescription != nil {
		add("tender_description", *patch.TenderDescription)
	}

	return strings.Join(clauses, ", "), args
}

// logProfileQueryError はPostgreSQLエラーの診断フィールドを構造化ログに記録する。
// lib/pqのエラーからcode, detail, hintを取り出せる場合はそれらも含める。
func logProfileQueryError(msg string, err error, identityID string) {
	attrs := []any{
		slog.String("message", err.Error()),
		slog.String("identity_id", identityID),
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		attrs = append(attrs,
			slog.String("code", string(pqErr.Code)),
			slog.String("detail", pqErr.Detail),
			slog.String("hint", pqErr.Hint),
		)
	}

	slog.Error(msg, attrs...)
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
