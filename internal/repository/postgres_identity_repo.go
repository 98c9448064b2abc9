package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresIdentityRepo はプロバイダ所有のidentitiesテーブルの読み取り専用リポジトリ。
// Identityの作成・削除はプロバイダの責務であり、ここでは参照のみを行う。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// ListConfirmedWithProfile はメール確認済みかつプロファイル行を持つIdentity IDを列挙する。
// マッチングバッチの通知対象の列挙に使用する。
func (r *PostgresIdentityRepo) ListConfirmedWithProfile(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT i.id FROM identities i
		 JOIN profiles p ON p.id = i.id
		 WHERE i.email_confirmed_at IS NOT NULL`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list confirmed identities: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan identity row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity rows iteration failed: %w", err)
	}

	return ids, nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
