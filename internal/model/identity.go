// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は外部認証プロバイダが所有する認証済みプリンシパルを表す。
// アプリケーションはブラウザセッションの間だけ読み取り専用コピーを保持する。
type Identity struct {
	ID               string
	Email            string
	EmailConfirmedAt *time.Time // nilの場合はメール未確認
	CreatedAt        time.Time
}

// EmailConfirmed はメールアドレスが確認済みかどうかを返す。
func (i *Identity) EmailConfirmed() bool {
	return i.EmailConfirmedAt != nil
}

// Session はIdentityとプロバイダ発行トークンの一時的なペアリングを表す。
// ログイン時または有効な保存済みトークンでのページロード時に作成され、
// ログアウト・期限切れ・他タブからの無効化で破棄される。
type Session struct {
	ID           string
	IdentityID   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Expired はセッションの有効期限が切れているかどうかを返す。
func (s *Session) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
