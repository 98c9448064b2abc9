// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/przetargo/api/internal/model"
)

// ProfileRepository はプロファイルデータの永続化インターフェース。
// 行の作成はプロバイダ側トリガーの責務であり、ここには作成操作が存在しない。
type ProfileRepository interface {
	// FetchByID は指定Identity IDのプロファイルを1行取得する。
	// 行が存在しない場合はmodel.ErrProfileNotFoundを返す。
	// identityIDが空の場合は呼び出してはならない。
	FetchByID(ctx context.Context, identityID string) (*model.Profile, error)

	// UpdateByID は指定Identity IDのプロファイルを部分更新する。
	// パッチに含まれないフィールドは変更しない。
	// 更新後の行を返す。対象行が存在しない場合はmodel.ErrProfileNotFoundを返す。
	UpdateByID(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error)
}

// SessionRepository はブラウザセッションデータの永続化インターフェース。
// プロバイダ発行トークンをサーバー側に保持し、Cookieには不透明なIDのみを載せる。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// UpdateTokens はトークンリフレッシュ後のトークンペアと有効期限を更新する。
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByIdentityID は指定Identityの全セッションを削除する。
	DeleteByIdentityID(ctx context.Context, identityID string) error
}

// TenderRepository は公告データの永続化インターフェース。
type TenderRepository interface {
	// FindByID は指定IDの公告を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Tender, error)

	// FindBySourceID はソースとソースIDで公告を検索する。見つからない場合はnilを返す。
	FindBySourceID(ctx context.Context, source, sourceID string) (*model.Tender, error)

	// Upsert は公告を挿入または更新する。
	// 既存行とcontent_hashが一致する場合は何もせずfalseを返す。
	Upsert(ctx context.Context, tender *model.Tender) (bool, error)

	// ListRecent は公開日の新しい順に公告を取得する。
	// sinceがゼロ値でない場合はそれ以降に公開されたものに限定する。
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error)

	// Search はタイトル・発注者名・CPVコードに対する部分一致検索を行う。
	Search(ctx context.Context, query string, limit int) ([]*model.Tender, error)
}

// WatchRepository はウォッチリストの永続化インターフェース。
type WatchRepository interface {
	// FindByID は指定IDのウォッチを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.TenderWatch, error)

	// FindByIdentityAndTender はIdentityと公告IDでウォッチを検索する。見つからない場合はnilを返す。
	FindByIdentityAndTender(ctx context.Context, identityID, tenderID string) (*model.TenderWatch, error)

	// Create はウォッチを作成する。
	Create(ctx context.Context, watch *model.TenderWatch) error

	// ListByIdentityWithTender はIdentityのウォッチ一覧を公告情報付きで返す。
	ListByIdentityWithTender(ctx context.Context, identityID string) ([]model.TenderWatchWithTender, error)

	// UpdateStatus はウォッチの進行状態を更新する。
	UpdateStatus(ctx context.Context, id string, status model.WatchStatus) error

	// Delete は指定IDのウォッチを削除する。
	Delete(ctx context.Context, id string) error

	// DeleteByIdentityID はIdentityの全ウォッチを削除する。
	DeleteByIdentityID(ctx context.Context, identityID string) error
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成し、新規に行が挿入されたかを返す。
	// 同一Identity・同一公告の通知が既に存在する場合は何もせずfalseを返す。
	Create(ctx context.Context, notification *model.Notification) (bool, error)

	// ListByIdentity はIdentityの通知一覧を作成日時の降順で返す。
	ListByIdentity(ctx context.Context, identityID string, limit int) ([]*model.Notification, error)

	// MarkRead は指定Identityが所有する通知を既読にする。
	// 所有者が一致しない場合は更新せずfalseを返す。
	MarkRead(ctx context.Context, identityID, notificationID string) (bool, error)

	// CountUnread はIdentityの未読通知数を返す。
	CountUnread(ctx context.Context, identityID string) (int, error)

	// DeleteByIdentityID はIdentityの全通知を削除する。
	DeleteByIdentityID(ctx context.Context, identityID string) error
}

// IdentityRepository はプロバイダ所有のIdentity行の読み取りインターフェース。
// マッチングバッチが通知対象のIdentity一覧を列挙するために使用する。
type IdentityRepository interface {
	// ListConfirmedWithProfile はメール確認済みかつプロファイル行を持つIdentity IDを列挙する。
	ListConfirmedWithProfile(ctx context.Context) ([]string, error)
}
