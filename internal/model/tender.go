// Package model はドメインモデルを定義する。
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Tender は複数の調達ソースから取り込んだ公告を統一形式で表す。
type Tender struct {
	ID                  string
	Source              string // 例: "ezamowienia", "rss"
	SourceID            string // ソースシステム内での一意ID
	Title               string
	Description         string // サニタイズ済みHTML
	OrganizationName    string
	OrganizationContact string
	OrganizationEmail   string
	OrganizationPhone   string
	CPVCode             string
	Location            string
	Budget              string
	PublicationDate     time.Time
	SubmissionDeadline  time.Time
	Link                string
	ContentHash         string // 内容フィールドのSHA-256ハッシュ
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ComputeContentHash は公告の内容フィールドからSHA-256ハッシュを計算する。
// 同一ソースIDの公告が内容変更なしで再取得された場合のUPSERTスキップに使用する。
func (t *Tender) ComputeContentHash() string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s|%s",
		t.Title, t.Description, t.OrganizationName, t.OrganizationContact,
		t.OrganizationEmail, t.CPVCode,
		t.PublicationDate.Format(time.RFC3339), t.SubmissionDeadline.Format(time.RFC3339),
		t.Link, t.Budget,
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ParsedTender はソースハンドラーから取得した未保存の公告データを表す。
// ワーカーがソースを取得した後、TenderUpsertServiceに渡される。
type ParsedTender struct {
	SourceID            string
	Title               string
	Description         string // 未サニタイズのHTML
	OrganizationName    string
	OrganizationContact string
	OrganizationEmail   string
	OrganizationPhone   string
	CPVCode             string
	Location            string
	Budget              string
	PublicationDate     time.Time
	SubmissionDeadline  time.Time
	Link                string
}

// WatchStatus はウォッチリスト上の案件の進行状態を表す。
type WatchStatus string

const (
	// WatchStatusActive は検討中の案件。
	WatchStatusActive WatchStatus = "active"
	// WatchStatusInProgress は入札準備・提出中の案件。
	WatchStatusInProgress WatchStatus = "in_progress"
	// WatchStatusWon は落札した案件。
	WatchStatusWon WatchStatus = "won"
	// WatchStatusLost は落札できなかった案件。
	WatchStatusLost WatchStatus = "lost"
)

// ValidWatchStatus は進行状態が定義済みのいずれかであるかを返す。
func ValidWatchStatus(s WatchStatus) bool {
	switch s {
	case WatchStatusActive, WatchStatusInProgress, WatchStatusWon, WatchStatusLost:
		return true
	}
	return false
}

// TenderWatch はユーザーと公告のウォッチ関係を表す。
// ダッシュボードの「Moje przetargi」一覧の1行に対応する。
type TenderWatch struct {
	ID         string
	IdentityID string
	TenderID   string
	Status     WatchStatus
	MatchScore int // プロファイルとの適合度（0〜100）
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TenderWatchWithTender はウォッチと公告情報を結合したモデル。
// tendersテーブルとJOINして取得される。
type TenderWatchWithTender struct {
	TenderWatch
	Tender Tender
}
