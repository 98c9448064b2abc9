// Package model はドメインモデルを定義する。
package model

import "time"

// Notification はユーザー向けの新着案件通知を表す。
// ワーカーのマッチングバッチがプロファイル適合案件ごとに作成する。
type Notification struct {
	ID         string
	IdentityID string
	TenderID   string
	Title      string
	MatchScore int
	IsRead     bool
	CreatedAt  time.Time
	ReadAt     *time.Time
}
