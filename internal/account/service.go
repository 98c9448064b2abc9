// Package account はアカウント管理のドメインロジックを提供する。
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/przetargo/api/internal/repository"
)

// StoreDetacher はIdentityに属するメモリ上のセッション状態の破棄インターフェース。
// session.Registryの部分集合として定義する。
type StoreDetacher interface {
	DetachByIdentity(identityID string)
}

// Service はアカウント管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	sessionRepo      repository.SessionRepository
	watchRepo        repository.WatchRepository
	notificationRepo repository.NotificationRepository
	detacher         StoreDetacher
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	sessionRepo repository.SessionRepository,
	watchRepo repository.WatchRepository,
	notificationRepo repository.NotificationRepository,
	detacher StoreDetacher,
) *Service {
	return &Service{
		sessionRepo:      sessionRepo,
		watchRepo:        watchRepo,
		notificationRepo: notificationRepo,
		detacher:         detacher,
	}
}

// Withdraw はアカウントの退会処理を実行する。
// 削除順序: notifications → tender_watches → sessions → メモリ上のStore。
// Identity本体とプロファイルの削除はプロバイダの責務であり、
// プロバイダ側の削除がCASCADEで両者を取り除く。tendersは共有データとして残す。
func (s *Service) Withdraw(ctx context.Context, identityID string) error {
	if identityID == "" {
		return fmt.Errorf("identity ID is required")
	}

	slog.Info("account withdrawal started",
		slog.String("identity_id", identityID),
	)

	// 1. 通知を削除
	if err := s.notificationRepo.DeleteByIdentityID(ctx, identityID); err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}

	// 2. ウォッチリストを削除
	if err := s.watchRepo.DeleteByIdentityID(ctx, identityID); err != nil {
		return fmt.Errorf("failed to delete tender watches: %w", err)
	}

	// 3. 全デバイスのセッションを削除
	if err := s.sessionRepo.DeleteByIdentityID(ctx, identityID); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	// 4. メモリ上のStoreを破棄
	if s.detacher != nil {
		s.detacher.DetachByIdentity(identityID)
	}

	slog.Info("account withdrawal completed",
		slog.String("identity_id", identityID),
	)

	return nil
}
