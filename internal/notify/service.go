// Package notify は公告とプロファイルのマッチング通知を提供する。
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/przetargo/api/internal/metrics"
	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
	"github.com/przetargo/api/internal/tender"
)

// defaultListLimit は通知一覧のデフォルト件数。
const defaultListLimit = 50

// matchBatchLimit は1回のバッチでマッチ対象とする公告の上限件数。
const matchBatchLimit = 500

// ServiceConfig は通知サービスの設定。
type ServiceConfig struct {
	MatchThreshold int           // 通知を作成する適合度の下限(0〜100)
	MatchWindow    time.Duration // マッチ対象とする公告の公開日の遡り幅
}

// Service はマッチング通知のサービス層。
// バッチ実行によるマッチングと、通知の閲覧・既読管理を提供する。
type Service struct {
	notificationRepo repository.NotificationRepository
	identityRepo     repository.IdentityRepository
	profileRepo      repository.ProfileRepository
	tenderRepo       repository.TenderRepository
	collector        metrics.MetricsCollector
	config           ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	notificationRepo repository.NotificationRepository,
	identityRepo repository.IdentityRepository,
	profileRepo repository.ProfileRepository,
	tenderRepo repository.TenderRepository,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if config.MatchThreshold <= 0 {
		config.MatchThreshold = 60
	}
	if config.MatchWindow <= 0 {
		config.MatchWindow = 7 * 24 * time.Hour
	}
	return &Service{
		notificationRepo: notificationRepo,
		identityRepo:     identityRepo,
		profileRepo:      profileRepo,
		tenderRepo:       tenderRepo,
		collector:        collector,
		config:           config,
	}
}

// RunMatch は全対象Identityに対してマッチングを実行し、通知を作成する。
// 適合度が閾値以上の公告ごとに1件の通知を作る。既存の通知は重複作成されず、
// 計数にも含まれない。戻り値は新規に挿入された通知数。
func (s *Service) RunMatch(ctx context.Context) (int, error) {
	identityIDs, err := s.identityRepo.ListConfirmedWithProfile(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list identities: %w", err)
	}
	if len(identityIDs) == 0 {
		return 0, nil
	}

	since := time.Now().Add(-s.config.MatchWindow)
	tenders, err := s.tenderRepo.ListRecent(ctx, since, matchBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list recent tenders: %w", err)
	}
	if len(tenders) == 0 {
		return 0, nil
	}

	created := 0
	for _, identityID := range identityIDs {
		n, matchErr := s.matchIdentity(ctx, identityID, tenders)
		if matchErr != nil {
			// 1人の失敗で残りの対象を止めない
			slog.Error("matching failed for identity",
				slog.String("identity_id", identityID),
				slog.String("error", matchErr.Error()),
			)
			continue
		}
		created += n
	}

	if s.collector != nil && created > 0 {
		s.collector.RecordNotificationsCreated(created)
	}

	slog.Info("matching batch completed",
		slog.Int("identities", len(identityIDs)),
		slog.Int("tenders", len(tenders)),
		slog.Int("notifications", created),
	)

	return created, nil
}

// matchIdentity は1人のIdentityに対するマッチングを実行する。
func (s *Service) matchIdentity(ctx context.Context, identityID string, tenders []*model.Tender) (int, error) {
	profile, err := s.profileRepo.FetchByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to fetch profile: %w", err)
	}

	created := 0
	for _, t := range tenders {
		score := tender.MatchScore(profile, t)
		if score < s.config.MatchThreshold {
			continue
		}

		notification := &model.Notification{
			ID:         uuid.New().String(),
			IdentityID: identityID,
			TenderID:   t.ID,
			Title:      t.Title,
			MatchScore: score,
			CreatedAt:  time.Now(),
		}

		inserted, err := s.notificationRepo.Create(ctx, notification)
		if err != nil {
			return created, fmt.Errorf("failed to create notification: %w", err)
		}
		// 既存の通知はスキップされるため、新規挿入だけを数える
		if inserted {
			created++
		}
	}

	return created, nil
}

// List はIdentityの通知一覧を作成日時の降順で返す。
func (s *Service) List(ctx context.Context, identityID string, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	notifications, err := s.notificationRepo.ListByIdentity(ctx, identityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead は通知を既読にする。
// 他人の通知や存在しない通知に対してはNOT_FOUNDとして扱う。
func (s *Service) MarkRead(ctx context.Context, identityID, notificationID string) error {
	updated, err := s.notificationRepo.MarkRead(ctx, identityID, notificationID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !updated {
		return model.NewNotificationNotFoundError(notificationID)
	}
	return nil
}

// CountUnread はIdentityの未読通知数を返す。
func (s *Service) CountUnread(ctx context.Context, identityID string) (int, error) {
	count, err := s.notificationRepo.CountUnread(ctx, identityID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
