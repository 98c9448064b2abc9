package tender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
)

// WatchlistService はウォッチリスト(「Moje przetargi」)のサービス層。
type WatchlistService struct {
	watchRepo   repository.WatchRepository
	tenderRepo  repository.TenderRepository
	profileRepo repository.ProfileRepository
}

// NewWatchlistService はWatchlistServiceの新しいインスタンスを生成する。
func NewWatchlistService(
	watchRepo repository.WatchRepository,
	tenderRepo repository.TenderRepository,
	profileRepo repository.ProfileRepository,
) *WatchlistService {
	return &WatchlistService{
		watchRepo:   watchRepo,
		tenderRepo:  tenderRepo,
		profileRepo: profileRepo,
	}
}

// Add は公告をウォッチリストに追加する。
// 既に同じ公告をウォッチしている場合は既存のウォッチを返す(冪等)。
// 追加時にプロファイルとの適合度を算出して保存する。
func (s *WatchlistService) Add(ctx context.Context, identityID, tenderID string) (*model.TenderWatch, error) {
	t, err := s.tenderRepo.FindByID(ctx, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tender: %w", err)
	}
	if t == nil {
		return nil, model.NewTenderNotFoundError(tenderID)
	}

	existing, err := s.watchRepo.FindByIdentityAndTender(ctx, identityID, tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find watch: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	score := s.matchScore(ctx, identityID, t)

	now := time.Now()
	watch := &model.TenderWatch{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		TenderID:   tenderID,
		Status:     model.WatchStatusActive,
		MatchScore: score,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.watchRepo.Create(ctx, watch); err != nil {
		return nil, fmt.Errorf("failed to create watch: %w", err)
	}

	slog.Info("tender watch created",
		slog.String("identity_id", identityID),
		slog.String("tender_id", tenderID),
		slog.Int("match_score", score),
	)

	return watch, nil
}

// List はウォッチ一覧を公告情報付きで返す。
func (s *WatchlistService) List(ctx context.Context, identityID string) ([]model.TenderWatchWithTender, error) {
	watches, err := s.watchRepo.ListByIdentityWithTender(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watches: %w", err)
	}
	return watches, nil
}

// UpdateStatus はウォッチの進行状態を更新する。
// 他人のウォッチに対する更新は存在しないものとして扱う。
func (s *WatchlistService) UpdateStatus(ctx context.Context, identityID, watchID string, status model.WatchStatus) error {
	if !model.ValidWatchStatus(status) {
		return model.NewInvalidWatchStatusError(string(status))
	}

	watch, err := s.watchRepo.FindByID(ctx, watchID)
	if err != nil {
		return fmt.Errorf("failed to find watch: %w", err)
	}
	if watch == nil || watch.IdentityID != identityID {
		return model.NewWatchNotFoundError(watchID)
	}

	if err := s.watchRepo.UpdateStatus(ctx, watchID, status); err != nil {
		return fmt.Errorf("failed to update watch status: %w", err)
	}

	return nil
}

// Remove はウォッチを取り除く。
// 他人のウォッチに対する削除は存在しないものとして扱う。
func (s *WatchlistService) Remove(ctx context.Context, identityID, watchID string) error {
	watch, err := s.watchRepo.FindByID(ctx, watchID)
	if err != nil {
		return fmt.Errorf("failed to find watch: %w", err)
	}
	if watch == nil || watch.IdentityID != identityID {
		return model.NewWatchNotFoundError(watchID)
	}

	if err := s.watchRepo.Delete(ctx, watchID); err != nil {
		return fmt.Errorf("failed to delete watch: %w", err)
	}

	return nil
}

// matchScore はプロファイルとの適合度を算出する。
// プロファイルが未作成の場合は0を返す(追加自体は妨げない)。
func (s *WatchlistService) matchScore(ctx context.Context, identityID string, t *model.Tender) int {
	profile, err := s.profileRepo.FetchByID(ctx, identityID)
	if err != nil {
		if !errors.Is(err, model.ErrProfileNotFound) {
			slog.Warn("failed to fetch profile for match score",
				slog.String("identity_id", identityID),
				slog.String("error", err.Error()),
			)
		}
		return 0
	}
	return MatchScore(profile, t)
}
