package tender

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
)

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 50

// maxListLimit は一覧取得の上限件数。
const maxListLimit = 200

// Service は公告の閲覧・検索のサービス層。
type Service struct {
	tenderRepo repository.TenderRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(tenderRepo repository.TenderRepository) *Service {
	return &Service{tenderRepo: tenderRepo}
}

// Get は指定IDの公告を取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Tender, error) {
	t, err := s.tenderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find tender: %w", err)
	}
	if t == nil {
		return nil, model.NewTenderNotFoundError(id)
	}
	return t, nil
}

// ListRecent は公開日の新しい順に公告を取得する。
// sinceがゼロ値でない場合はそれ以降に公開されたものに限定する。
func (s *Service) ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
	limit = clampLimit(limit)

	tenders, err := s.tenderRepo.ListRecent(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenders: %w", err)
	}
	return tenders, nil
}

// Search はタイトル・発注者名・CPVコードに対する部分一致検索を行う。
// 空のクエリには空の結果を返す。
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	limit = clampLimit(limit)

	tenders, err := s.tenderRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tenders: %w", err)
	}
	return tenders, nil
}

// clampLimit はlimitをデフォルトと上限の範囲に収める。
func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
