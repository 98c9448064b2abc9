// Package tender は公告の取り込み・検索・マッチングのドメインロジックを提供する。
package tender

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
	"github.com/przetargo/api/internal/security"
)

// UpsertService はソースから取得した公告のUPSERT処理を提供する。
// (source, source_id)で同一性を判定し、内容ハッシュが一致する場合は
// 書き込みをスキップする。
type UpsertService struct {
	tenderRepo repository.TenderRepository
	sanitizer  security.ContentSanitizerService
}

// NewUpsertService はUpsertServiceの新しいインスタンスを生成する。
func NewUpsertService(
	tenderRepo repository.TenderRepository,
	sanitizer security.ContentSanitizerService,
) *UpsertService {
	return &UpsertService{
		tenderRepo: tenderRepo,
		sanitizer:  sanitizer,
	}
}

// UpsertTenders はソースから取得した公告をUPSERTする。
// 説明文は保存前にサニタイズされる。
// 戻り値は書き込まれた件数(内容変更なしでスキップされたものは含まない)。
func (s *UpsertService) UpsertTenders(
	ctx context.Context,
	source string,
	parsed []model.ParsedTender,
) (written int, err error) {
	if len(parsed) == 0 {
		return 0, nil
	}

	now := time.Now()

	for _, p := range parsed {
		if p.SourceID == "" || p.Title == "" {
			slog.Warn("skipping tender without source ID or title",
				slog.String("source", source),
				slog.String("link", p.Link),
			)
			continue
		}

		t := &model.Tender{
			ID:                  uuid.New().String(),
			Source:              source,
			SourceID:            p.SourceID,
			Title:               p.Title,
			Description:         s.sanitizer.Sanitize(p.Description),
			OrganizationName:    p.OrganizationName,
			OrganizationContact: p.OrganizationContact,
			OrganizationEmail:   p.OrganizationEmail,
			OrganizationPhone:   p.OrganizationPhone,
			CPVCode:             p.CPVCode,
			Location:            p.Location,
			Budget:              p.Budget,
			PublicationDate:     p.PublicationDate,
			SubmissionDeadline:  p.SubmissionDeadline,
			Link:                p.Link,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		t.ContentHash = t.ComputeContentHash()

		changed, upsertErr := s.tenderRepo.Upsert(ctx, t)
		if upsertErr != nil {
			return written, fmt.Errorf("failed to upsert tender %s/%s: %w", source, p.SourceID, upsertErr)
		}
		if changed {
			written++
		}
	}

	return written, nil
}
