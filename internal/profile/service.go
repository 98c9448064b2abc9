// Package profile は事業者プロファイルの取得・更新を提供する。
// プロファイル行の作成はプロバイダ側トリガーの責務であり、
// このパッケージは既存行の読み取りと部分更新のみを扱う。
package profile

import (
	"context"
	"log/slog"

	"github.com/przetargo/api/internal/metrics"
	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/repository"
	"github.com/przetargo/api/internal/security"
	"github.com/przetargo/api/internal/validation"
)

// UpdateError はプロファイル更新フォームの検証失敗を表す。
type UpdateError struct {
	Fields validation.FieldErrors
}

// Error はerrorインターフェースを実装する。
func (e *UpdateError) Error() string {
	return "profile update validation failed"
}

// Service はプロファイルのビジネスロジックを提供する。
type Service struct {
	profileRepo repository.ProfileRepository
	prober      security.WebsiteProberService
	collector   metrics.MetricsCollector
	logger      *slog.Logger
}

// NewService はServiceを生成する。proberとcollectorはnilでもよい
// (プローブまたはメトリクス記録をスキップする)。
func NewService(
	profileRepo repository.ProfileRepository,
	prober security.WebsiteProberService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		profileRepo: profileRepo,
		prober:      prober,
		collector:   collector,
		logger:      logger,
	}
}

// Get は指定Identityのプロファイルを取得する。
func (s *Service) Get(ctx context.Context, identityID string) (*model.Profile, error) {
	prof, err := s.profileRepo.FetchByID(ctx, identityID)
	if err != nil {
		if err == model.ErrProfileNotFound {
			return nil, model.NewProfileNotFoundError(identityID)
		}
		return nil, err
	}
	return prof, nil
}

// Update はプロファイルを部分更新する。
// パッチに含まれるフィールドのみ検証し、全違反をまとめて返す。
// ウェブサイトが変更された場合は非同期のベストエフォートで到達性を確認する。
func (s *Service) Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	if patch.IsEmpty() {
		return s.Get(ctx, identityID)
	}

	if patch.Website != nil && *patch.Website != "" {
		normalized := security.NormalizeWebsiteURL(*patch.Website)
		patch.Website = &normalized
	}

	if fields := validatePatch(patch); len(fields) > 0 {
		return nil, &UpdateError{Fields: fields}
	}

	updated, err := s.profileRepo.UpdateByID(ctx, identityID, patch)
	if err != nil {
		if err == model.ErrProfileNotFound {
			return nil, model.NewProfileNotFoundError(identityID)
		}
		return nil, err
	}

	if patch.Website != nil && *patch.Website != "" && s.prober != nil {
		go s.probeWebsite(*patch.Website)
	}

	return updated, nil
}

// probeWebsite はウェブサイトの到達性をベストエフォートで確認する。
// 結果はログとメトリクスに記録するのみで、更新の成否には影響しない。
func (s *Service) probeWebsite(siteURL string) {
	result, err := s.prober.Probe(context.Background(), siteURL)
	if err != nil {
		s.recordProbe("error")
		s.logger.Info("website probe failed",
			slog.String("url", siteURL),
			slog.String("error", err.Error()),
		)
		return
	}
	if result.Reachable {
		s.recordProbe("reachable")
	} else {
		s.recordProbe("unreachable")
	}
	s.logger.Info("website probe completed",
		slog.String("url", siteURL),
		slog.Bool("reachable", result.Reachable),
		slog.Int("status_code", result.StatusCode),
	)
}

func (s *Service) recordProbe(outcome string) {
	if s.collector != nil {
		s.collector.RecordWebsiteProbe(outcome)
	}
}

// validatePatch はパッチに含まれるフィールドのみ検証する。
func validatePatch(patch model.ProfilePatch) validation.FieldErrors {
	fields := make(validation.FieldErrors)

	if patch.Phone != nil && *patch.Phone != "" {
		if msg := validation.ValidatePhone(*patch.Phone); msg != "" {
			fields[validation.FieldPhone] = msg
		}
	}
	if patch.NIP != nil && *patch.NIP != "" {
		if msg := validation.ValidateNIP(*patch.NIP); msg != "" {
			fields[validation.FieldNIP] = msg
		}
	}
	if patch.Website != nil && *patch.Website != "" {
		if msg := validation.ValidateWebsite(*patch.Website); msg != "" {
			fields[validation.FieldWebsite] = msg
		}
	}
	if patch.CompanySize != nil && !patch.CompanySize.Valid() {
		fields[validation.FieldCompanySize] = "Wybierz wielkość firmy z listy."
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}
