package tender

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/przetargo/api/internal/model"
)

func parsedTender(sourceID, title string) model.ParsedTender {
	return model.ParsedTender{
		SourceID:         sourceID,
		Title:            title,
		Description:      "<p>Opis zamówienia</p>",
		OrganizationName: "Gmina Testowa",
		CPVCode:          "45000000-7",
		PublicationDate:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Link:             "https://ezamowienia.gov.pl/ogloszenie/1",
	}
}

func TestUpsertTenders_WritesAllFields(t *testing.T) {
	repo := &mockTenderRepo{}
	service := NewUpsertService(repo, markerSanitizer{})

	written, err := service.UpsertTenders(context.Background(), "ezamowienia", []model.ParsedTender{
		parsedTender("ocds-1", "Budowa drogi"),
	})
	if err != nil {
		t.Fatalf("UpsertTenders でエラーが発生した: %v", err)
	}
	if written != 1 {
		t.Errorf("書き込み件数 = %d, want 1", written)
	}
	if len(repo.upserted) != 1 {
		t.Fatalf("UPSERT回数 = %d, want 1", len(repo.upserted))
	}

	got := repo.upserted[0]
	if got.ID == "" {
		t.Error("IDが採番されていない")
	}
	if got.Source != "ezamowienia" || got.SourceID != "ocds-1" {
		t.Errorf("ソース識別子 = %s/%s", got.Source, got.SourceID)
	}
	if got.ContentHash == "" {
		t.Error("内容ハッシュが計算されていない")
	}
	if got.ContentHash != got.ComputeContentHash() {
		t.Error("内容ハッシュが保存フィールドから再計算した値と一致しない")
	}
}

func TestUpsertTenders_SanitizesDescription(t *testing.T) {
	repo := &mockTenderRepo{}
	service := NewUpsertService(repo, markerSanitizer{})

	p := parsedTender("ocds-1", "Budowa drogi")
	p.Description = "<script>alert(1)</script><p>Opis</p>"

	if _, err := service.UpsertTenders(context.Background(), "rss", []model.ParsedTender{p}); err != nil {
		t.Fatalf("UpsertTenders でエラーが発生した: %v", err)
	}

	if desc := repo.upserted[0].Description; strings.Contains(desc, "<script>") {
		t.Errorf("説明文がサニタイズされていない: %q", desc)
	}
}

func TestUpsertTenders_SkipsUnchangedRows(t *testing.T) {
	// 内容ハッシュが一致する行はリポジトリがfalseを返し、件数に含まれない
	repo := &mockTenderRepo{
		upsertFunc: func(ctx context.Context, tender *model.Tender) (bool, error) {
			return tender.SourceID == "ocds-2", nil
		},
	}
	service := NewUpsertService(repo, markerSanitizer{})

	written, err := service.UpsertTenders(context.Background(), "ezamowienia", []model.ParsedTender{
		parsedTender("ocds-1", "Budowa drogi"),
		parsedTender("ocds-2", "Remont mostu"),
	})
	if err != nil {
		t.Fatalf("UpsertTenders でエラーが発生した: %v", err)
	}
	if written != 1 {
		t.Errorf("書き込み件数 = %d, want 1", written)
	}
}

func TestUpsertTenders_SkipsIncompleteEntries(t *testing.T) {
	repo := &mockTenderRepo{}
	service := NewUpsertService(repo, markerSanitizer{})

	written, err := service.UpsertTenders(context.Background(), "rss", []model.ParsedTender{
		{SourceID: "", Title: "タイトルのみ"},
		{SourceID: "id-only", Title: ""},
		parsedTender("ocds-1", "Budowa drogi"),
	})
	if err != nil {
		t.Fatalf("UpsertTenders でエラーが発生した: %v", err)
	}
	if written != 1 {
		t.Errorf("書き込み件数 = %d, want 1", written)
	}
	if len(repo.upserted) != 1 {
		t.Errorf("UPSERT回数 = %d, want 1", len(repo.upserted))
	}
}

func TestUpsertTenders_StopsOnRepositoryError(t *testing.T) {
	repoErr := errors.New("connection reset")
	repo := &mockTenderRepo{
		upsertFunc: func(ctx context.Context, tender *model.Tender) (bool, error) {
			if tender.SourceID == "ocds-2" {
				return false, repoErr
			}
			return true, nil
		},
	}
	service := NewUpsertService(repo, markerSanitizer{})

	written, err := service.UpsertTenders(context.Background(), "ezamowienia", []model.ParsedTender{
		parsedTender("ocds-1", "Budowa drogi"),
		parsedTender("ocds-2", "Remont mostu"),
		parsedTender("ocds-3", "Dostawa sprzętu"),
	})
	if !errors.Is(err, repoErr) {
		t.Fatalf("リポジトリエラーが伝播していない: %v", err)
	}
	// エラー前に書き込んだ件数は返る
	if written != 1 {
		t.Errorf("書き込み件数 = %d, want 1", written)
	}
}

func TestUpsertTenders_EmptyInput(t *testing.T) {
	repo := &mockTenderRepo{}
	service := NewUpsertService(repo, markerSanitizer{})

	written, err := service.UpsertTenders(context.Background(), "rss", nil)
	if err != nil {
		t.Fatalf("UpsertTenders でエラーが発生した: %v", err)
	}
	if written != 0 {
		t.Errorf("書き込み件数 = %d, want 0", written)
	}
}
