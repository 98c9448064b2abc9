package tender

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/przetargo/api/internal/model"
)

func TestServiceGet_ReturnsTender(t *testing.T) {
	repo := &mockTenderRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Tender, error) {
			return &model.Tender{ID: id, Title: "Budowa drogi"}, nil
		},
	}
	service := NewService(repo)

	got, err := service.Get(context.Background(), "tender-1")
	if err != nil {
		t.Fatalf("Get でエラーが発生した: %v", err)
	}
	if got.ID != "tender-1" {
		t.Errorf("ID = %q, want %q", got.ID, "tender-1")
	}
}

func TestServiceGet_NotFound(t *testing.T) {
	service := NewService(&mockTenderRepo{})

	_, err := service.Get(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeTenderNotFound {
		t.Fatalf("エラー = %v, want %s", err, model.ErrCodeTenderNotFound)
	}
}

func TestServiceListRecent_ClampsLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "ゼロはデフォルト", limit: 0, wantLimit: defaultListLimit},
		{name: "負数はデフォルト", limit: -1, wantLimit: defaultListLimit},
		{name: "範囲内はそのまま", limit: 20, wantLimit: 20},
		{name: "上限超過は切り詰め", limit: 1000, wantLimit: maxListLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLimit int
			repo := &mockTenderRepo{
				listRecentFunc: func(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
					gotLimit = limit
					return nil, nil
				},
			}
			service := NewService(repo)

			if _, err := service.ListRecent(context.Background(), time.Time{}, tt.limit); err != nil {
				t.Fatalf("ListRecent でエラーが発生した: %v", err)
			}
			if gotLimit != tt.wantLimit {
				t.Errorf("リポジトリに渡されたlimit = %d, want %d", gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestServiceSearch_EmptyQueryReturnsNothing(t *testing.T) {
	searched := false
	repo := &mockTenderRepo{
		searchFunc: func(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
			searched = true
			return nil, nil
		},
	}
	service := NewService(repo)

	results, err := service.Search(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("Search でエラーが発生した: %v", err)
	}
	if results != nil {
		t.Errorf("結果 = %v, want nil", results)
	}
	if searched {
		t.Error("空クエリでリポジトリ検索が実行された")
	}
}

func TestServiceSearch_TrimsQuery(t *testing.T) {
	var gotQuery string
	repo := &mockTenderRepo{
		searchFunc: func(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
			gotQuery = query
			return []*model.Tender{{ID: "tender-1"}}, nil
		},
	}
	service := NewService(repo)

	results, err := service.Search(context.Background(), "  budowa  ", 10)
	if err != nil {
		t.Fatalf("Search でエラーが発生した: %v", err)
	}
	if gotQuery != "budowa" {
		t.Errorf("リポジトリに渡されたクエリ = %q, want %q", gotQuery, "budowa")
	}
	if len(results) != 1 {
		t.Errorf("結果件数 = %d, want 1", len(results))
	}
}
