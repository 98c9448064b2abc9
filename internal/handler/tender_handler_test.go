package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/przetargo/api/internal/model"
)

// mockTenderService はTenderServiceInterfaceの関数フィールド式モック。
type mockTenderService struct {
	getFunc        func(ctx context.Context, id string) (*model.Tender, error)
	listRecentFunc func(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error)
	searchFunc     func(ctx context.Context, query string, limit int) ([]*model.Tender, error)
}

func (m *mockTenderService) Get(ctx context.Context, id string) (*model.Tender, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, model.NewTenderNotFoundError(id)
}

func (m *mockTenderService) ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
	if m.listRecentFunc != nil {
		return m.listRecentFunc(ctx, since, limit)
	}
	return nil, nil
}

func (m *mockTenderService) Search(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, limit)
	}
	return nil, nil
}

func sampleTender() *model.Tender {
	return &model.Tender{
		ID:                "tender-1",
		Source:            "ezamowienia",
		Title:             "Budowa drogi gminnej",
		Description:       "<p>Pełny opis zamówienia</p>",
		OrganizationName:  "Gmina Testowa",
		OrganizationEmail: "przetargi@gmina.pl",
		CPVCode:           "45000000-7",
		Location:          "Warszawa",
		PublicationDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestListTenders(t *testing.T) {
	var gotSince time.Time
	var gotLimit int
	service := &mockTenderService{
		listRecentFunc: func(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
			gotSince = since
			gotLimit = limit
			return []*model.Tender{sampleTender()}, nil
		},
	}
	h := NewTenderHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/tenders?since=2026-08-01T00:00:00Z&limit=20", nil)
	rec := httptest.NewRecorder()
	h.ListTenders(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
	if !gotSince.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v", gotSince)
	}
	if gotLimit != 20 {
		t.Errorf("limit = %d, want 20", gotLimit)
	}

	var resp tenderListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if len(resp.Tenders) != 1 {
		t.Fatalf("公告件数 = %d, want 1", len(resp.Tenders))
	}
	// 一覧では本文と連絡先を省く
	if resp.Tenders[0].Description != "" || resp.Tenders[0].OrganizationEmail != "" {
		t.Errorf("一覧レスポンスに詳細フィールドが含まれた: %+v", resp.Tenders[0])
	}
}

func TestListTenders_InvalidSince(t *testing.T) {
	h := NewTenderHandler(&mockTenderService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tenders?since=wczoraj", nil)
	rec := httptest.NewRecorder()
	h.ListTenders(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestListTenders_InvalidLimitFallsBack(t *testing.T) {
	var gotLimit int
	service := &mockTenderService{
		listRecentFunc: func(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	h := NewTenderHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/tenders?limit=duzo", nil)
	rec := httptest.NewRecorder()
	h.ListTenders(rec, req)

	if gotLimit != defaultTendersPerPage {
		t.Errorf("limit = %d, want %d", gotLimit, defaultTendersPerPage)
	}
}

func TestSearchTenders_RequiresQuery(t *testing.T) {
	h := NewTenderHandler(&mockTenderService{})

	req := httptest.NewRequest(http.MethodGet, "/api/tenders/search", nil)
	rec := httptest.NewRecorder()
	h.SearchTenders(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSearchTenders(t *testing.T) {
	var gotQuery string
	service := &mockTenderService{
		searchFunc: func(ctx context.Context, query string, limit int) ([]*model.Tender, error) {
			gotQuery = query
			return []*model.Tender{sampleTender()}, nil
		},
	}
	h := NewTenderHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/tenders/search?q=budowa", nil)
	rec := httptest.NewRecorder()
	h.SearchTenders(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotQuery != "budowa" {
		t.Errorf("クエリ = %q, want %q", gotQuery, "budowa")
	}
}

func TestGetTender_IncludesBody(t *testing.T) {
	service := &mockTenderService{
		getFunc: func(ctx context.Context, id string) (*model.Tender, error) {
			return sampleTender(), nil
		},
	}
	h := NewTenderHandler(service)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/tenders/tender-1", nil), "id", "tender-1")
	rec := httptest.NewRecorder()
	h.GetTender(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp tenderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if resp.Description == "" || resp.OrganizationEmail == "" {
		t.Errorf("詳細レスポンスに本文・連絡先が含まれていない: %+v", resp)
	}
}

func TestGetTender_NotFound(t *testing.T) {
	h := NewTenderHandler(&mockTenderService{})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/tenders/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()
	h.GetTender(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
