package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
)

// defaultTendersPerPage は公告一覧の1回の取得件数（デフォルト）。
const defaultTendersPerPage = 50

// TenderServiceInterface は公告ハンドラーが必要とするサービスインターフェース。
type TenderServiceInterface interface {
	// Get は公告詳細を返す。
	Get(ctx context.Context, id string) (*model.Tender, error)
	// ListRecent は公開日の新しい順に公告を返す。
	ListRecent(ctx context.Context, since time.Time, limit int) ([]*model.Tender, error)
	// Search はタイトル・発注者名・CPVコードに対する部分一致検索を行う。
	Search(ctx context.Context, query string, limit int) ([]*model.Tender, error)
}

// TenderHandler は公告のHTTPハンドラー。
type TenderHandler struct {
	service TenderServiceInterface
}

// NewTenderHandler はTenderHandlerを生成する。
func NewTenderHandler(service TenderServiceInterface) *TenderHandler {
	return &TenderHandler{service: service}
}

// tenderResponse は公告のAPIレスポンス。
type tenderResponse struct {
	ID                  string    `json:"id"`
	Source              string    `json:"source"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	OrganizationName    string    `json:"organization_name"`
	OrganizationContact string    `json:"organization_contact,omitempty"`
	OrganizationEmail   string    `json:"organization_email,omitempty"`
	OrganizationPhone   string    `json:"organization_phone,omitempty"`
	CPVCode             string    `json:"cpv_code"`
	Location            string    `json:"location"`
	Budget              string    `json:"budget,omitempty"`
	PublicationDate     time.Time `json:"publication_date"`
	SubmissionDeadline  time.Time `json:"submission_deadline"`
	Link                string    `json:"link"`
}

// tenderListResponse は公告一覧のレスポンス。
type tenderListResponse struct {
	Tenders []tenderResponse `json:"tenders"`
}

// ListTenders は公告一覧を取得する。
// GET /api/tenders?since=RFC3339&limit=n
func (h *TenderHandler) ListTenders(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "Parametr since musi być w formacie RFC 3339.",
				Category: "validation",
				Action:   "Popraw wartość parametru since.",
			})
			return
		}
		since = parsed
	}

	tenders, err := h.service.ListRecent(r.Context(), since, limitParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeTenderList(w, tenders)
}

// SearchTenders は公告を検索する。
// GET /api/tenders/search?q=xxx
func (h *TenderHandler) SearchTenders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "Parametr q jest wymagany.",
			Category: "validation",
			Action:   "Podaj frazę wyszukiwania.",
		})
		return
	}

	tenders, err := h.service.Search(r.Context(), query, limitParam(r))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeTenderList(w, tenders)
}

// GetTender は公告詳細を取得する。
// GET /api/tenders/:id
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	tenderID := chi.URLParam(r, "id")

	tender, err := h.service.Get(r.Context(), tenderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTenderResponse(tender, true))
}

// --- ヘルパー関数 ---

// limitParam はクエリからlimitを読み取る。未指定・不正値はデフォルトを返す。
func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultTendersPerPage
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultTendersPerPage
	}
	return n
}

func writeTenderList(w http.ResponseWriter, tenders []*model.Tender) {
	resp := tenderListResponse{Tenders: make([]tenderResponse, len(tenders))}
	for i, t := range tenders {
		// 一覧では本文を省いて転送量を抑える
		resp.Tenders[i] = toTenderResponse(t, false)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toTenderResponse はmodel.TenderをAPIレスポンスに変換する。
func toTenderResponse(t *model.Tender, includeBody bool) tenderResponse {
	resp := tenderResponse{
		ID:                 t.ID,
		Source:             t.Source,
		Title:              t.Title,
		OrganizationName:   t.OrganizationName,
		CPVCode:            t.CPVCode,
		Location:           t.Location,
		Budget:             t.Budget,
		PublicationDate:    t.PublicationDate,
		SubmissionDeadline: t.SubmissionDeadline,
		Link:               t.Link,
	}
	if includeBody {
		resp.Description = t.Description
		resp.OrganizationContact = t.OrganizationContact
		resp.OrganizationEmail = t.OrganizationEmail
		resp.OrganizationPhone = t.OrganizationPhone
	}
	return resp
}
