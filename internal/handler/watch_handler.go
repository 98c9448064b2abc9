package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
)

// WatchlistServiceInterface はウォッチリストハンドラーが必要とするサービスインターフェース。
type WatchlistServiceInterface interface {
	// Add は公告をウォッチリストに追加する。既に存在する場合は既存のウォッチを返す。
	Add(ctx context.Context, identityID, tenderID string) (*model.TenderWatch, error)
	// List はIdentityのウォッチ一覧を公告情報付きで返す。
	List(ctx context.Context, identityID string) ([]model.TenderWatchWithTender, error)
	// UpdateStatus はウォッチの進行状態を更新する。
	UpdateStatus(ctx context.Context, identityID, watchID string, status model.WatchStatus) error
	// Remove はウォッチを削除する。
	Remove(ctx context.Context, identityID, watchID string) error
}

// WatchHandler はウォッチリストのHTTPハンドラー。
type WatchHandler struct {
	service WatchlistServiceInterface
}

// NewWatchHandler はWatchHandlerを生成する。
func NewWatchHandler(service WatchlistServiceInterface) *WatchHandler {
	return &WatchHandler{service: service}
}

// watchAddRequest はウォッチ追加リクエストのボディ。
type watchAddRequest struct {
	TenderID string `json:"tender_id"`
}

// watchStatusRequest はウォッチ状態更新リクエストのボディ。
type watchStatusRequest struct {
	Status string `json:"status"`
}

// watchResponse はウォッチのAPIレスポンス。
type watchResponse struct {
	ID         string    `json:"id"`
	TenderID   string    `json:"tender_id"`
	Status     string    `json:"status"`
	MatchScore int       `json:"match_score"`
	CreatedAt  time.Time `json:"created_at"`
}

// watchWithTenderResponse はウォッチと公告情報を結合したレスポンス。
type watchWithTenderResponse struct {
	watchResponse
	Tender tenderResponse `json:"tender"`
}

// watchListResponse はウォッチ一覧のレスポンス。
type watchListResponse struct {
	Watches []watchWithTenderResponse `json:"watches"`
}

// AddWatch は公告をウォッチリストに追加する。冪等。
// POST /api/watches
func (h *WatchHandler) AddWatch(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}
	if req.TenderID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "Pole tender_id jest wymagane.",
			Category: "validation",
			Action:   "Podaj identyfikator przetargu.",
		})
		return
	}

	watch, err := h.service.Add(r.Context(), identityID, req.TenderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(watchResponse{
		ID:         watch.ID,
		TenderID:   watch.TenderID,
		Status:     string(watch.Status),
		MatchScore: watch.MatchScore,
		CreatedAt:  watch.CreatedAt,
	})
}

// ListWatches はウォッチ一覧を取得する。
// GET /api/watches
func (h *WatchHandler) ListWatches(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	watches, err := h.service.List(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := watchListResponse{Watches: make([]watchWithTenderResponse, len(watches))}
	for i, ww := range watches {
		resp.Watches[i] = watchWithTenderResponse{
			watchResponse: watchResponse{
				ID:         ww.ID,
				TenderID:   ww.TenderID,
				Status:     string(ww.Status),
				MatchScore: ww.MatchScore,
				CreatedAt:  ww.CreatedAt,
			},
			Tender: toTenderResponse(&ww.Tender, false),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// UpdateWatchStatus はウォッチの進行状態を更新する。
// PATCH /api/watches/:id
func (h *WatchHandler) UpdateWatchStatus(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	watchID := chi.URLParam(r, "id")

	var req watchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdateStatus(r.Context(), identityID, watchID, model.WatchStatus(req.Status)); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveWatch はウォッチを削除する。
// DELETE /api/watches/:id
func (h *WatchHandler) RemoveWatch(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	watchID := chi.URLParam(r, "id")

	if err := h.service.Remove(r.Context(), identityID, watchID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
