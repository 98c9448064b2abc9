package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/przetargo/api/internal/cpv"
)

// defaultCPVResults はCPV検索の1回の取得件数（デフォルト）。
const defaultCPVResults = 20

// CPVHandler はCPVコード検索のHTTPハンドラー。
type CPVHandler struct {
	catalog *cpv.Catalog
}

// NewCPVHandler はCPVHandlerを生成する。
func NewCPVHandler(catalog *cpv.Catalog) *CPVHandler {
	return &CPVHandler{catalog: catalog}
}

// cpvCodeResponse はCPVコードのAPIレスポンス。
type cpvCodeResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// cpvListResponse はCPV検索結果のレスポンス。
type cpvListResponse struct {
	Codes []cpvCodeResponse `json:"codes"`
}

// SearchCPV はCPVコードをコード接頭辞または名称の部分一致で検索する。
// GET /api/cpv?q=xxx&limit=n
func (h *CPVHandler) SearchCPV(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := defaultCPVResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	codes := h.catalog.Search(query, limit)

	resp := cpvListResponse{Codes: make([]cpvCodeResponse, len(codes))}
	for i, c := range codes {
		resp.Codes[i] = cpvCodeResponse{Code: c.Code, Name: c.Name}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
