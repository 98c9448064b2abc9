package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/profile"
)

// ProfileServiceInterface はプロファイルハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Get は指定Identityのプロファイルを取得する。
	Get(ctx context.Context, identityID string) (*model.Profile, error)
	// Update はプロファイルを部分更新する。
	Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error)
}

// ProfileHandler は事業者プロファイルのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// profileResponse はプロファイルのAPIレスポンス。
type profileResponse struct {
	ID                string `json:"id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Phone             string `json:"phone"`
	NIP               string `json:"nip"`
	CompanyName       string `json:"company_name"`
	Website           string `json:"website"`
	CompanySize       string `json:"company_size"`
	TenderDescription string `json:"tender_description"`
}

// profilePatchRequest はプロファイル部分更新のリクエストボディ。
// nilフィールドは変更しない。
type profilePatchRequest struct {
	FirstName         *string `json:"first_name,omitempty"`
	LastName          *string `json:"last_name,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	NIP               *string `json:"nip,omitempty"`
	CompanyName       *string `json:"company_name,omitempty"`
	Website           *string `json:"website,omitempty"`
	CompanySize       *string `json:"company_size,omitempty"`
	TenderDescription *string `json:"tender_description,omitempty"`
}

// GetProfile は現在のIdentityのプロファイルを取得する。
// GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	prof, err := h.service.Get(r.Context(), identityID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(prof))
}

// UpdateProfile はプロファイルを部分更新する。
// PATCH /api/profile
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req profilePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	patch := model.ProfilePatch{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		NIP:               req.NIP,
		CompanyName:       req.CompanyName,
		Website:           req.Website,
		TenderDescription: req.TenderDescription,
	}
	if req.CompanySize != nil {
		size := model.CompanySize(*req.CompanySize)
		patch.CompanySize = &size
	}

	updated, err := h.service.Update(r.Context(), identityID, patch)
	if err != nil {
		var updErr *profile.UpdateError
		if errors.As(err, &updErr) {
			middleware.WriteValidationErrorResponse(w, fieldErrorMap(updErr.Fields))
			return
		}
		handleServiceError(w, err)
		return
	}

	// ストア上のスナップショットも即時反映する
	if store, ok := middleware.StoreFromContext(r.Context()); ok {
		store.SetProfile(updated)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toProfileResponse(updated))
}

// toProfileResponse はmodel.ProfileをAPIレスポンスに変換する。
func toProfileResponse(prof *model.Profile) profileResponse {
	return profileResponse{
		ID:                prof.ID,
		FirstName:         prof.FirstName,
		LastName:          prof.LastName,
		Phone:             prof.Phone,
		NIP:               prof.NIP,
		CompanyName:       prof.CompanyName,
		Website:           prof.Website,
		CompanySize:       string(prof.CompanySize),
		TenderDescription: prof.TenderDescription,
	}
}
