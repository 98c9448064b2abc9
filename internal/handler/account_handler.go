package handler

import (
	"context"
	"net/http"

	"github.com/przetargo/api/internal/middleware"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Withdraw はアカウントの退会処理を実行する。
	// 通知、ウォッチ、セッションの順に削除し、メモリ上のストアを破棄する。
	// IdentityとProfileの削除はプロバイダ側のCASCADEに委ねる。
	Withdraw(ctx context.Context, identityID string) error
}

// AccountHandler はアカウント管理のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// Withdraw はアカウントの退会処理を実行する。
// DELETE /api/account
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	identityID, err := middleware.IdentityIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), identityID); err != nil {
		handleServiceError(w, err)
		return
	}

	// セッションCookieを失効させる
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}
