package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
)

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAuthFailed, model.ErrCodeNoIdentity:
		return http.StatusUnauthorized
	case model.ErrCodeValidationFailed, model.ErrCodeInvalidWatchStatus:
		return http.StatusUnprocessableEntity
	case model.ErrCodeProfileNotFound, model.ErrCodeTenderNotFound,
		model.ErrCodeWatchNotFound, model.ErrCodeNotifNotFound,
		model.ErrCodeIdentityNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeUnauthorized は認証必須エンドポイントの401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "AUTH_REQUIRED",
		Message:  "Wymagane logowanie.",
		Category: "auth",
		Action:   "Zaloguj się, aby kontynuować.",
	})
}

// writeInvalidRequestBody はJSONボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "Nieprawidłowy format żądania.",
		Category: "validation",
		Action:   "Wyślij poprawny dokument JSON.",
	})
}
