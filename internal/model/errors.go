// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。メッセージはポーランド語。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, tender, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeNoIdentity         = "NO_IDENTITY"
	ErrCodeProfileNotFound    = "PROFILE_NOT_FOUND"
	ErrCodeTenderNotFound     = "TENDER_NOT_FOUND"
	ErrCodeWatchNotFound      = "WATCH_NOT_FOUND"
	ErrCodeNotifNotFound      = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidWatchStatus = "INVALID_WATCH_STATUS"
	ErrCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
)

// ErrProfileNotFound はプロファイル行が存在しないことを示すセンチネルエラー。
// プロバイダ側トリガーの実行前に参照した場合にも返る。
var ErrProfileNotFound = errors.New("profile not found")

// NewAuthError は認証失敗エラーを生成する。
// messageには翻訳済みのユーザー向けメッセージを渡す。
func NewAuthError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeAuthFailed,
		Message:  message,
		Category: "auth",
		Action:   "Sprawdź dane logowania i spróbuj ponownie.",
	}
}

// NewValidationError はフォーム検証エラーを生成する。
func NewValidationError() *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "Formularz zawiera błędy.",
		Category: "validation",
		Action:   "Popraw zaznaczone pola i wyślij formularz ponownie.",
	}
}

// NewNoIdentityError は未認証状態での操作エラーを生成する。
func NewNoIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeNoIdentity,
		Message:  "Brak zalogowanego użytkownika.",
		Category: "auth",
		Action:   "Zaloguj się ponownie.",
	}
}

// NewProfileNotFoundError はプロファイル未検出エラーを生成する。
func NewProfileNotFoundError(identityID string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  fmt.Sprintf("Nie znaleziono profilu dla konta: %s", identityID),
		Category: "auth",
		Action:   "Uzupełnij dane firmy w ustawieniach konta.",
	}
}

// NewTenderNotFoundError は公告未検出エラーを生成する。
func NewTenderNotFoundError(tenderID string) *APIError {
	return &APIError{
		Code:     ErrCodeTenderNotFound,
		Message:  fmt.Sprintf("Nie znaleziono przetargu: %s", tenderID),
		Category: "tender",
		Action:   "Sprawdź identyfikator przetargu.",
	}
}

// NewWatchNotFoundError はウォッチ未検出エラーを生成する。
func NewWatchNotFoundError(watchID string) *APIError {
	return &APIError{
		Code:     ErrCodeWatchNotFound,
		Message:  fmt.Sprintf("Nie znaleziono obserwowanego przetargu: %s", watchID),
		Category: "tender",
		Action:   "Odśwież listę obserwowanych przetargów.",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotifNotFound,
		Message:  fmt.Sprintf("Nie znaleziono powiadomienia: %s", notificationID),
		Category: "tender",
		Action:   "Odśwież listę powiadomień.",
	}
}

// NewInvalidWatchStatusError は無効な進行状態エラーを生成する。
func NewInvalidWatchStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWatchStatus,
		Message:  fmt.Sprintf("Nieprawidłowy status przetargu: %s", status),
		Category: "validation",
		Action:   "Dozwolone statusy: active, in_progress, won, lost.",
	}
}

// NewIdentityNotFoundError はIdentityが見つからない場合のエラーを生成する。
func NewIdentityNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeIdentityNotFound,
		Message:  "Nie znaleziono konta użytkownika.",
		Category: "auth",
		Action:   "Zaloguj się ponownie.",
	}
}
