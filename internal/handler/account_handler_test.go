package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/przetargo/api/internal/middleware"
)

// mockAccountService はAccountServiceInterfaceの関数フィールド式モック。
type mockAccountService struct {
	withdrawFunc func(ctx context.Context, identityID string) error
}

func (m *mockAccountService) Withdraw(ctx context.Context, identityID string) error {
	if m.withdrawFunc != nil {
		return m.withdrawFunc(ctx, identityID)
	}
	return nil
}

func TestWithdrawAccount(t *testing.T) {
	var gotIdentityID string
	service := &mockAccountService{
		withdrawFunc: func(ctx context.Context, identityID string) error {
			gotIdentityID = identityID
			return nil
		},
	}
	h := NewAccountHandler(service)

	rec := httptest.NewRecorder()
	h.Withdraw(rec, authedRequest(http.MethodDelete, "/api/account", ""))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if gotIdentityID != "identity-1" {
		t.Errorf("identityID = %q, want %q", gotIdentityID, "identity-1")
	}

	// セッションCookieが失効していること
	var expired *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			expired = c
		}
	}
	if expired == nil || expired.MaxAge >= 0 || expired.Value != "" {
		t.Errorf("セッションCookieが失効していない: %+v", expired)
	}
}

func TestWithdrawAccount_WithoutIdentity(t *testing.T) {
	h := NewAccountHandler(&mockAccountService{})

	rec := httptest.NewRecorder()
	h.Withdraw(rec, httptest.NewRequest(http.MethodDelete, "/api/account", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestWithdrawAccount_ServiceFailure(t *testing.T) {
	service := &mockAccountService{
		withdrawFunc: func(ctx context.Context, identityID string) error {
			return errors.New("db down")
		},
	}
	h := NewAccountHandler(service)

	rec := httptest.NewRecorder()
	h.Withdraw(rec, authedRequest(http.MethodDelete, "/api/account", ""))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	// 失敗時はCookieを触らない
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			t.Errorf("失敗時にCookieが設定された: %+v", c)
		}
	}
}
