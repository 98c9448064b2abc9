package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRFMiddleware_SafeMethodSetsCookie(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}

	var found bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == csrfCookieName {
			found = true
			if cookie.Value == "" {
				t.Error("CSRFトークンが空")
			}
			if cookie.HttpOnly {
				t.Error("CSRFトークンCookieはフロントエンドから読み取れる必要がある")
			}
		}
	}
	if !found {
		t.Error("CSRFトークンCookieが設定されていない")
	}
}

func TestCSRFMiddleware_SafeMethodKeepsExistingCookie(t *testing.T) {
	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == csrfCookieName {
			t.Error("既存トークンがあるのにCookieが再設定された")
		}
	}
}

func TestCSRFMiddleware_MutatingMethodValidation(t *testing.T) {
	tests := []struct {
		name        string
		cookieToken string
		headerToken string
		wantStatus  int
	}{
		{
			name:        "一致するトークン",
			cookieToken: "token-abc",
			headerToken: "token-abc",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "Cookieなし",
			cookieToken: "",
			headerToken: "token-abc",
			wantStatus:  http.StatusForbidden,
		},
		{
			name:        "ヘッダーなし",
			cookieToken: "token-abc",
			headerToken: "",
			wantStatus:  http.StatusForbidden,
		},
		{
			name:        "不一致",
			cookieToken: "token-abc",
			headerToken: "token-xyz",
			wantStatus:  http.StatusForbidden,
		},
	}

	handler := NewCSRFMiddleware(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/watches", nil)
			if tt.cookieToken != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookieToken})
			}
			if tt.headerToken != "" {
				req.Header.Set(csrfHeaderName, tt.headerToken)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCSRFTokenHandler_GeneratesToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	token := body["token"]
	if len(token) != 64 { // 32バイトのhexエンコード
		t.Errorf("トークン長 = %d, want 64", len(token))
	}

	// レスポンスのトークンとCookieのトークンが一致する
	var cookieToken string
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == csrfCookieName {
			cookieToken = cookie.Value
		}
	}
	if cookieToken != token {
		t.Errorf("Cookieのトークン = %q とレスポンスのトークン = %q が一致しない", cookieToken, token)
	}
}

func TestCSRFTokenHandler_ReturnsExistingToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("トークン = %q, want %q", body["token"], "existing-token")
	}
}
