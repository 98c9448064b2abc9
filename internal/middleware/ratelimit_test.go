package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(authBurst, generalBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		AuthRate:        rate.Limit(1.0 / 60.0),
		AuthBurst:       authBurst,
		CleanupInterval: time.Hour,
	}
}

func TestAuthMiddleware_LimitsPerIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 10))
	defer rl.Stop()

	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// バースト分は通過する
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "192.0.2.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("リクエスト%d: ステータスコード = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	// バースト超過分は429
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーが設定されていない")
	}
}

func TestAuthMiddleware_SeparateLimitsPerIP(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 10))
	defer rl.Stop()

	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 1つ目のIPがバーストを使い切る
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	// 別のIPは影響を受けない
	req2 := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req2.RemoteAddr = "192.0.2.2:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req2)

	if rec.Code != http.StatusOK {
		t.Errorf("別IPのステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}
	if rl.AuthLimiterCount() != 2 {
		t.Errorf("認証リミッター数 = %d, want 2", rl.AuthLimiterCount())
	}
}

func TestGeneralMiddleware_LimitsPerIdentity(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 2))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(identityID string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
		req = req.WithContext(ContextWithIdentityID(req.Context(), identityID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("identity-1"); code != http.StatusOK {
		t.Fatalf("1回目のステータスコード = %d, want %d", code, http.StatusOK)
	}
	if code := send("identity-1"); code != http.StatusOK {
		t.Fatalf("2回目のステータスコード = %d, want %d", code, http.StatusOK)
	}
	if code := send("identity-1"); code != http.StatusTooManyRequests {
		t.Fatalf("3回目のステータスコード = %d, want %d", code, http.StatusTooManyRequests)
	}

	// 別Identityは独立したバジェットを持つ
	if code := send("identity-2"); code != http.StatusOK {
		t.Errorf("別Identityのステータスコード = %d, want %d", code, http.StatusOK)
	}
}

func TestGeneralMiddleware_RejectsWithoutIdentity(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Identity IDのないリクエストがハンドラに到達した")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ステータスコード = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(1),
		GeneralBurst:    1,
		AuthRate:        rate.Limit(1),
		AuthBurst:       1,
		CleanupInterval: 10 * time.Millisecond,
	})
	defer rl.Stop()

	handler := rl.AuthMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.0.2.1:12345"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if rl.AuthLimiterCount() != 1 {
		t.Fatalf("認証リミッター数 = %d, want 1", rl.AuthLimiterCount())
	}

	// TTL(2×interval)超過後にバックグラウンドで削除される
	deadline := time.Now().Add(time.Second)
	for rl.AuthLimiterCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if rl.AuthLimiterCount() != 0 {
		t.Errorf("アイドルエントリが削除されなかった: エントリ数 = %d", rl.AuthLimiterCount())
	}
}
