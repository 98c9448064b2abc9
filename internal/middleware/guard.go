// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/session"
)

// SessionCookieName はセッションIDを保持するHTTP Only Cookieの名前。
const SessionCookieName = "session_id"

// guardLoadingTimeout はプロファイル取得完了を待つ上限。
// 超過した場合は取得中のまま通過させる(認証自体は確定している)。
const guardLoadingTimeout = 3 * time.Second

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	identityIDContextKey = contextKey("identity_id")
	snapshotContextKey   = contextKey("snapshot")
	storeContextKey      = contextKey("store")
	sessionIDContextKey  = contextKey("session_id")
)

// GuardConfig はルートガードの設定。
type GuardConfig struct {
	// SignInPath は未認証時のリダイレクト先。空の場合は"/zaloguj"。
	SignInPath string
}

// NewGuardMiddleware は保護ルート用のガードミドルウェアを返す。
// 認証状態は3値で扱う:
//   - 未認証: サインインページへリダイレクトする。元のパスはnextクエリで保持され、
//     サインイン成功後の復帰に使われる。
//   - 確認中(プロファイル取得が進行中): 取得完了を上限付きで待つ。
//     この間にリダイレクトは発生しない。
//   - 認証済み: Identity IDとSnapshotをコンテキストに注入して通過させる。
func NewGuardMiddleware(registry *session.Registry, config GuardConfig) func(next http.Handler) http.Handler {
	signInPath := config.SignInPath
	if signInPath == "" {
		signInPath = "/zaloguj"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, store, sessionID, ok := resolveSession(r, registry)
			if !ok {
				redirectToSignIn(w, r, signInPath)
				return
			}

			ctx := contextWithAuth(r.Context(), snap, store, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewAPIGuardMiddleware はAPIエンドポイント用のガードミドルウェアを返す。
// 未認証リクエストにはリダイレクトではなく401のJSONを返す。
func NewAPIGuardMiddleware(registry *session.Registry) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, store, sessionID, ok := resolveSession(r, registry)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "AUTH_REQUIRED",
					Message:  "Musisz być zalogowany.",
					Category: "auth",
					Action:   "Zaloguj się i spróbuj ponownie.",
				})
				return
			}

			ctx := contextWithAuth(r.Context(), snap, store, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// resolveSession はCookieからセッションを解決し、確認中の場合は完了を待つ。
// 認証できない場合はokがfalseになる。
func resolveSession(r *http.Request, registry *session.Registry) (session.Snapshot, *session.Store, string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return session.Snapshot{}, nil, "", false
	}

	store, err := registry.Lookup(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to look up session store",
			slog.String("error", err.Error()),
		)
		return session.Snapshot{}, nil, "", false
	}
	if store == nil {
		return session.Snapshot{}, nil, "", false
	}

	snap := store.Snapshot()
	if snap.Loading {
		snap = awaitLoaded(r.Context(), store, snap)
	}

	if !snap.Authenticated() {
		return session.Snapshot{}, nil, "", false
	}

	return snap, store, cookie.Value, true
}

// awaitLoaded はプロファイル取得の完了を上限付きで待つ。
// 上限超過・コンテキスト打ち切りの場合は最後に観測したSnapshotを返す。
func awaitLoaded(ctx context.Context, store *session.Store, last session.Snapshot) session.Snapshot {
	waitCtx, cancel := context.WithTimeout(ctx, guardLoadingTimeout)
	defer cancel()

	updates := store.Subscribe(waitCtx)
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return last
			}
			last = snap
			if !snap.Loading {
				return snap
			}
		case <-waitCtx.Done():
			return last
		}
	}
}

// redirectToSignIn はサインインページへリダイレクトする。
// 元のパスはnextクエリパラメータとして保持する。
func redirectToSignIn(w http.ResponseWriter, r *http.Request, signInPath string) {
	target := signInPath
	if r.URL.Path != "/" && r.URL.Path != signInPath {
		next := r.URL.Path
		if r.URL.RawQuery != "" {
			next += "?" + r.URL.RawQuery
		}
		target = fmt.Sprintf("%s?next=%s", signInPath, url.QueryEscape(next))
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// contextWithAuth は認証済みリクエストのコンテキストを構築する。
func contextWithAuth(ctx context.Context, snap session.Snapshot, store *session.Store, sessionID string) context.Context {
	ctx = context.WithValue(ctx, identityIDContextKey, snap.Identity.ID)
	ctx = context.WithValue(ctx, snapshotContextKey, snap)
	ctx = context.WithValue(ctx, storeContextKey, store)
	ctx = context.WithValue(ctx, sessionIDContextKey, sessionID)
	return ctx
}

// IdentityIDFromContext はリクエストコンテキストからIdentity IDを取得する。
// ガードミドルウェアを通過したリクエストでのみ有効。
func IdentityIDFromContext(ctx context.Context) (string, error) {
	identityID, ok := ctx.Value(identityIDContextKey).(string)
	if !ok || identityID == "" {
		return "", fmt.Errorf("identity ID not found in context")
	}
	return identityID, nil
}

// SnapshotFromContext はリクエストコンテキストから認証状態のSnapshotを取得する。
func SnapshotFromContext(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotContextKey).(session.Snapshot)
	return snap, ok
}

// StoreFromContext はリクエストコンテキストからStoreを取得する。
func StoreFromContext(ctx context.Context) (*session.Store, bool) {
	store, ok := ctx.Value(storeContextKey).(*session.Store)
	return store, ok && store != nil
}

// SessionIDFromContext はリクエストコンテキストからセッションIDを取得する。
func SessionIDFromContext(ctx context.Context) (string, error) {
	sessionID, ok := ctx.Value(sessionIDContextKey).(string)
	if !ok || sessionID == "" {
		return "", fmt.Errorf("session ID not found in context")
	}
	return sessionID, nil
}

// ContextWithIdentityID はコンテキストにIdentity IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentityID(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityIDContextKey, identityID)
}
