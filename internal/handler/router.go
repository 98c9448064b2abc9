package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/przetargo/api/internal/cpv"
	"github.com/przetargo/api/internal/metrics"
	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/session"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Registry          *session.Registry
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	Collector         metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// プロファイル
	ProfileService ProfileServiceInterface

	// 公告・ウォッチリスト
	TenderService    TenderServiceInterface
	WatchlistService WatchlistServiceInterface

	// 通知
	NotificationService NotificationServiceInterface

	// アカウント
	AccountService AccountServiceInterface

	// CPVカタログ
	CPVCatalog *cpv.Catalog

	// メトリクス公開用のレジストリ。nilの場合は/metricsを公開しない。
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging(外部設定) → CORS → Metrics
//
// ページ配信サブツリー(/dashboard)にはリダイレクト型のガード、
// JSON APIサブツリー(/api)には401型のガードを適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Collector != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Registry, deps.Collector, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	tenderHandler := NewTenderHandler(deps.TenderService)
	watchHandler := NewWatchHandler(deps.WatchlistService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	accountHandler := NewAccountHandler(deps.AccountService)
	cpvHandler := NewCPVHandler(deps.CPVCatalog)
	pageHandler := NewPageHandler()

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)

	// --- 稼働確認・メトリクス ---

	r.Get("/healthz", handleHealthz)
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証ルート ---
	// 未認証からのアクセスのため、ガードの外・IPごとのレート制限下に置く
	r.Route("/auth", func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Use(csrf)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- JSON API（ログイン必須）---
	r.Route("/api", func(r chi.Router) {
		// CSRFトークン取得はガードの外に置く
		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAPIGuardMiddleware(deps.Registry))
			r.Use(deps.RateLimiter.GeneralMiddleware())
			r.Use(csrf)

			// プロファイル
			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Patch("/", profileHandler.UpdateProfile)
			})

			// 公告
			r.Route("/tenders", func(r chi.Router) {
				r.Get("/", tenderHandler.ListTenders)
				r.Get("/search", tenderHandler.SearchTenders)
				r.Get("/{id}", tenderHandler.GetTender)
			})

			// ウォッチリスト
			r.Route("/watches", func(r chi.Router) {
				r.Post("/", watchHandler.AddWatch)
				r.Get("/", watchHandler.ListWatches)
				r.Patch("/{id}", watchHandler.UpdateWatchStatus)
				r.Delete("/{id}", watchHandler.RemoveWatch)
			})

			// 通知
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.ListNotifications)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Post("/{id}/read", notificationHandler.MarkNotificationRead)
			})

			// CPVカタログ
			r.Get("/cpv", cpvHandler.SearchCPV)

			// アカウント
			r.Delete("/account", accountHandler.Withdraw)
		})
	})

	// --- ページ配信（ログイン必須）---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewGuardMiddleware(deps.Registry, middleware.GuardConfig{}))

		r.Get("/dashboard", pageHandler.ServeDashboardPage)
		r.Get("/dashboard/*", pageHandler.ServeDashboardPage)
	})

	// --- 公開ページ ---
	// 既知のパス以外はトップへリダイレクトする
	r.Get("/*", pageHandler.ServePublicPage)

	return r
}

// handleHealthz は稼働確認エンドポイント。
// GET /healthz
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
