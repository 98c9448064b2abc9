// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/przetargo/api/internal/account"
	"github.com/przetargo/api/internal/auth"
	"github.com/przetargo/api/internal/config"
	"github.com/przetargo/api/internal/cpv"
	"github.com/przetargo/api/internal/database"
	"github.com/przetargo/api/internal/handler"
	"github.com/przetargo/api/internal/logger"
	"github.com/przetargo/api/internal/metrics"
	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/notify"
	"github.com/przetargo/api/internal/profile"
	"github.com/przetargo/api/internal/provider"
	"github.com/przetargo/api/internal/repository"
	"github.com/przetargo/api/internal/security"
	"github.com/przetargo/api/internal/session"
	"github.com/przetargo/api/internal/tender"
	"github.com/przetargo/api/internal/worker/cleanup"
	ingestpkg "github.com/przetargo/api/internal/worker/ingest"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	tenderRepo := repository.NewPostgresTenderRepo(db)
	watchRepo := repository.NewPostgresWatchRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. セッションレジストリの初期化
	sessionRegistry := session.NewRegistry(profileRepo, sessionRepo, collector, session.DefaultRegistryConfig())
	defer sessionRegistry.Stop()

	// 5. ドメインサービスの初期化
	providerClient := provider.NewClient(provider.Config{
		BaseURL: cfg.AuthProviderURL,
		APIKey:  cfg.AuthProviderKey,
		Metrics: collector,
	})
	authService := auth.NewService(
		providerClient, profileRepo, sessionRepo,
		auth.ServiceConfig{
			SessionMaxAge:       cfg.SessionMaxAge,
			ProfilePollAttempts: cfg.ProfilePollAttempts,
			ProfilePollInitial:  cfg.ProfilePollInitial,
		},
	)

	ssrfGuard := security.NewSSRFGuard()
	prober := security.NewWebsiteProber(ssrfGuard)
	profileService := profile.NewService(profileRepo, prober, collector, slog.Default())

	tenderService := tender.NewService(tenderRepo)
	watchlistService := tender.NewWatchlistService(watchRepo, tenderRepo, profileRepo)

	notifyService := notify.NewService(
		notificationRepo, repository.NewPostgresIdentityRepo(db), profileRepo, tenderRepo,
		collector, notify.ServiceConfig{MatchThreshold: cfg.MatchThreshold},
	)

	accountService := account.NewService(sessionRepo, watchRepo, notificationRepo, sessionRegistry)

	cpvCatalog, err := cpv.Load()
	if err != nil {
		return fmt.Errorf("failed to load CPV catalog: %w", err)
	}

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		Registry:          sessionRegistry,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterConfig(cfg)),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Collector: collector,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieSecure:  cfg.CookieSecure,
			CookieDomain:  cfg.CookieDomain,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ProfileService:      profileService,
		TenderService:       tenderService,
		WatchlistService:    watchlistService,
		NotificationService: notifyService,
		AccountService:      accountService,
		CPVCatalog:          cpvCatalog,
		MetricsGatherer:     registry,
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.NewLoggingMiddleware(slog.Default())(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 公告の取り込みスケジューラ、マッチングバッチ、クリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	identityRepo := repository.NewPostgresIdentityRepo(db)
	tenderRepo := repository.NewPostgresTenderRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 取り込みソースの初期化
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()
	upsertService := tender.NewUpsertService(tenderRepo, sanitizer)

	sources := []ingestpkg.Source{
		ingestpkg.NewEzamowieniaSource("", ssrfGuard, cfg.IngestTimeout, cfg.IngestMaxSize),
	}
	for _, rawURL := range cfg.IngestFeedURLs {
		// HTMLページが設定された場合はフィードURLを自動検出する
		resolveCtx, resolveCancel := context.WithTimeout(context.Background(), cfg.IngestTimeout)
		feedURL, err := ingestpkg.ResolveFeedURL(resolveCtx, ssrfGuard, rawURL, cfg.IngestTimeout, cfg.IngestMaxSize)
		resolveCancel()
		if err != nil {
			slog.Warn("feed URL resolution failed, using as-is",
				slog.String("url", rawURL),
				slog.String("error", err.Error()),
			)
			feedURL = rawURL
		}
		sources = append(sources, ingestpkg.NewFeedSource(feedURL, ssrfGuard, cfg.IngestTimeout, cfg.IngestMaxSize))
	}

	scheduler := ingestpkg.NewScheduler(
		sources, upsertService, collector, slog.Default(), cfg.IngestMaxConcurrent,
	)

	// 5. マッチングバッチの初期化
	notifyService := notify.NewService(
		notificationRepo, identityRepo, profileRepo, tenderRepo,
		collector, notify.ServiceConfig{MatchThreshold: cfg.MatchThreshold},
	)

	// 6. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.NotificationRetentionDays

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("ingest_interval", cfg.IngestInterval),
		slog.Duration("match_interval", cfg.MatchInterval),
		slog.Int("max_concurrent", cfg.IngestMaxConcurrent),
		slog.Int("sources", len(sources)),
	)

	// マッチングバッチをバックグラウンドで定期実行
	go runMatchLoop(ctx, notifyService, cfg.MatchInterval)

	// クリーンアップジョブを日次でバックグラウンド実行
	go runCleanupLoop(ctx, cleanupJob)

	// 取り込みスケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.IngestInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMatchLoop はマッチングバッチを定期実行する。
func runMatchLoop(ctx context.Context, notifyService *notify.Service, interval time.Duration) {
	run := func() {
		created, err := notifyService.RunMatch(ctx)
		if err != nil {
			slog.Error("match batch failed", slog.String("error", err.Error()))
			return
		}
		if created > 0 {
			slog.Info("match batch completed", slog.Int("notifications", created))
		}
	}

	// 起動直後に1回実行
	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// runCleanupLoop はクリーンアップジョブを日次で実行する。
func runCleanupLoop(ctx context.Context, job *cleanup.CleanupJob) {
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeed はサンプル公告データを投入する。ローカル開発用。
func runSeed(cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	tenderRepo := repository.NewPostgresTenderRepo(db)
	upsertService := tender.NewUpsertService(tenderRepo, security.NewContentSanitizer())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := tender.Seed(ctx, upsertService); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}

	slog.Info("seed data inserted")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// rateLimiterConfig は設定値(req/min)からレートリミッター設定(req/sec)を組み立てる。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rlCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rlCfg.GeneralRate = rateLimitPerSecond(cfg.RateLimitGeneral)
		rlCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitAuth > 0 {
		rlCfg.AuthRate = rateLimitPerSecond(cfg.RateLimitAuth)
		rlCfg.AuthBurst = cfg.RateLimitAuth
	}
	return rlCfg
}

func rateLimitPerSecond(perMinute int) rate.Limit {
	return rate.Limit(float64(perMinute) / 60.0)
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
