package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Auth provider
	AuthProviderURL string // ホステッド認証サービスのエンドポイントURL
	AuthProviderKey string // 認証サービスの公開APIキー

	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int

	// Ingest
	IngestTimeout       time.Duration
	IngestMaxSize       int64
	IngestMaxConcurrent int
	IngestInterval      time.Duration
	IngestFeedURLs      []string // 追加の調達RSS/AtomフィードURL（カンマ区切り）

	// Matching
	MatchInterval  time.Duration
	MatchThreshold int

	// Signup
	ProfilePollAttempts int           // プロファイル行の出現待ちポーリング回数
	ProfilePollInitial  time.Duration // ポーリングの初回待ち時間（以後2倍ずつ）

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Retention
	NotificationRetentionDays int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。起動側はこのエラーを致命的として扱う。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.AuthProviderURL = os.Getenv("AUTH_PROVIDER_URL")
	if cfg.AuthProviderURL == "" {
		missing = append(missing, "AUTH_PROVIDER_URL")
	}

	cfg.AuthProviderKey = os.Getenv("AUTH_PROVIDER_KEY")
	if cfg.AuthProviderKey == "" {
		missing = append(missing, "AUTH_PROVIDER_KEY")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.IngestTimeout = getEnvDuration("INGEST_TIMEOUT", 15*time.Second)
	cfg.IngestMaxSize = getEnvInt64("INGEST_MAX_SIZE", 5242880)
	cfg.IngestMaxConcurrent = getEnvInt("INGEST_MAX_CONCURRENT", 5)
	cfg.IngestInterval = getEnvDuration("INGEST_INTERVAL", 30*time.Minute)
	cfg.IngestFeedURLs = getEnvList("INGEST_FEED_URLS")
	cfg.MatchInterval = getEnvDuration("MATCH_INTERVAL", 10*time.Minute)
	cfg.MatchThreshold = getEnvInt("MATCH_THRESHOLD", 60)
	cfg.ProfilePollAttempts = getEnvInt("PROFILE_POLL_ATTEMPTS", 5)
	cfg.ProfilePollInitial = getEnvDuration("PROFILE_POLL_INITIAL", 200*time.Millisecond)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.NotificationRetentionDays = getEnvInt("NOTIFICATION_RETENTION_DAYS", 90)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
