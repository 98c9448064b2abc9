// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSignIn(outcome string)
	RecordSignUp(outcome string)
	RecordProfileFetchFailure()
	RecordProviderLatency(operation string, duration time.Duration)
	RecordIngestSuccess(source string)
	RecordIngestFailure(source string, reason string)
	RecordTendersUpserted(count int)
	RecordNotificationsCreated(count int)
	RecordWebsiteProbe(outcome string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIn               *prometheus.CounterVec
	signUp               *prometheus.CounterVec
	profileFetchFail     prometheus.Counter
	providerLatency      *prometheus.HistogramVec
	ingestSuccess        *prometheus.CounterVec
	ingestFail           *prometheus.CounterVec
	tendersUpserted      prometheus.Counter
	notificationsCreated prometheus.Counter
	websiteProbe         *prometheus.CounterVec
	httpStatus           *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "przetargo_sign_in_total",
			Help: "サインイン試行の結果別合計数",
		}, []string{"outcome"}),
		signUp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "przetargo_sign_up_total",
			Help: "登録試行の結果別合計数",
		}, []string{"outcome"}),
		profileFetchFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "przetargo_profile_fetch_fail_total",
			Help: "プロファイル取得失敗の合計数",
		}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "przetargo_provider_latency_seconds",
			Help:    "認証プロバイダ呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		ingestSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "przetargo_ingest_success_total",
			Help: "公告取り込み成功のソース別合計数",
		}, []string{"source"}),
		ingestFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "przetargo_ingest_fail_total",
			Help: "公告取り込み失敗のソース・理由別合計数",
		}, []string{"source", "reason"}),
		tendersUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "przetargo_tenders_upserted_total",
			Help: "アップサートされた公告の合計数",
		}),
		notificationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "przetargo_notifications_created_total",
			Help: "作成されたマッチング通知の合計数",
		}),
		websiteProbe: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "przetargo_website_probe_total",
			Help: "会社サイト到達確認の結果別合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "przetargo_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signIn,
		c.signUp,
		c.profileFetchFail,
		c.providerLatency,
		c.ingestSuccess,
		c.ingestFail,
		c.tendersUpserted,
		c.notificationsCreated,
		c.websiteProbe,
		c.httpStatus,
	)

	return c
}

// RecordSignIn はサインイン試行の結果を記録する。
func (c *Collector) RecordSignIn(outcome string) {
	c.signIn.WithLabelValues(outcome).Inc()
}

// RecordSignUp は登録試行の結果を記録する。
func (c *Collector) RecordSignUp(outcome string) {
	c.signUp.WithLabelValues(outcome).Inc()
}

// RecordProfileFetchFailure はプロファイル取得失敗を記録する。
func (c *Collector) RecordProfileFetchFailure() {
	c.profileFetchFail.Inc()
}

// RecordProviderLatency はプロバイダ呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(operation string, duration time.Duration) {
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordIngestSuccess は公告取り込み成功を記録する。
func (c *Collector) RecordIngestSuccess(source string) {
	c.ingestSuccess.WithLabelValues(source).Inc()
}

// RecordIngestFailure は公告取り込み失敗を記録する。
func (c *Collector) RecordIngestFailure(source string, reason string) {
	c.ingestFail.WithLabelValues(source, reason).Inc()
}

// RecordTendersUpserted はアップサートされた公告数を記録する。
func (c *Collector) RecordTendersUpserted(count int) {
	c.tendersUpserted.Add(float64(count))
}

// RecordNotificationsCreated は作成された通知数を記録する。
func (c *Collector) RecordNotificationsCreated(count int) {
	c.notificationsCreated.Add(float64(count))
}

// RecordWebsiteProbe は会社サイト到達確認の結果を記録する。
func (c *Collector) RecordWebsiteProbe(outcome string) {
	c.websiteProbe.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
