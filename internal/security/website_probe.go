package security

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// probeTimeout は会社サイト到達確認のタイムアウト。
const probeTimeout = 5 * time.Second

// probeMaxSize は到達確認で読み込むレスポンスの最大サイズ（64KB）。
// 本文の内容には関心がなく、到達可否の判定だけを行う。
const probeMaxSize = 64 * 1024

// ProbeResult は会社サイト到達確認の結果。
type ProbeResult struct {
	Reachable  bool
	StatusCode int
	FinalURL   string // リダイレクト追跡後のURL
}

// WebsiteProberService は会社サイトの到達確認のインターフェース。
// 登録・プロファイル更新時に入力されたURLの実在性を非同期に確認する。
type WebsiteProberService interface {
	// Probe は指定URLへの到達可否を確認する。
	// 到達できない場合もエラーではなくReachable=falseの結果を返す。
	// SSRF検証に失敗した場合のみエラーを返す。
	Probe(ctx context.Context, siteURL string) (*ProbeResult, error)
}

// WebsiteProber はWebsiteProberServiceの実装。
type WebsiteProber struct {
	ssrfGuard SSRFGuardService
}

// NewWebsiteProber はWebsiteProberの新しいインスタンスを生成する。
func NewWebsiteProber(ssrfGuard SSRFGuardService) *WebsiteProber {
	return &WebsiteProber{ssrfGuard: ssrfGuard}
}

// Probe は指定URLへの到達可否を確認する。
// HEADを試行し、405等で拒否された場合はGETにフォールバックする。
func (p *WebsiteProber) Probe(ctx context.Context, siteURL string) (*ProbeResult, error) {
	if err := p.ssrfGuard.ValidateURL(siteURL); err != nil {
		return nil, err
	}

	client := p.ssrfGuard.NewSafeClient(probeTimeout, probeMaxSize)

	result := p.request(ctx, client, http.MethodHead, siteURL)
	if result.StatusCode == http.StatusMethodNotAllowed || result.StatusCode == http.StatusNotImplemented {
		result = p.request(ctx, client, http.MethodGet, siteURL)
	}

	return result, nil
}

// request は1回のHTTPリクエストを実行し、結果を判定する。
func (p *WebsiteProber) request(ctx context.Context, client *http.Client, method, siteURL string) *ProbeResult {
	req, err := http.NewRequestWithContext(ctx, method, siteURL, nil)
	if err != nil {
		slog.Warn("website probe: failed to build request",
			slog.String("url", siteURL),
			slog.String("error", err.Error()),
		)
		return &ProbeResult{Reachable: false}
	}
	req.Header.Set("User-Agent", "Przetargo/1.0 Website Check")

	resp, err := client.Do(req)
	if err != nil {
		slog.Info("website probe: unreachable",
			slog.String("url", siteURL),
			slog.String("error", err.Error()),
		)
		return &ProbeResult{Reachable: false}
	}
	defer resp.Body.Close()

	// 本文は判定に使わないが、接続を再利用できるよう読み捨てる
	io.CopyN(io.Discard, resp.Body, probeMaxSize)

	finalURL := siteURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &ProbeResult{
		Reachable:  resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
	}
}

// NormalizeWebsiteURL は会社サイトURLを正規化する。
// スキームのない入力にはhttps://を補う。パースできない場合は入力をそのまま返す。
func NormalizeWebsiteURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.Scheme == "" {
		return "https://" + rawURL
	}
	return rawURL
}
