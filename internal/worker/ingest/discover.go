package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// feedContentTypes はフィードとして認識するContent-Typeのリスト。
var feedContentTypes = []string{
	"application/rss+xml",
	"application/atom+xml",
	"text/xml",
	"application/xml",
}

// discoverMaxBody は自動検出時に読み取るHTMLの上限サイズ。
const discoverMaxBody = 256 * 1024

// ResolveFeedURL は設定された調達ポータルURLをフィードURLに解決する。
// URL自体がフィードを返す場合はそのまま返し、HTMLページの場合は
// headタグのalternateリンクからRSS/AtomフィードのURLを自動検出する。
func ResolveFeedURL(
	ctx context.Context,
	ssrfGuard SSRFValidator,
	rawURL string,
	timeout time.Duration,
	maxBodySize int64,
) (string, error) {
	if err := ssrfGuard.ValidateURL(rawURL); err != nil {
		return "", fmt.Errorf("SSRF validation failed: %w", err)
	}

	client := ssrfGuard.NewSafeClient(timeout, maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Przetargo/1.0 Tender Monitor")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	if isFeedContentType(resp.Header.Get("Content-Type")) {
		return rawURL, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, discoverMaxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	feedURL := parseFeedLink(body, rawURL)
	if feedURL == "" {
		return "", fmt.Errorf("no feed link found at %s", rawURL)
	}

	if err := ssrfGuard.ValidateURL(feedURL); err != nil {
		return "", fmt.Errorf("SSRF validation failed for discovered feed: %w", err)
	}
	return feedURL, nil
}

// isFeedContentType はContent-TypeがRSS/Atom/XMLかどうかを判定する。
func isFeedContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)

	for _, feedCT := range feedContentTypes {
		if mediaType == feedCT {
			return true
		}
	}
	return false
}

// parseFeedLink はHTMLのheadタグから最初のRSS/Atomリンクを検出する。
// 相対URLはbaseURLを基準に絶対URLに解決される。
func parseFeedLink(htmlBody []byte, baseURL string) string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))
	inHead := false

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			if tagName == "head" {
				inHead = true
				continue
			}
			if tagName == "body" {
				// bodyに入ったらheadの解析を終了
				return ""
			}
			if !inHead || tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" {
				continue
			}
			if linkType != "application/rss+xml" && linkType != "application/atom+xml" {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			return baseU.ResolveReference(ref).String()

		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "head" {
				return ""
			}
		}
	}
}
