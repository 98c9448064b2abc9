package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/przetargo/api/internal/model"
)

// FeedSource はRSS/Atomフィードを公開する調達ポータルから公告を取得する。
// 地方自治体の入札情報ページなど、専用APIを持たないソースに使う。
type FeedSource struct {
	feedURL     string
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
}

// NewFeedSource はFeedSourceの新しいインスタンスを生成する。
func NewFeedSource(
	feedURL string,
	ssrfGuard SSRFValidator,
	timeout time.Duration,
	maxBodySize int64,
) *FeedSource {
	return &FeedSource{
		feedURL:     feedURL,
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// Name はSourceインターフェースを実装する。
// 同一ホストの複数フィードを区別できるよう、ホスト名をソース名に使う。
func (s *FeedSource) Name() string {
	parsed, err := url.Parse(s.feedURL)
	if err != nil || parsed.Host == "" {
		return "rss"
	}
	return "rss:" + parsed.Host
}

// Fetch はフィードを取得・パースしてParsedTenderに変換する。
func (s *FeedSource) Fetch(ctx context.Context) ([]model.ParsedTender, error) {
	if err := s.ssrfGuard.ValidateURL(s.feedURL); err != nil {
		return nil, fmt.Errorf("SSRF validation failed: %w", err)
	}

	client := s.ssrfGuard.NewSafeClient(s.timeout, s.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Przetargo/1.0 Tender Monitor")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: s.feedURL}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	parsed := make([]model.ParsedTender, 0, len(feed.Items))
	for _, item := range feed.Items {
		sourceID := item.GUID
		if sourceID == "" {
			sourceID = item.Link
		}
		if sourceID == "" {
			continue
		}

		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		}

		description := item.Content
		if description == "" {
			description = item.Description
		}

		organization := ""
		if item.Author != nil {
			organization = item.Author.Name
		}

		parsed = append(parsed, model.ParsedTender{
			SourceID:         sourceID,
			Title:            item.Title,
			Description:      description,
			OrganizationName: organization,
			PublicationDate:  published,
			Link:             item.Link,
		})
	}

	return parsed, nil
}
