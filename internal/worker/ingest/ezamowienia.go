package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/przetargo/api/internal/model"
)

// DefaultEzamowieniaURL は公的調達ポータルの公告APIのURL。
const DefaultEzamowieniaURL = "https://ezamowienia.gov.pl/mo-board/api/v1/notice"

// ezamowieniaPageSize は1回の取得で要求する公告数。
const ezamowieniaPageSize = 50

// ezamowieniaNotice はAPIが返す公告1件の構造。
// マッピングに使わないフィールドは省略している。
type ezamowieniaNotice struct {
	NoticeNumber         string    `json:"noticeNumber"`
	PublicationDate      time.Time `json:"publicationDate"`
	OrderObject          string    `json:"orderObject"`
	CpvCode              string    `json:"cpvCode"`
	SubmittingOffersDate time.Time `json:"submittingOffersDate"`
	OrganizationName     string    `json:"organizationName"`
	OrganizationCity     string    `json:"organizationCity"`
	OrganizationProvince string    `json:"organizationProvince"`
	TenderID             string    `json:"tenderId"`
	HTMLBody             string    `json:"htmlBody"`
	ObjectID             string    `json:"objectId"`
}

// EzamowieniaSource は公的調達ポータルのAPIから公告を取得する。
type EzamowieniaSource struct {
	baseURL     string
	ssrfGuard   SSRFValidator
	timeout     time.Duration
	maxBodySize int64
	window      time.Duration // 取得対象とする公開日の遡り幅
}

// NewEzamowieniaSource はEzamowieniaSourceの新しいインスタンスを生成する。
// baseURLが空の場合はDefaultEzamowieniaURLを使用する。
func NewEzamowieniaSource(
	baseURL string,
	ssrfGuard SSRFValidator,
	timeout time.Duration,
	maxBodySize int64,
) *EzamowieniaSource {
	if baseURL == "" {
		baseURL = DefaultEzamowieniaURL
	}
	return &EzamowieniaSource{
		baseURL:     baseURL,
		ssrfGuard:   ssrfGuard,
		timeout:     timeout,
		maxBodySize: maxBodySize,
		window:      7 * 24 * time.Hour,
	}
}

// Name はSourceインターフェースを実装する。
func (s *EzamowieniaSource) Name() string {
	return "ezamowienia"
}

// Fetch は直近の契約公告を取得してParsedTenderに変換する。
func (s *EzamowieniaSource) Fetch(ctx context.Context) ([]model.ParsedTender, error) {
	now := time.Now()
	url := fmt.Sprintf("%s?PageSize=%d&NoticeType=ContractNotice&PublicationDateFrom=%s&PublicationDateTo=%s",
		s.baseURL,
		ezamowieniaPageSize,
		now.Add(-s.window).Format("2006-01-02"),
		now.Format("2006-01-02"),
	)

	if err := s.ssrfGuard.ValidateURL(url); err != nil {
		return nil, fmt.Errorf("SSRF validation failed: %w", err)
	}

	client := s.ssrfGuard.NewSafeClient(s.timeout, s.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", "Przetargo/1.0 Tender Monitor")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	var notices []ezamowieniaNotice
	if err := json.NewDecoder(io.LimitReader(resp.Body, s.maxBodySize)).Decode(&notices); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	parsed := make([]model.ParsedTender, 0, len(notices))
	for _, n := range notices {
		sourceID := n.ObjectID
		if sourceID == "" {
			sourceID = n.TenderID
		}
		if sourceID == "" {
			continue
		}

		parsed = append(parsed, model.ParsedTender{
			SourceID:           sourceID,
			Title:              n.OrderObject,
			Description:        n.HTMLBody,
			OrganizationName:   n.OrganizationName,
			CPVCode:            n.CpvCode,
			Location:           joinLocation(n.OrganizationCity, n.OrganizationProvince),
			PublicationDate:    n.PublicationDate,
			SubmissionDeadline: n.SubmittingOffersDate,
			Link:               fmt.Sprintf("https://ezamowienia.gov.pl/mp-client/search/list/%s", n.TenderID),
		})
	}

	return parsed, nil
}

// joinLocation は市と県をカンマ区切りで結合する。片方が空の場合は省略する。
func joinLocation(city, province string) string {
	parts := make([]string, 0, 2)
	if city != "" {
		parts = append(parts, city)
	}
	if province != "" {
		parts = append(parts, province)
	}
	return strings.Join(parts, ", ")
}
