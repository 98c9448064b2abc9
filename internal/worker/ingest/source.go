// Package ingest は公告ソースのバックグラウンド取り込み処理を提供する。
// スケジューラ、ソースハンドラー、リトライ/バックオフ戦略を含む。
package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/przetargo/api/internal/model"
)

// Source は1つの調達ソースからの公告取得インターフェース。
type Source interface {
	// Name はソースの識別名を返す。保存時のsourceカラムに使われる。
	Name() string
	// Fetch はソースから公告を取得してParsedTenderに変換する。
	Fetch(ctx context.Context) ([]model.ParsedTender, error)
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// TenderUpserter は公告のUPSERT処理のインターフェース。
type TenderUpserter interface {
	UpsertTenders(ctx context.Context, source string, parsed []model.ParsedTender) (int, error)
}
