package ingest

import (
	"fmt"
	"time"
)

// HTTPStatusError は2xx以外のHTTPステータスによる取得失敗を表す。
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

// Error はerrorインターフェースを実装する。
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.StatusCode, e.URL)
}

// FetchResult はHTTPステータスコードに基づく取得結果の分類。
type FetchResult int

const (
	// FetchResultOK は取得成功（200）。
	FetchResultOK FetchResult = iota
	// FetchResultNotModified はコンテンツ未変更（304）。
	FetchResultNotModified
	// FetchResultStop は取り込み停止が必要なステータス（404/410/401/403）。
	FetchResultStop
	// FetchResultBackoff はバックオフが必要なステータス（429/5xx）。
	FetchResultBackoff
	// FetchResultUnknown は未知のステータスコード。
	FetchResultUnknown
)

const (
	// initialBackoff は指数バックオフの初回遅延（30分）。
	initialBackoff = 30 * time.Minute
	// maxBackoff は指数バックオフの最大遅延（12時間）。
	maxBackoff = 12 * time.Hour
)

// ClassifyHTTPStatus はHTTPステータスコードを取得結果に分類する。
func ClassifyHTTPStatus(statusCode int) FetchResult {
	switch {
	case statusCode == 200:
		return FetchResultOK
	case statusCode == 304:
		return FetchResultNotModified
	case statusCode == 404 || statusCode == 410:
		return FetchResultStop
	case statusCode == 401 || statusCode == 403:
		return FetchResultStop
	case statusCode == 429:
		return FetchResultBackoff
	case statusCode >= 500:
		return FetchResultBackoff
	default:
		return FetchResultUnknown
	}
}

// CalculateBackoff は連続エラー回数に基づいて指数バックオフ遅延を計算する。
// 初回30分、2倍ずつ増加、最大12時間。
func CalculateBackoff(consecutiveErrors int) time.Duration {
	delay := initialBackoff
	for i := 0; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// sourceState はソースごとのリトライ状態。スケジューラが保持する。
type sourceState struct {
	consecutiveErrors int
	nextAttempt       time.Time
	stopped           bool
	lastError         string
}

// applySuccess は取得成功時に状態をリセットする。
func (st *sourceState) applySuccess() {
	st.consecutiveErrors = 0
	st.nextAttempt = time.Time{}
	st.lastError = ""
}

// applyBackoff は連続エラー回数をインクリメントし、次回試行時刻を遅らせる。
func (st *sourceState) applyBackoff(reason string) {
	st.consecutiveErrors++
	st.lastError = reason
	st.nextAttempt = time.Now().Add(CalculateBackoff(st.consecutiveErrors - 1))
}

// applyStop はソースの取り込みを停止する。
func (st *sourceState) applyStop(reason string) {
	st.stopped = true
	st.lastError = reason
}

// due は現在時刻で取り込みを試行すべきかを返す。
func (st *sourceState) due(now time.Time) bool {
	return !st.stopped && !now.Before(st.nextAttempt)
}
