package ingest

import (
	"testing"
	"time"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		want       FetchResult
	}{
		{200, FetchResultOK},
		{304, FetchResultNotModified},
		{404, FetchResultStop},
		{410, FetchResultStop},
		{401, FetchResultStop},
		{403, FetchResultStop},
		{429, FetchResultBackoff},
		{500, FetchResultBackoff},
		{502, FetchResultBackoff},
		{503, FetchResultBackoff},
		{301, FetchResultUnknown},
		{418, FetchResultUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyHTTPStatus(tt.statusCode); got != tt.want {
			t.Errorf("ClassifyHTTPStatus(%d) = %v, want %v", tt.statusCode, got, tt.want)
		}
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		consecutiveErrors int
		want              time.Duration
	}{
		{0, 30 * time.Minute},
		{1, time.Hour},
		{2, 2 * time.Hour},
		{3, 4 * time.Hour},
		{4, 8 * time.Hour},
		{5, 12 * time.Hour}, // 16時間は上限で切り詰め
		{10, 12 * time.Hour},
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.consecutiveErrors); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.consecutiveErrors, got, tt.want)
		}
	}
}

func TestSourceState_BackoffProgression(t *testing.T) {
	st := &sourceState{}
	now := time.Now()

	if !st.due(now) {
		t.Fatal("初期状態のソースは試行対象のはず")
	}

	st.applyBackoff("http_503")
	if st.consecutiveErrors != 1 {
		t.Errorf("連続エラー回数 = %d, want 1", st.consecutiveErrors)
	}
	if st.due(now) {
		t.Error("バックオフ直後に試行対象になっている")
	}
	// 初回バックオフは30分
	remaining := time.Until(st.nextAttempt)
	if remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Errorf("次回試行までの遅延 = %v, want 約30分", remaining)
	}

	// バックオフ明けに試行対象へ戻る
	if !st.due(st.nextAttempt.Add(time.Second)) {
		t.Error("バックオフ明けに試行対象へ戻っていない")
	}
}

func TestSourceState_SuccessResetsBackoff(t *testing.T) {
	st := &sourceState{}
	st.applyBackoff("http_503")
	st.applyBackoff("http_503")

	st.applySuccess()

	if st.consecutiveErrors != 0 {
		t.Errorf("連続エラー回数 = %d, want 0", st.consecutiveErrors)
	}
	if !st.due(time.Now()) {
		t.Error("成功後に試行対象へ戻っていない")
	}
	if st.lastError != "" {
		t.Errorf("最終エラー = %q, want 空", st.lastError)
	}
}

func TestSourceState_StopIsTerminal(t *testing.T) {
	st := &sourceState{}
	st.applyStop("http_410")

	if st.due(time.Now().Add(365 * 24 * time.Hour)) {
		t.Error("停止済みソースが試行対象になっている")
	}
	if st.lastError != "http_410" {
		t.Errorf("最終エラー = %q, want %q", st.lastError, "http_410")
	}
}

func TestHTTPStatusError_Message(t *testing.T) {
	err := &HTTPStatusError{StatusCode: 503, URL: "https://example.gov.pl/rss"}
	want := "unexpected HTTP status 503 from https://example.gov.pl/rss"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
