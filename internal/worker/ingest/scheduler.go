package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/przetargo/api/internal/metrics"
)

// Scheduler は公告取り込みのスケジューリングと並列制御を行う。
// 一定間隔のティッカーで全ソースを巡回し、semaphoreパターンで
// 最大並列数を制御しながら取得を実行する。
// ソースごとにバックオフ状態を保持し、失敗が続くソースの試行間隔を広げる。
type Scheduler struct {
	sources        []Source
	upserter       TenderUpserter
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int

	mu     sync.Mutex
	states map[string]*sourceState
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	sources []Source,
	upserter TenderUpserter,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		sources:        sources,
		upserter:       upserter,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		states:         make(map[string]*sourceState),
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ingest scheduler started",
		slog.Duration("interval", interval),
		slog.Int("sources", len(s.sources)),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ingest scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は試行対象の全ソースを1回巡回する。
// semaphoreパターンで並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	due := s.dueSources(start)
	if len(due) == 0 {
		return
	}

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, source := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(src Source) {
			defer wg.Done()
			defer func() { <-sem }()

			s.ingestSource(ctx, src)
		}(source)
	}

	wg.Wait()

	s.logger.Info("ingest cycle completed",
		slog.Int("sources", len(due)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}

// ingestSource は1つのソースを取得してUPSERTする。
// 失敗はステータスに応じてバックオフまたは停止として記録する。
func (s *Scheduler) ingestSource(ctx context.Context, source Source) {
	name := source.Name()

	parsed, err := source.Fetch(ctx)
	if err != nil {
		s.recordFailure(name, err)
		return
	}

	written, err := s.upserter.UpsertTenders(ctx, name, parsed)
	if err != nil {
		s.logger.Error("tender upsert failed",
			slog.String("source", name),
			slog.String("error", err.Error()),
		)
		if s.collector != nil {
			s.collector.RecordIngestFailure(name, "upsert")
		}
		return
	}

	st := s.state(name)
	s.mu.Lock()
	st.applySuccess()
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.RecordIngestSuccess(name)
		if written > 0 {
			s.collector.RecordTendersUpserted(written)
		}
	}

	s.logger.Info("source ingested",
		slog.String("source", name),
		slog.Int("fetched", len(parsed)),
		slog.Int("written", written),
	)
}

// recordFailure は取得失敗をソース状態に反映する。
func (s *Scheduler) recordFailure(name string, err error) {
	st := s.state(name)

	reason := "fetch"
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		reason = fmt.Sprintf("http_%d", statusErr.StatusCode)
		switch ClassifyHTTPStatus(statusErr.StatusCode) {
		case FetchResultNotModified:
			// 未変更は成功として扱う
			s.mu.Lock()
			st.applySuccess()
			s.mu.Unlock()
			if s.collector != nil {
				s.collector.RecordIngestSuccess(name)
			}
			return
		case FetchResultStop:
			s.mu.Lock()
			st.applyStop(err.Error())
			s.mu.Unlock()
			s.logger.Error("source ingestion stopped",
				slog.String("source", name),
				slog.Int("http_status", statusErr.StatusCode),
			)
			if s.collector != nil {
				s.collector.RecordIngestFailure(name, reason)
			}
			return
		}
	}

	s.mu.Lock()
	st.applyBackoff(err.Error())
	backoffUntil := st.nextAttempt
	attempts := st.consecutiveErrors
	s.mu.Unlock()

	s.logger.Warn("source ingestion failed",
		slog.String("source", name),
		slog.String("error", err.Error()),
		slog.Int("consecutive_errors", attempts),
		slog.Time("next_attempt", backoffUntil),
	)

	if s.collector != nil {
		s.collector.RecordIngestFailure(name, reason)
	}
}

// dueSources は現在時刻で試行すべきソースの一覧を返す。
func (s *Scheduler) dueSources(now time.Time) []Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Source
	for _, source := range s.sources {
		st, ok := s.states[source.Name()]
		if !ok || st.due(now) {
			due = append(due, source)
		}
	}
	return due
}

// state はソースの状態を取得または作成する。
func (s *Scheduler) state(name string) *sourceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[name]
	if !ok {
		st = &sourceState{}
		s.states[name] = st
	}
	return st
}
