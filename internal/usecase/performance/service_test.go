package performance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/usecase/analyze"
)

type stubStore struct {
	records []domain.MetricsRecord
	failPut error
}

func (s *stubStore) EnsureSchema(context.Context) error { return nil }

func (s *stubStore) Append(_ context.Context, record domain.MetricsRecord) error {
	if s.failPut != nil {
		return s.failPut
	}
	s.records = append(s.records, record)
	return nil
}

func (s *stubStore) Scan(context.Context) ([]domain.MetricsRecord, error) {
	return s.records, nil
}

type stubNotifier struct {
	messages []string
	err      error
}

func (s *stubNotifier) Notify(_ context.Context, message string) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, message)
	return nil
}

type stubLimiter struct {
	keys map[string]bool
}

func (s *stubLimiter) Once(_ context.Context, key string, _ time.Duration, fn func() error) error {
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[key] {
		return nil
	}
	s.keys[key] = true
	return fn()
}

func testAnalyzer() *analyze.Service {
	return analyze.NewService(analyze.Config{
		PositiveWords: []string{"great", "good", "love"},
		NegativeWords: []string{"bad", "terrible", "boring"},
	}, nil, zerolog.Nop())
}

func testThresholds() AlertThresholds {
	return AlertThresholds{HighCTR: 0.10, HighEngagement: 0.15, LowCTR: 0.02}
}

func newTestService(store *stubStore, notifier domain.Notifier, limiter domain.AlertLimiter) *Service {
	return NewService(store, testAnalyzer(), notifier, limiter, testThresholds(), zerolog.Nop())
}

func TestRecordClampsImpressions(t *testing.T) {
	store := &stubStore{}
	s := newTestService(store, nil, nil)
	record, err := s.Record(context.Background(), RecordInput{
		PostID:      "p1",
		Variant:     "A",
		Impressions: 0,
		Clicks:      5,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if record.Impressions != 1 {
		t.Fatalf("ожидали показы, зажатые до 1, получили %d", record.Impressions)
	}
	if record.CTR != 5.0 {
		t.Fatalf("ожидали CTR 5.0, получили %f", record.CTR)
	}
	if len(store.records) != 1 {
		t.Fatalf("ожидали одну строку в хранилище, получили %d", len(store.records))
	}
}

func TestRecordRoundsRates(t *testing.T) {
	s := newTestService(&stubStore{}, nil, nil)
	record, err := s.Record(context.Background(), RecordInput{
		PostID:      "p1",
		Variant:     "A",
		Impressions: 3,
		Clicks:      1,
		Likes:       1,
		Comments:    1,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if record.CTR != 0.3333 {
		t.Fatalf("ожидали CTR 0.3333, получили %f", record.CTR)
	}
	if record.EngagementRate != 0.6667 {
		t.Fatalf("ожидали вовлечённость 0.6667, получили %f", record.EngagementRate)
	}
	if record.Timestamp.Location() != time.UTC {
		t.Fatalf("ожидали метку времени в UTC")
	}
}

func TestRecordStoreFailure(t *testing.T) {
	store := &stubStore{failPut: errors.New("disk full")}
	s := newTestService(store, nil, nil)
	if _, err := s.Record(context.Background(), RecordInput{PostID: "p1"}); err == nil {
		t.Fatalf("ожидали ошибку хранилища")
	}
}

func TestEvaluateABHigherCTR(t *testing.T) {
	a := domain.CounterGroup{Impressions: 1000, Clicks: 120, Likes: 180, Comments: 25}
	b := domain.CounterGroup{Impressions: 1000, Clicks: 110, Likes: 160, Comments: 30}
	result := EvaluateAB("t1", a, b)
	if result.Winner != domain.ABWinnerA {
		t.Fatalf("ожидали победу A, получили %s", result.Winner)
	}
	if result.Reason != domain.ABReasonCTR {
		t.Fatalf("ожидали причину %q, получили %q", domain.ABReasonCTR, result.Reason)
	}
	if result.ACTR != 0.12 || result.BCTR != 0.11 {
		t.Fatalf("неожиданные CTR: %f / %f", result.ACTR, result.BCTR)
	}
}

func TestEvaluateABEngagementTieBreak(t *testing.T) {
	a := domain.CounterGroup{Impressions: 1000, Clicks: 100, Likes: 150, Comments: 50}
	b := domain.CounterGroup{Impressions: 1000, Clicks: 100, Likes: 100, Comments: 50}
	result := EvaluateAB("t2", a, b)
	if result.Winner != domain.ABWinnerA {
		t.Fatalf("ожидали победу A, получили %s", result.Winner)
	}
	if result.Reason != domain.ABReasonEngagement {
		t.Fatalf("ожидали причину %q, получили %q", domain.ABReasonEngagement, result.Reason)
	}
}

func TestEvaluateABTie(t *testing.T) {
	counters := domain.CounterGroup{Impressions: 500, Clicks: 25, Likes: 40, Comments: 10}
	result := EvaluateAB("t3", counters, counters)
	if result.Winner != domain.ABWinnerTie {
		t.Fatalf("ожидали ничью, получили %s", result.Winner)
	}
	if result.Reason != domain.ABReasonSimilar {
		t.Fatalf("ожидали причину %q, получили %q", domain.ABReasonSimilar, result.Reason)
	}
}

func TestEvaluateABZeroImpressions(t *testing.T) {
	a := domain.CounterGroup{Impressions: 0, Clicks: 3}
	b := domain.CounterGroup{Impressions: 0, Clicks: 1}
	result := EvaluateAB("t4", a, b)
	if result.Winner != domain.ABWinnerA {
		t.Fatalf("ожидали победу A при нулевых показах, получили %s", result.Winner)
	}
}

func TestRunABTestStampsWinnerOnly(t *testing.T) {
	store := &stubStore{}
	s := newTestService(store, nil, nil)
	a := domain.CounterGroup{Impressions: 1000, Clicks: 120, Likes: 180, Comments: 25}
	b := domain.CounterGroup{Impressions: 1000, Clicks: 110, Likes: 160, Comments: 30}
	result, err := s.RunABTest(context.Background(), "t1", "p1", "great text", "bad text", a, b)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.Winner != domain.ABWinnerA {
		t.Fatalf("ожидали победу A, получили %s", result.Winner)
	}
	if len(store.records) != 2 {
		t.Fatalf("ожидали ровно две строки, получили %d", len(store.records))
	}
	winner, loser := store.records[0], store.records[1]
	if winner.Variant != domain.ABWinnerA || loser.Variant != domain.ABWinnerB {
		t.Fatalf("неожиданный порядок вариантов: %s, %s", winner.Variant, loser.Variant)
	}
	if winner.ABWinner != domain.ABWinnerA || winner.ABReason != domain.ABReasonCTR {
		t.Fatalf("победитель должен быть проштампован: %q/%q", winner.ABWinner, winner.ABReason)
	}
	if loser.ABWinner != "" || loser.ABReason != "" {
		t.Fatalf("проигравший должен остаться без штампа: %q/%q", loser.ABWinner, loser.ABReason)
	}
	if winner.ABTestID != "t1" || loser.ABTestID != "t1" {
		t.Fatalf("обе строки должны нести идентификатор теста")
	}
}

func TestRunABTestTieStampsNobody(t *testing.T) {
	store := &stubStore{}
	s := newTestService(store, nil, nil)
	counters := domain.CounterGroup{Impressions: 100, Clicks: 5, Likes: 10, Comments: 2}
	if _, err := s.RunABTest(context.Background(), "t2", "p1", "same", "same", counters, counters); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	for _, record := range store.records {
		if record.ABWinner != "" || record.ABReason != "" {
			t.Fatalf("при ничьей поля победителя должны быть пустыми: %q/%q", record.ABWinner, record.ABReason)
		}
	}
}

func TestSummarize(t *testing.T) {
	store := &stubStore{records: []domain.MetricsRecord{
		{CTR: 0.25, EngagementRate: 0.5},
		{CTR: 0.75, EngagementRate: 0.25},
	}}
	s := newTestService(store, nil, nil)
	summary, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if summary.Count != 2 {
		t.Fatalf("ожидали 2 строки, получили %d", summary.Count)
	}
	if summary.AvgCTR != 0.5 {
		t.Fatalf("ожидали средний CTR 0.5, получили %f", summary.AvgCTR)
	}
	if summary.AvgEngagementRate != 0.375 {
		t.Fatalf("ожидали среднюю вовлечённость 0.375, получили %f", summary.AvgEngagementRate)
	}
}

func TestSummarizeEmptyStore(t *testing.T) {
	s := newTestService(&stubStore{}, nil, nil)
	if _, err := s.Summarize(context.Background()); !errors.Is(err, ErrNoMetrics) {
		t.Fatalf("ожидали ErrNoMetrics, получили %v", err)
	}
}

func TestShouldAlert(t *testing.T) {
	s := newTestService(&stubStore{}, nil, nil)

	decision, ok := s.ShouldAlert(0.12, 0.05, 0.5)
	if !ok || decision.Kind != domain.AlertHighPerforming {
		t.Fatalf("ожидали алёрт о высоких показателях, получили %v/%v", decision, ok)
	}
	if !strings.Contains(decision.Message, "High Performing") {
		t.Fatalf("неожиданный текст алёрта: %q", decision.Message)
	}

	decision, ok = s.ShouldAlert(0.01, 0.01, -0.4)
	if !ok || decision.Kind != domain.AlertLowNegative {
		t.Fatalf("ожидали алёрт о низком CTR с негативом, получили %v/%v", decision, ok)
	}

	if _, ok = s.ShouldAlert(0.05, 0.05, 0); ok {
		t.Fatalf("не ожидали алёрт в средней зоне")
	}

	// Низкий CTR без негатива алёрт не даёт.
	if _, ok = s.ShouldAlert(0.01, 0.01, 0.2); ok {
		t.Fatalf("не ожидали алёрт при нейтральной тональности")
	}

	// Высокие показатели имеют приоритет над веткой низкого CTR.
	decision, ok = s.ShouldAlert(0.01, 0.20, -0.5)
	if !ok || decision.Kind != domain.AlertHighPerforming {
		t.Fatalf("ожидали ветку высоких показателей, получили %v/%v", decision, ok)
	}
}

func TestMaybeAlertDelivers(t *testing.T) {
	notifier := &stubNotifier{}
	s := newTestService(&stubStore{}, notifier, nil)
	record := domain.MetricsRecord{PostID: "p1", Variant: "A", CTR: 0.15, EngagementRate: 0.05}
	if err := s.MaybeAlert(context.Background(), record); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("ожидали одно уведомление, получили %d", len(notifier.messages))
	}
	if !strings.Contains(notifier.messages[0], "Post: p1 (A)") {
		t.Fatalf("уведомление должно называть публикацию: %q", notifier.messages[0])
	}
}

func TestMaybeAlertDeduplicates(t *testing.T) {
	notifier := &stubNotifier{}
	s := newTestService(&stubStore{}, notifier, &stubLimiter{})
	record := domain.MetricsRecord{PostID: "p1", Variant: "A", CTR: 0.15}
	for i := 0; i < 3; i++ {
		if err := s.MaybeAlert(context.Background(), record); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("повторные алёрты должны подавляться, получили %d уведомлений", len(notifier.messages))
	}
}

func TestLogPostTriggersAlert(t *testing.T) {
	store := &stubStore{}
	notifier := &stubNotifier{}
	s := newTestService(store, notifier, nil)
	record, err := s.LogPost(context.Background(), "p1", "A", "great great love it", domain.CounterGroup{
		Impressions: 100,
		Clicks:      20,
		Likes:       5,
		Comments:    1,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if record.SentimentLabel != domain.LexiconPositive {
		t.Fatalf("ожидали positive, получили %s", record.SentimentLabel)
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("ожидали алёрт о высоком CTR, получили %d уведомлений", len(notifier.messages))
	}
}

func TestLogPostNotifierFailureDoesNotFail(t *testing.T) {
	store := &stubStore{}
	s := newTestService(store, &stubNotifier{err: errors.New("webhook down")}, nil)
	if _, err := s.LogPost(context.Background(), "p1", "A", "great text", domain.CounterGroup{Impressions: 10, Clicks: 5}); err != nil {
		t.Fatalf("сбой доставки алёрта не должен ронять запись: %v", err)
	}
	if len(store.records) != 1 {
		t.Fatalf("строка метрик должна быть записана несмотря на сбой алёрта")
	}
}

func TestLogSentimentZeroCounters(t *testing.T) {
	store := &stubStore{}
	s := newTestService(store, nil, nil)
	record, err := s.LogSentiment(context.Background(), "p1", "A", "terrible boring bad")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if record.SentimentLabel != domain.LexiconNegative {
		t.Fatalf("ожидали negative, получили %s", record.SentimentLabel)
	}
	if record.Impressions != 1 || record.Clicks != 0 || record.CTR != 0 {
		t.Fatalf("ожидали нулевые счётчики с зажатым знаменателем: %+v", record)
	}
}
