package performance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/metrics"
	"content-optimizer/internal/usecase/analyze"
)

// ErrNoMetrics возвращается, если в хранилище нет ни одной валидной строки.
var ErrNoMetrics = errors.New("нет валидных строк метрик")

const alertDedupTTL = 6 * time.Hour

// AlertThresholds — пороги алёрт-политики.
type AlertThresholds struct {
	HighCTR        float64
	HighEngagement float64
	LowCTR         float64
}

// Service реализует журнал метрик, A/B-сравнение, отчёт и алёрты.
type Service struct {
	store      domain.MetricsStore
	analyzer   *analyze.Service
	notifier   domain.Notifier
	limiter    domain.AlertLimiter
	thresholds AlertThresholds
	log        zerolog.Logger
}

// NewService создаёт сервис. Лимитер алёртов необязателен.
func NewService(store domain.MetricsStore, analyzer *analyze.Service, notifier domain.Notifier, limiter domain.AlertLimiter, thresholds AlertThresholds, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		analyzer:   analyzer,
		notifier:   notifier,
		limiter:    limiter,
		thresholds: thresholds,
		log:        logger,
	}
}

// RecordInput — параметры одной записи метрик.
type RecordInput struct {
	PostID         string
	Variant        string
	Text           string
	Impressions    int64
	Clicks         int64
	Likes          int64
	Comments       int64
	SentimentScore float64
	SentimentLabel string
	ABTestID       string
	ABWinner       string
	ABReason       string
}

// Record создаёт неизменяемую строку метрик и дописывает её в хранилище.
// Знаменатель зажимается до единицы, CTR и вовлечённость округляются до
// четырёх знаков при создании и дальше не пересчитываются.
func (s *Service) Record(ctx context.Context, input RecordInput) (domain.MetricsRecord, error) {
	impressions := input.Impressions
	if impressions < 1 {
		impressions = 1
	}
	record := domain.MetricsRecord{
		Timestamp:      time.Now().UTC(),
		PostID:         input.PostID,
		Variant:        input.Variant,
		Text:           input.Text,
		SentimentScore: round4(input.SentimentScore),
		SentimentLabel: input.SentimentLabel,
		Impressions:    impressions,
		Clicks:         input.Clicks,
		Likes:          input.Likes,
		Comments:       input.Comments,
		CTR:            round4(float64(input.Clicks) / float64(impressions)),
		EngagementRate: round4(float64(input.Likes+input.Comments) / float64(impressions)),
		ABTestID:       input.ABTestID,
		ABWinner:       input.ABWinner,
		ABReason:       input.ABReason,
	}
	if err := s.store.Append(ctx, record); err != nil {
		metrics.MetricsAppendErrors.Inc()
		return domain.MetricsRecord{}, fmt.Errorf("запись метрик: %w", err)
	}
	metrics.MetricsRowsAppended.Inc()
	return record, nil
}

// LogPost считает лексиконную тональность текста, пишет строку метрик и
// проверяет алёрт-политику.
func (s *Service) LogPost(ctx context.Context, postID, variant, text string, counters domain.CounterGroup) (domain.MetricsRecord, error) {
	sentiment := s.analyzer.LexiconSentiment(text)
	record, err := s.Record(ctx, RecordInput{
		PostID:         postID,
		Variant:        variant,
		Text:           text,
		Impressions:    counters.Impressions,
		Clicks:         counters.Clicks,
		Likes:          counters.Likes,
		Comments:       counters.Comments,
		SentimentScore: sentiment.Score,
		SentimentLabel: sentiment.Label,
	})
	if err != nil {
		return domain.MetricsRecord{}, err
	}
	if err := s.MaybeAlert(ctx, record); err != nil {
		s.log.Error().Err(err).Str("post", record.PostID).Msg("доставка алёрта не удалась")
	}
	return record, nil
}

// LogSentiment пишет строку только с тональностью и нулевыми счётчиками.
func (s *Service) LogSentiment(ctx context.Context, postID, variant, text string) (domain.MetricsRecord, error) {
	sentiment := s.analyzer.LexiconSentiment(text)
	return s.Record(ctx, RecordInput{
		PostID:         postID,
		Variant:        variant,
		Text:           text,
		SentimentScore: sentiment.Score,
		SentimentLabel: sentiment.Label,
	})
}

// EvaluateAB сравнивает два варианта. Цепочка тай-брейков строгая: выше CTR,
// затем выше вовлечённость, иначе ничья.
func EvaluateAB(testID string, a, b domain.CounterGroup) domain.ABTestResult {
	result := domain.ABTestResult{
		TestID:      testID,
		ACTR:        counterCTR(a),
		AEngagement: counterEngagement(a),
		BCTR:        counterCTR(b),
		BEngagement: counterEngagement(b),
	}
	switch {
	case result.ACTR > result.BCTR:
		result.Winner, result.Reason = domain.ABWinnerA, domain.ABReasonCTR
	case result.BCTR > result.ACTR:
		result.Winner, result.Reason = domain.ABWinnerB, domain.ABReasonCTR
	case result.AEngagement > result.BEngagement:
		result.Winner, result.Reason = domain.ABWinnerA, domain.ABReasonEngagement
	case result.BEngagement > result.AEngagement:
		result.Winner, result.Reason = domain.ABWinnerB, domain.ABReasonEngagement
	default:
		result.Winner, result.Reason = domain.ABWinnerTie, domain.ABReasonSimilar
	}
	return result
}

// RunABTest сравнивает варианты и пишет ровно две строки метрик. Поля
// победителя проставляются только выигравшему варианту, проигравший и ничья
// получают пустые строки.
func (s *Service) RunABTest(ctx context.Context, testID, postID, textA, textB string, a, b domain.CounterGroup) (domain.ABTestResult, error) {
	result := EvaluateAB(testID, a, b)
	metrics.ABTestsTotal.WithLabelValues(result.Winner).Inc()

	variants := []struct {
		variant  string
		text     string
		counters domain.CounterGroup
	}{
		{domain.ABWinnerA, textA, a},
		{domain.ABWinnerB, textB, b},
	}
	for _, v := range variants {
		sentiment := s.analyzer.LexiconSentiment(v.text)
		winner, reason := "", ""
		if result.Winner == v.variant {
			winner, reason = result.Winner, result.Reason
		}
		if _, err := s.Record(ctx, RecordInput{
			PostID:         postID,
			Variant:        v.variant,
			Text:           v.text,
			Impressions:    v.counters.Impressions,
			Clicks:         v.counters.Clicks,
			Likes:          v.counters.Likes,
			Comments:       v.counters.Comments,
			SentimentScore: sentiment.Score,
			SentimentLabel: sentiment.Label,
			ABTestID:       testID,
			ABWinner:       winner,
			ABReason:       reason,
		}); err != nil {
			return domain.ABTestResult{}, err
		}
	}
	return result, nil
}

// Summarize сводит все валидные строки хранилища в отчёт.
func (s *Service) Summarize(ctx context.Context) (domain.ReportSummary, error) {
	records, err := s.store.Scan(ctx)
	if err != nil {
		return domain.ReportSummary{}, fmt.Errorf("чтение метрик: %w", err)
	}
	if len(records) == 0 {
		return domain.ReportSummary{}, ErrNoMetrics
	}
	var sumCTR, sumEng float64
	for _, record := range records {
		sumCTR += record.CTR
		sumEng += record.EngagementRate
	}
	count := len(records)
	return domain.ReportSummary{
		Count:             count,
		AvgCTR:            sumCTR / float64(count),
		AvgEngagementRate: sumEng / float64(count),
	}, nil
}

// ShouldAlert — алёрт-политика. Порядок проверок фиксированный: сначала
// высокие показатели, потом низкий CTR с негативной тональностью.
func (s *Service) ShouldAlert(ctr, engagementRate, sentimentScore float64) (domain.AlertDecision, bool) {
	if ctr >= s.thresholds.HighCTR || engagementRate >= s.thresholds.HighEngagement {
		return domain.AlertDecision{
			Kind:    domain.AlertHighPerforming,
			Message: fmt.Sprintf("🔥 High Performing Post!\nCTR=%.2f%% | ENG=%.2f%%\nSentiment=%.2f", ctr*100, engagementRate*100, sentimentScore),
		}, true
	} else if ctr <= s.thresholds.LowCTR && sentimentScore < 0 {
		return domain.AlertDecision{
			Kind:    domain.AlertLowNegative,
			Message: fmt.Sprintf("⚠️ Low Performance + Negative Sentiment\nCTR=%.2f%% | Sentiment=%.2f", ctr*100, sentimentScore),
		}, true
	}
	return domain.AlertDecision{}, false
}

// MaybeAlert проверяет политику для записи и доставляет уведомление.
func (s *Service) MaybeAlert(ctx context.Context, record domain.MetricsRecord) error {
	decision, ok := s.ShouldAlert(record.CTR, record.EngagementRate, record.SentimentScore)
	if !ok {
		return nil
	}
	metrics.AlertsTotal.WithLabelValues(string(decision.Kind)).Inc()
	if s.notifier == nil {
		s.log.Warn().Str("post", record.PostID).Msg("алёрт без настроенного канала доставки")
		return nil
	}
	message := fmt.Sprintf("%s\nPost: %s (%s)", decision.Message, record.PostID, record.Variant)
	send := func() error {
		return s.notifier.Notify(ctx, message)
	}
	if s.limiter != nil {
		key := fmt.Sprintf("alert:%s:%s:%s", decision.Kind, record.PostID, record.Variant)
		return s.limiter.Once(ctx, key, alertDedupTTL, send)
	}
	return send()
}

func counterCTR(c domain.CounterGroup) float64 {
	return float64(c.Clicks) / float64(maxInt64(1, c.Impressions))
}

func counterEngagement(c domain.CounterGroup) float64 {
	return float64(c.Likes+c.Comments) / float64(maxInt64(1, c.Impressions))
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}
