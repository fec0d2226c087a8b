package domain

import "time"

// MetricsRecord — одна строка метрик публикации. Запись создаётся один раз
// и дальше не изменяется: хранилище работает только на добавление.
type MetricsRecord struct {
	Timestamp      time.Time
	PostID         string
	Variant        string
	Text           string
	SentimentScore float64
	SentimentLabel string
	Impressions    int64
	Clicks         int64
	Likes          int64
	Comments       int64
	CTR            float64
	EngagementRate float64
	ABTestID       string
	ABWinner       string
	ABReason       string
}

// MetricsHeader — фиксированный заголовок хранилища метрик.
var MetricsHeader = []string{
	"timestamp",
	"post_id",
	"variant",
	"text",
	"sentiment_score",
	"sentiment_label",
	"impressions",
	"clicks",
	"likes",
	"comments",
	"ctr",
	"engagement_rate",
	"ab_test_id",
	"ab_winner",
	"ab_reason",
}

// CounterGroup — сырые счётчики одного варианта публикации.
type CounterGroup struct {
	Impressions int64
	Clicks      int64
	Likes       int64
	Comments    int64
}

// Итоги A/B-теста.
const (
	ABWinnerA   = "A"
	ABWinnerB   = "B"
	ABWinnerTie = "tie"

	ABReasonCTR        = "higher CTR"
	ABReasonEngagement = "higher engagement"
	ABReasonSimilar    = "similar performance"
)

// ABTestResult — результат сравнения двух вариантов.
type ABTestResult struct {
	TestID      string
	Winner      string
	Reason      string
	ACTR        float64
	AEngagement float64
	BCTR        float64
	BEngagement float64
}

// ReportSummary — агрегат по всем валидным строкам метрик.
type ReportSummary struct {
	Count             int
	AvgCTR            float64
	AvgEngagementRate float64
}

// AlertKind различает типы алёртов.
type AlertKind string

const (
	AlertHighPerforming AlertKind = "high_performing"
	AlertLowNegative    AlertKind = "low_performance_negative_sentiment"
)

// AlertDecision — решение алёрт-политики вместе с готовым текстом уведомления.
type AlertDecision struct {
	Kind    AlertKind
	Message string
}
