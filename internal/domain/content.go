package domain

import "time"

// SentimentResult содержит оценку тональности текста.
type SentimentResult struct {
	Score float64
	Label string
}

// Метки тональности внешнего оценщика (пайплайн оптимизации).
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// Метки лексиконного анализатора (контур метрик).
const (
	LexiconPositive = "positive"
	LexiconNeutral  = "neutral"
	LexiconNegative = "negative"
)

// ReadabilityLevel описывает уровень читабельности текста.
type ReadabilityLevel string

const (
	ReadabilityEasy    ReadabilityLevel = "Easy"
	ReadabilityMedium  ReadabilityLevel = "Medium"
	ReadabilityComplex ReadabilityLevel = "Complex"
)

// ContentAnalysis хранит результаты лексических анализаторов по одному тексту.
type ContentAnalysis struct {
	Sentiment       SentimentResult
	Readability     ReadabilityLevel
	Hashtags        []string
	TrendRelevance  float64
	EngagementScore float64
	HasCTA          bool
}

// ContentRow представляет одну единицу маркетингового контента.
// Колонки с анализом заполняются воркером оптимизации.
type ContentRow struct {
	ID                 string
	Topic              string
	Platform           string
	Generated          string
	Cleaned            string
	Optimized          string
	OriginalSentiment  SentimentResult
	OptimizedSentiment SentimentResult
	Readability        ReadabilityLevel
	TrendRelevance     float64
	EngagementScore    float64
	HashtagCount       int
	HasCTA             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
