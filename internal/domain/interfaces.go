package domain

import (
	"context"
	"time"
)

// SentimentEstimator — внешний оценщик тональности общего назначения.
// Возвращает полярность в диапазоне [-1, 1].
type SentimentEstimator interface {
	EstimatePolarity(ctx context.Context, text string) (float64, error)
}

// GrammarCorrector — внешняя необязательная коррекция грамматики.
// Ошибка коррекции не фатальна: вызывающая сторона оставляет текст как есть.
type GrammarCorrector interface {
	Correct(ctx context.Context, text string) (string, error)
}

// ContentGenerator создаёт маркетинговый текст под тему и площадку.
type ContentGenerator interface {
	Generate(ctx context.Context, topic, platform string) (string, error)
}

// MetricsStore — упорядоченное хранилище строк метрик, работающее только
// на добавление. Scan возвращает снимок на момент вызова.
type MetricsStore interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, record MetricsRecord) error
	Scan(ctx context.Context) ([]MetricsRecord, error)
}

// ContentRepo управляет строками контента.
type ContentRepo interface {
	SaveContent(ctx context.Context, row ContentRow) (ContentRow, error)
	UpdateOptimization(ctx context.Context, row ContentRow) error
	GetContent(ctx context.Context, id string) (ContentRow, error)
	ListContent(ctx context.Context, limit, offset int) ([]ContentRow, error)
}

// Notifier доставляет текстовое уведомление во внешний канал.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// AlertLimiter подавляет повторные алёрты по одному ключу внутри ttl.
type AlertLimiter interface {
	Once(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}
