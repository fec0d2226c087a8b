package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/metrics"
)

// ErrContentNotFound возвращается, если строка контента не найдена.
var ErrContentNotFound = errors.New("строка контента не найдена")

// Postgres реализует хранилище метрик и репозиторий контента на pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.MetricsStore = (*Postgres)(nil)
	_ domain.ContentRepo  = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	statements := []string{`
CREATE TABLE IF NOT EXISTS post_metrics (
    id              BIGSERIAL PRIMARY KEY,
    ts              TIMESTAMPTZ NOT NULL,
    post_id         TEXT NOT NULL,
    variant         TEXT NOT NULL,
    text            TEXT NOT NULL,
    sentiment_score DOUBLE PRECISION NOT NULL,
    sentiment_label TEXT NOT NULL,
    impressions     BIGINT NOT NULL,
    clicks          BIGINT NOT NULL,
    likes           BIGINT NOT NULL,
    comments        BIGINT NOT NULL,
    ctr             DOUBLE PRECISION NOT NULL,
    engagement_rate DOUBLE PRECISION NOT NULL,
    ab_test_id      TEXT NOT NULL DEFAULT '',
    ab_winner       TEXT NOT NULL DEFAULT '',
    ab_reason       TEXT NOT NULL DEFAULT ''
)`, `
CREATE TABLE IF NOT EXISTS content_rows (
    id                  TEXT PRIMARY KEY,
    topic               TEXT NOT NULL,
    platform            TEXT NOT NULL,
    generated           TEXT NOT NULL,
    cleaned             TEXT NOT NULL DEFAULT '',
    optimized           TEXT NOT NULL DEFAULT '',
    orig_sent_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
    orig_sent_label     TEXT NOT NULL DEFAULT '',
    opt_sent_score      DOUBLE PRECISION NOT NULL DEFAULT 0,
    opt_sent_label      TEXT NOT NULL DEFAULT '',
    readability         TEXT NOT NULL DEFAULT '',
    trend_relevance     DOUBLE PRECISION NOT NULL DEFAULT 0,
    engagement_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
    hashtag_count       INT NOT NULL DEFAULT 0,
    has_cta             BOOLEAN NOT NULL DEFAULT FALSE,
    created_at          TIMESTAMPTZ NOT NULL,
    updated_at          TIMESTAMPTZ NOT NULL
)`}
	for _, stmt := range statements {
		start := time.Now()
		_, err := p.pool.Exec(ctx, stmt)
		metrics.ObserveNetworkRequest("postgres", "ensure_schema", "post_metrics", start, err)
		if err != nil {
			return fmt.Errorf("создание схемы: %w", err)
		}
	}
	return nil
}

// Append дописывает строку метрик. Существующие строки никогда не меняются.
func (p *Postgres) Append(ctx context.Context, record domain.MetricsRecord) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO post_metrics (ts, post_id, variant, text, sentiment_score, sentiment_label,
    impressions, clicks, likes, comments, ctr, engagement_rate, ab_test_id, ab_winner, ab_reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
`, record.Timestamp, record.PostID, record.Variant, record.Text, record.SentimentScore, record.SentimentLabel,
		record.Impressions, record.Clicks, record.Likes, record.Comments, record.CTR, record.EngagementRate,
		record.ABTestID, record.ABWinner, record.ABReason)
	metrics.ObserveNetworkRequest("postgres", "metrics_insert", "post_metrics", start, err)
	if err != nil {
		return fmt.Errorf("вставка метрик: %w", err)
	}
	return nil
}

// Scan возвращает снимок всех строк метрик в порядке добавления.
func (p *Postgres) Scan(ctx context.Context) ([]domain.MetricsRecord, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT ts, post_id, variant, text, sentiment_score, sentiment_label,
    impressions, clicks, likes, comments, ctr, engagement_rate, ab_test_id, ab_winner, ab_reason
FROM post_metrics
ORDER BY id
`)
	metrics.ObserveNetworkRequest("postgres", "metrics_scan", "post_metrics", start, err)
	if err != nil {
		return nil, fmt.Errorf("чтение метрик: %w", err)
	}
	defer rows.Close()

	var records []domain.MetricsRecord
	for rows.Next() {
		var r domain.MetricsRecord
		if err := rows.Scan(&r.Timestamp, &r.PostID, &r.Variant, &r.Text, &r.SentimentScore, &r.SentimentLabel,
			&r.Impressions, &r.Clicks, &r.Likes, &r.Comments, &r.CTR, &r.EngagementRate,
			&r.ABTestID, &r.ABWinner, &r.ABReason); err != nil {
			return nil, fmt.Errorf("разбор строки метрик: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход строк метрик: %w", err)
	}
	return records, nil
}

// SaveContent сохраняет новую строку контента.
func (p *Postgres) SaveContent(ctx context.Context, row domain.ContentRow) (domain.ContentRow, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO content_rows (id, topic, platform, generated, cleaned, optimized,
    orig_sent_score, orig_sent_label, opt_sent_score, opt_sent_label,
    readability, trend_relevance, engagement_score, hashtag_count, has_cta, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
`, row.ID, row.Topic, row.Platform, row.Generated, row.Cleaned, row.Optimized,
		row.OriginalSentiment.Score, row.OriginalSentiment.Label,
		row.OptimizedSentiment.Score, row.OptimizedSentiment.Label,
		string(row.Readability), row.TrendRelevance, row.EngagementScore,
		row.HashtagCount, row.HasCTA, row.CreatedAt, row.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "content_insert", "content_rows", start, err)
	if err != nil {
		return domain.ContentRow{}, fmt.Errorf("вставка контента: %w", err)
	}
	return row, nil
}

// UpdateOptimization заполняет колонки с результатами оптимизации.
func (p *Postgres) UpdateOptimization(ctx context.Context, row domain.ContentRow) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE content_rows
SET cleaned = $2, optimized = $3,
    orig_sent_score = $4, orig_sent_label = $5,
    opt_sent_score = $6, opt_sent_label = $7,
    readability = $8, trend_relevance = $9, engagement_score = $10,
    hashtag_count = $11, has_cta = $12, updated_at = $13
WHERE id = $1
`, row.ID, row.Cleaned, row.Optimized,
		row.OriginalSentiment.Score, row.OriginalSentiment.Label,
		row.OptimizedSentiment.Score, row.OptimizedSentiment.Label,
		string(row.Readability), row.TrendRelevance, row.EngagementScore,
		row.HashtagCount, row.HasCTA, time.Now().UTC())
	metrics.ObserveNetworkRequest("postgres", "content_update", "content_rows", start, err)
	if err != nil {
		return fmt.Errorf("обновление контента: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContentNotFound
	}
	return nil
}

// GetContent возвращает строку контента по идентификатору.
func (p *Postgres) GetContent(ctx context.Context, id string) (domain.ContentRow, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, topic, platform, generated, cleaned, optimized,
    orig_sent_score, orig_sent_label, opt_sent_score, opt_sent_label,
    readability, trend_relevance, engagement_score, hashtag_count, has_cta, created_at, updated_at
FROM content_rows
WHERE id = $1
`, id)
	content, err := scanContentRow(row)
	metrics.ObserveNetworkRequest("postgres", "content_get", "content_rows", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ContentRow{}, ErrContentNotFound
		}
		return domain.ContentRow{}, fmt.Errorf("чтение контента: %w", err)
	}
	return content, nil
}

// ListContent возвращает страницы строк контента, новые первыми.
func (p *Postgres) ListContent(ctx context.Context, limit, offset int) ([]domain.ContentRow, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, topic, platform, generated, cleaned, optimized,
    orig_sent_score, orig_sent_label, opt_sent_score, opt_sent_label,
    readability, trend_relevance, engagement_score, hashtag_count, has_cta, created_at, updated_at
FROM content_rows
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	metrics.ObserveNetworkRequest("postgres", "content_list", "content_rows", start, err)
	if err != nil {
		return nil, fmt.Errorf("список контента: %w", err)
	}
	defer rows.Close()

	var out []domain.ContentRow
	for rows.Next() {
		content, err := scanContentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("разбор строки контента: %w", err)
		}
		out = append(out, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход строк контента: %w", err)
	}
	return out, nil
}

func scanContentRow(row pgx.Row) (domain.ContentRow, error) {
	var c domain.ContentRow
	var readability string
	err := row.Scan(&c.ID, &c.Topic, &c.Platform, &c.Generated, &c.Cleaned, &c.Optimized,
		&c.OriginalSentiment.Score, &c.OriginalSentiment.Label,
		&c.OptimizedSentiment.Score, &c.OptimizedSentiment.Label,
		&readability, &c.TrendRelevance, &c.EngagementScore,
		&c.HashtagCount, &c.HasCTA, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.ContentRow{}, err
	}
	c.Readability = domain.ReadabilityLevel(readability)
	return c, nil
}
