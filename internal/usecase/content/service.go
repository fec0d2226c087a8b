package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/usecase/analyze"
	"content-optimizer/internal/usecase/optimize"
)

// ErrNoGenerator возвращается, если генератор контента не настроен.
var ErrNoGenerator = errors.New("генератор контента не настроен")

// Service управляет жизненным циклом строки контента: генерация, постановка
// в очередь на оптимизацию, обработка задачи воркером.
type Service struct {
	repo      domain.ContentRepo
	queue     domain.OptimizeQueue
	generator domain.ContentGenerator
	optimizer *optimize.Service
	notifier  domain.Notifier
	log       zerolog.Logger
}

// NewService создаёт сервис контента. Генератор и нотификатор необязательны.
func NewService(repo domain.ContentRepo, queue domain.OptimizeQueue, generator domain.ContentGenerator, optimizer *optimize.Service, notifier domain.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		queue:     queue,
		generator: generator,
		optimizer: optimizer,
		notifier:  notifier,
		log:       logger,
	}
}

// GenerateAndQueue создаёт текст под тему и площадку, сохраняет строку и
// ставит задачу на оптимизацию. Сбой уведомления не прерывает поток.
func (s *Service) GenerateAndQueue(ctx context.Context, topic, platform string) (domain.ContentRow, error) {
	if s.generator == nil {
		return domain.ContentRow{}, ErrNoGenerator
	}
	text, err := s.generator.Generate(ctx, topic, platform)
	if err != nil {
		return domain.ContentRow{}, fmt.Errorf("генерация контента: %w", err)
	}
	row, err := s.saveAndQueue(ctx, topic, platform, text, domain.OptimizeCauseGenerated)
	if err != nil {
		return domain.ContentRow{}, err
	}
	if s.notifier != nil {
		message := fmt.Sprintf("New content generated for *%s* on *%s*!", topic, platform)
		if err := s.notifier.Notify(ctx, message); err != nil {
			s.log.Error().Err(err).Str("topic", topic).Msg("уведомление о генерации не доставлено")
		}
	}
	return row, nil
}

// SubmitText сохраняет присланный текст и ставит задачу на оптимизацию.
func (s *Service) SubmitText(ctx context.Context, topic, platform, text string) (domain.ContentRow, error) {
	return s.saveAndQueue(ctx, topic, platform, text, domain.OptimizeCauseManual)
}

func (s *Service) saveAndQueue(ctx context.Context, topic, platform, text string, cause domain.OptimizeJobCause) (domain.ContentRow, error) {
	if topic == "" {
		topic = "General"
	}
	if platform == "" {
		platform = "unknown"
	}
	row, err := s.repo.SaveContent(ctx, domain.ContentRow{
		Topic:     topic,
		Platform:  platform,
		Generated: text,
	})
	if err != nil {
		return domain.ContentRow{}, fmt.Errorf("сохранение контента: %w", err)
	}
	job := domain.OptimizeJob{
		ID:         uuid.NewString(),
		ContentID:  row.ID,
		Text:       text,
		Topic:      topic,
		Platform:   platform,
		EnqueuedAt: time.Now().UTC(),
		Cause:      cause,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.ContentRow{}, fmt.Errorf("постановка в очередь: %w", err)
	}
	return row, nil
}

// ProcessJob выполняет одну задачу оптимизации: чистит текст, прогоняет
// анализаторы, оптимизирует и сохраняет производные колонки.
func (s *Service) ProcessJob(ctx context.Context, job domain.OptimizeJob) error {
	cleaned := analyze.Normalize(job.Text)
	original := s.optimizer.Analyze(ctx, cleaned)
	optimized := s.optimizer.Optimize(ctx, cleaned)
	optimizedSentiment := s.optimizer.Analyze(ctx, optimized).Sentiment

	row := domain.ContentRow{
		ID:                 job.ContentID,
		Topic:              job.Topic,
		Platform:           job.Platform,
		Generated:          job.Text,
		Cleaned:            cleaned,
		Optimized:          optimized,
		OriginalSentiment:  original.Sentiment,
		OptimizedSentiment: optimizedSentiment,
		Readability:        original.Readability,
		TrendRelevance:     original.TrendRelevance,
		EngagementScore:    original.EngagementScore,
		HashtagCount:       len(original.Hashtags),
		HasCTA:             original.HasCTA,
	}
	if row.ID == "" {
		if _, err := s.repo.SaveContent(ctx, row); err != nil {
			return fmt.Errorf("сохранение результата: %w", err)
		}
		return nil
	}
	if err := s.repo.UpdateOptimization(ctx, row); err != nil {
		return fmt.Errorf("обновление результата: %w", err)
	}
	return nil
}
