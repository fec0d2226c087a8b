package domain

import (
	"context"
	"time"
)

// OptimizeJobCause описывает источник задачи на оптимизацию.
type OptimizeJobCause string

const (
	// OptimizeCauseManual — текст отправлен через API вручную.
	OptimizeCauseManual OptimizeJobCause = "manual"
	// OptimizeCauseGenerated — текст создан генератором контента.
	OptimizeCauseGenerated OptimizeJobCause = "generated"
)

// OptimizeJob содержит информацию о задаче оптимизации текста.
type OptimizeJob struct {
	ID         string           `json:"job_id,omitempty"`
	ContentID  string           `json:"content_id,omitempty"`
	Text       string           `json:"text"`
	Topic      string           `json:"topic,omitempty"`
	Platform   string           `json:"platform,omitempty"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
	Cause      OptimizeJobCause `json:"cause"`
}

// OptimizeQueue описывает очередь задач на оптимизацию.
type OptimizeQueue interface {
	Enqueue(ctx context.Context, job OptimizeJob) error
	Pop(ctx context.Context) (OptimizeJob, error)
}
