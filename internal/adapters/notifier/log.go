package notifier

import (
	"context"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
)

// Log пишет уведомления в локальный лог. Используется, когда внешний канал
// доставки не настроен: это штатный режим, а не ошибка.
type Log struct {
	log zerolog.Logger
}

var _ domain.Notifier = (*Log)(nil)

// NewLog создаёт локальный нотификатор.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{log: logger}
}

// Notify печатает сообщение в лог.
func (l *Log) Notify(_ context.Context, message string) error {
	l.log.Info().Str("message", message).Msg("уведомление без внешнего канала")
	return nil
}
