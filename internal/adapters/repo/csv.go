package repo

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
)

// CSVStore реализует хранилище метрик в локальном CSV-файле с фиксированным
// заголовком. Подходит для локальных прогонов без Postgres.
type CSVStore struct {
	path string
	log  zerolog.Logger
	mu   sync.Mutex
}

var _ domain.MetricsStore = (*CSVStore)(nil)

// NewCSVStore создаёт файловое хранилище по указанному пути.
func NewCSVStore(path string, logger zerolog.Logger) *CSVStore {
	return &CSVStore{path: path, log: logger}
}

// EnsureSchema создаёт файл с заголовком, если его ещё нет.
func (s *CSVStore) EnsureSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureFile()
}

func (s *CSVStore) ensureFile() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("проверка файла метрик: %w", err)
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("создание файла метрик: %w", err)
	}
	defer file.Close()
	writer := csv.NewWriter(file)
	if err := writer.Write(domain.MetricsHeader); err != nil {
		return fmt.Errorf("запись заголовка: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Append дописывает одну строку в конец файла.
func (s *CSVStore) Append(_ context.Context, record domain.MetricsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureFile(); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("открытие файла метрик: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	row := []string{
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.PostID,
		record.Variant,
		record.Text,
		strconv.FormatFloat(record.SentimentScore, 'f', -1, 64),
		record.SentimentLabel,
		strconv.FormatInt(record.Impressions, 10),
		strconv.FormatInt(record.Clicks, 10),
		strconv.FormatInt(record.Likes, 10),
		strconv.FormatInt(record.Comments, 10),
		strconv.FormatFloat(record.CTR, 'f', -1, 64),
		strconv.FormatFloat(record.EngagementRate, 'f', -1, 64),
		record.ABTestID,
		record.ABWinner,
		record.ABReason,
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("запись строки метрик: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("сброс буфера метрик: %w", err)
	}
	return nil
}

// Scan читает снимок файла. Строки с нечитаемыми ctr/engagement_rate
// пропускаются, весь проход из-за них не падает.
func (s *CSVStore) Scan(_ context.Context) ([]domain.MetricsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("открытие файла метрик: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("чтение файла метрик: %w", err)
	}

	var records []domain.MetricsRecord
	for i, row := range rows {
		if i == 0 || len(row) < len(domain.MetricsHeader) {
			continue
		}
		ctr, ctrErr := strconv.ParseFloat(row[10], 64)
		eng, engErr := strconv.ParseFloat(row[11], 64)
		if ctrErr != nil || engErr != nil {
			s.log.Debug().Int("row", i).Msg("строка метрик пропущена: нечитаемые ctr/engagement_rate")
			continue
		}
		record := domain.MetricsRecord{
			PostID:         row[1],
			Variant:        row[2],
			Text:           row[3],
			SentimentLabel: row[5],
			ABTestID:       row[12],
			ABWinner:       row[13],
			ABReason:       row[14],
			CTR:            ctr,
			EngagementRate: eng,
		}
		if ts, err := time.Parse(time.RFC3339Nano, row[0]); err == nil {
			record.Timestamp = ts
		}
		if v, err := strconv.ParseFloat(row[4], 64); err == nil {
			record.SentimentScore = v
		}
		if v, err := strconv.ParseInt(row[6], 10, 64); err == nil {
			record.Impressions = v
		}
		if v, err := strconv.ParseInt(row[7], 10, 64); err == nil {
			record.Clicks = v
		}
		if v, err := strconv.ParseInt(row[8], 10, 64); err == nil {
			record.Likes = v
		}
		if v, err := strconv.ParseInt(row[9], 10, 64); err == nil {
			record.Comments = v
		}
		records = append(records, record)
	}
	return records, nil
}
