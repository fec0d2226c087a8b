package repo

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
)

func newTestCSVStore(t *testing.T) *CSVStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.csv")
	return NewCSVStore(path, zerolog.Nop())
}

func TestCSVStoreEnsureSchemaWritesHeader(t *testing.T) {
	store := newTestCSVStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	data, err := os.ReadFile(store.path)
	if err != nil {
		t.Fatalf("не ожидали ошибку чтения: %v", err)
	}
	want := strings.Join(domain.MetricsHeader, ",") + "\n"
	if string(data) != want {
		t.Fatalf("ожидали заголовок %q, получили %q", want, string(data))
	}
	// Повторный вызов существующий файл не трогает.
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("повторный вызов не должен падать: %v", err)
	}
}

func TestCSVStoreAppendAndScan(t *testing.T) {
	store := newTestCSVStore(t)
	record := domain.MetricsRecord{
		Timestamp:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PostID:         "p1",
		Variant:        "A",
		Text:           "text, with comma and \"quotes\"",
		SentimentScore: 0.5,
		SentimentLabel: "positive",
		Impressions:    100,
		Clicks:         12,
		Likes:          18,
		Comments:       3,
		CTR:            0.12,
		EngagementRate: 0.21,
		ABTestID:       "t1",
		ABWinner:       "A",
		ABReason:       "higher CTR",
	}
	if err := store.Append(context.Background(), record); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	records, err := store.Scan(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ожидали одну строку, получили %d", len(records))
	}
	got := records[0]
	if got.PostID != "p1" || got.Variant != "A" {
		t.Fatalf("неожиданная строка: %+v", got)
	}
	if got.Text != record.Text {
		t.Fatalf("текст должен пережить запятые и кавычки: %q", got.Text)
	}
	if got.CTR != 0.12 || got.EngagementRate != 0.21 {
		t.Fatalf("неожиданные показатели: %f / %f", got.CTR, got.EngagementRate)
	}
	if !got.Timestamp.Equal(record.Timestamp) {
		t.Fatalf("метка времени должна пережить запись: %v", got.Timestamp)
	}
	if got.Impressions != 100 || got.Clicks != 12 || got.Likes != 18 || got.Comments != 3 {
		t.Fatalf("счётчики неверны: %+v", got)
	}
	if got.ABTestID != "t1" || got.ABWinner != "A" || got.ABReason != "higher CTR" {
		t.Fatalf("поля A/B-теста неверны: %+v", got)
	}
}

func TestCSVStoreScanSkipsUnreadableRows(t *testing.T) {
	store := newTestCSVStore(t)
	if err := store.Append(context.Background(), domain.MetricsRecord{PostID: "good", CTR: 0.1, EngagementRate: 0.2}); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Строка с нечитаемым ctr и строка с нехваткой колонок.
	broken := "2025-06-01T12:00:00Z,bad,A,text,0,neutral,1,0,0,0,not-a-number,0.1,,,\n" +
		"short,row\n"
	file, err := os.OpenFile(store.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("не ожидали ошибку открытия: %v", err)
	}
	if _, err := file.WriteString(broken); err != nil {
		t.Fatalf("не ожидали ошибку записи: %v", err)
	}
	file.Close()

	records, err := store.Scan(context.Background())
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("битые строки должны пропускаться, получили %d строк", len(records))
	}
	if records[0].PostID != "good" {
		t.Fatalf("уцелеть должна валидная строка, получили %+v", records[0])
	}
}

func TestCSVStoreScanMissingFile(t *testing.T) {
	store := newTestCSVStore(t)
	records, err := store.Scan(context.Background())
	if err != nil {
		t.Fatalf("отсутствие файла не ошибка: %v", err)
	}
	if records != nil {
		t.Fatalf("ожидали пустой результат, получили %v", records)
	}
}
