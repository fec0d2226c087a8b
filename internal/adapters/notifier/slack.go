package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/metrics"
)

// Slack отправляет уведомления во входящий вебхук Slack.
type Slack struct {
	client     *http.Client
	webhookURL string
}

var _ domain.Notifier = (*Slack)(nil)

// NewSlack создаёт нотификатор.
func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Slack{
		client:     &http.Client{Timeout: timeout},
		webhookURL: webhookURL,
	}
}

type slackPayload struct {
	Text string `json:"text"`
}

// Notify публикует сообщение в вебхук.
func (s *Slack) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(slackPayload{Text: message})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.ObserveNetworkRequest("slack", "webhook_post", "incoming_webhook", start, err)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack webhook: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
