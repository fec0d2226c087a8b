package corrector

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "content-optimizer/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI реализует грамматическую коррекцию через Chat Completions.
// Любая ошибка отдаётся вызывающей стороне, которая оставляет текст как есть.
type OpenAI struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// NewOpenAI создаёт корректор.
func NewOpenAI(client chatClient, model string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAI{client: client, model: model, timeout: timeout}
}

// Correct возвращает текст с исправленной грамматикой.
func (c *OpenAI) Correct(ctx context.Context, text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0,
		MaxTokens:   600,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You fix grammar and spelling. Keep the meaning, tone, hashtags and emoji untouched. Reply with the corrected text only.",
			},
			{
				Role:    openai.RoleUser,
				Content: trimmed,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: пустой ответ")
	}
	corrected := strings.TrimSpace(resp.Choices[0].Message.Content)
	if corrected == "" {
		return "", fmt.Errorf("openai completion: пустой текст")
	}
	return corrected, nil
}
