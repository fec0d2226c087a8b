package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "content-optimizer/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM реализует оценщик полярности через OpenAI Chat Completions.
type LLM struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// NewLLM создаёт оценщик тональности.
func NewLLM(client chatClient, model string, timeout time.Duration) *LLM {
	if model == "" {
		model = "gpt-4.1-mini"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &LLM{client: client, model: model, timeout: timeout}
}

type polarityPayload struct {
	Polarity float64 `json:"polarity"`
}

// EstimatePolarity возвращает полярность текста в диапазоне [-1, 1].
func (e *LLM) EstimatePolarity(ctx context.Context, text string) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0.0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf(`Estimate the sentiment polarity of the following marketing text.
Return JSON of the form {"polarity": x} where x is a float in [-1, 1], no explanations.
Text:
%s`, clipRunes(trimmed, 2000))

	req := openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: 0,
		MaxTokens:   50,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.RoleSystem,
				Content: "You are a precise sentiment rater. Respond with JSON only.",
			},
			{
				Role:    openai.RoleUser,
				Content: userPrompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0.0, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0.0, fmt.Errorf("openai completion: пустой ответ")
	}
	var parsed polarityPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Choices[0].Message.Content)), &parsed); err != nil {
		return 0.0, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	return clamp(parsed.Polarity, -1, 1), nil
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
