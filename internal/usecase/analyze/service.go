package analyze

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/metrics"
)

var (
	hashtagPattern  = regexp.MustCompile(`#\w+`)
	spacePattern    = regexp.MustCompile(`\s+`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// Config содержит словари и списки, с которыми работают анализаторы.
// Списки неизменяемы после создания сервиса.
type Config struct {
	TrendingKeywords []string
	CTAPhrases       []string
	PositiveWords    []string
	NegativeWords    []string
}

// Service реализует лексические анализаторы текста.
type Service struct {
	keywords   []string
	ctaPhrases []string
	positive   map[string]struct{}
	negative   map[string]struct{}
	estimator  domain.SentimentEstimator
	log        zerolog.Logger
}

// NewService создаёт анализаторы. Внешний оценщик тональности необязателен:
// без него EstimateSentiment возвращает нейтральный результат.
func NewService(cfg Config, estimator domain.SentimentEstimator, logger zerolog.Logger) *Service {
	positive := make(map[string]struct{}, len(cfg.PositiveWords))
	for _, w := range cfg.PositiveWords {
		positive[strings.ToLower(w)] = struct{}{}
	}
	negative := make(map[string]struct{}, len(cfg.NegativeWords))
	for _, w := range cfg.NegativeWords {
		negative[strings.ToLower(w)] = struct{}{}
	}
	return &Service{
		keywords:   cfg.TrendingKeywords,
		ctaPhrases: cfg.CTAPhrases,
		positive:   positive,
		negative:   negative,
		estimator:  estimator,
		log:        logger,
	}
}

// Normalize схлопывает пробельные последовательности и обрезает края. Функция
// чистая и идемпотентная.
func Normalize(text string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// ExtractHashtags возвращает хэштеги в порядке появления, с повторами.
func ExtractHashtags(text string) []string {
	return hashtagPattern.FindAllString(text, -1)
}

// Readability оценивает уровень по средней длине предложения.
func Readability(text string) domain.ReadabilityLevel {
	words := len(strings.Fields(text))
	sentences := 0
	for _, segment := range sentencePattern.Split(text, -1) {
		if strings.TrimSpace(segment) != "" {
			sentences++
		}
	}
	if sentences == 0 {
		sentences = 1
	}
	avg := float64(words) / float64(sentences)
	switch {
	case avg <= 12:
		return domain.ReadabilityEasy
	case avg <= 20:
		return domain.ReadabilityMedium
	default:
		return domain.ReadabilityComplex
	}
}

// LexiconSentiment считает тональность по словарям контура метрик.
func (s *Service) LexiconSentiment(text string) domain.SentimentResult {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return domain.SentimentResult{Score: 0, Label: domain.LexiconNeutral}
	}
	pos, neg := 0, 0
	for _, token := range tokens {
		if _, ok := s.positive[token]; ok {
			pos++
		}
		if _, ok := s.negative[token]; ok {
			neg++
		}
	}
	if pos == 0 && neg == 0 {
		return domain.SentimentResult{Score: 0, Label: domain.LexiconNeutral}
	}
	score := float64(pos-neg) / float64(pos+neg)
	label := domain.LexiconNeutral
	switch {
	case score > 0.2:
		label = domain.LexiconPositive
	case score < -0.2:
		label = domain.LexiconNegative
	}
	return domain.SentimentResult{Score: score, Label: label}
}

// EstimateSentiment спрашивает внешний оценщик полярности. Любой его отказ
// деградирует до полярности 0.0, пайплайн продолжает работу.
func (s *Service) EstimateSentiment(ctx context.Context, text string) domain.SentimentResult {
	polarity := 0.0
	if s.estimator != nil {
		value, err := s.estimator.EstimatePolarity(ctx, text)
		if err != nil {
			metrics.EstimatorFallbacks.Inc()
			s.log.Debug().Err(err).Msg("оценщик тональности недоступен, полярность 0.0")
		} else {
			polarity = value
		}
	}
	polarity = round(polarity, 3)
	label := domain.SentimentNegative
	switch {
	case polarity > 0.3:
		label = domain.SentimentPositive
	case polarity >= 0:
		label = domain.SentimentNeutral
	}
	return domain.SentimentResult{Score: polarity, Label: label}
}

// TrendRelevance возвращает долю трендовых ключевых слов в тексте.
func (s *Service) TrendRelevance(text string) float64 {
	if text == "" {
		return 0.0
	}
	lowered := strings.ToLower(text)
	matches := 0
	for _, keyword := range s.keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			matches++
		}
	}
	total := len(s.keywords)
	if total < 1 {
		total = 1
	}
	return round(float64(matches)/float64(total), 2)
}

// ContainsCTA проверяет наличие призыва к действию.
func (s *Service) ContainsCTA(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range s.ctaPhrases {
		if strings.Contains(lowered, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

// TrendingKeywords возвращает список ключевых слов для синтеза хэштегов.
func (s *Service) TrendingKeywords() []string {
	return s.keywords
}

func round(value float64, digits int) float64 {
	factor := math.Pow(10, float64(digits))
	return math.Round(value*factor) / factor
}
