package optimize

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/metrics"
	"content-optimizer/internal/usecase/analyze"
)

var (
	hashtagWordPattern = regexp.MustCompile(`#\w+\b`)
	nonWordPattern     = regexp.MustCompile(`\W+`)
)

// Config задаёт правила хаус-стайла пайплайна.
type Config struct {
	MaxHashtags      int
	MinWords         int
	MaxWords         int
	ApplyCorrection  bool
	CTASentence      string
	TrendingHashtags []string
}

// Service реализует пайплайн оптимизации текста и скоринг вовлечённости.
type Service struct {
	cfg       Config
	analyzer  *analyze.Service
	corrector domain.GrammarCorrector
	log       zerolog.Logger
}

// NewService создаёт пайплайн. Корректор необязателен.
func NewService(cfg Config, analyzer *analyze.Service, corrector domain.GrammarCorrector, logger zerolog.Logger) *Service {
	return &Service{cfg: cfg, analyzer: analyzer, corrector: corrector, log: logger}
}

// Optimize прогоняет текст через детерминированную последовательность правил:
// нормализация, коррекция, CTA, хэштеги, длина, финальная чистка.
// Повторный прогон не обязан давать тот же результат: CTA и добивка
// накапливаются.
func (s *Service) Optimize(ctx context.Context, text string) string {
	start := time.Now()
	metrics.OptimizeTotal.Inc()
	defer func() {
		metrics.OptimizeSeconds.Observe(time.Since(start).Seconds())
	}()

	out := analyze.Normalize(text)

	out = s.correct(ctx, out)

	if !s.analyzer.ContainsCTA(out) {
		out += " " + s.cfg.CTASentence
	}

	out = s.LimitHashtags(out, s.cfg.MaxHashtags)

	if current := analyze.ExtractHashtags(out); len(current) < s.cfg.MaxHashtags {
		out = s.ensureHashtagsFromKeywords(out, s.cfg.MaxHashtags-len(current))
	}

	out = s.clampWords(out)

	out = analyze.Normalize(out)
	return capitalizeFirst(out)
}

// LimitHashtags оставляет не более max хэштегов. При превышении все хэштеги
// вырезаются из тела, а первые max дописываются в конце в исходном порядке.
// Текст на лимите или ниже возвращается без изменений, поэтому повторный
// вызов для такого текста идемпотентен.
func (s *Service) LimitHashtags(text string, max int) string {
	tags := analyze.ExtractHashtags(text)
	if len(tags) <= max {
		return text
	}
	kept := tags[:max]
	body := strings.TrimSpace(hashtagWordPattern.ReplaceAllString(text, ""))
	return strings.TrimSpace(body + " " + strings.Join(kept, " "))
}

// ensureHashtagsFromKeywords добирает недостающие хэштеги из трендовых
// ключевых слов, пропуская уже присутствующие (без учёта регистра).
func (s *Service) ensureHashtagsFromKeywords(text string, remaining int) string {
	existing := make(map[string]struct{})
	for _, tag := range analyze.ExtractHashtags(text) {
		existing[strings.ToLower(tag)] = struct{}{}
	}
	var toAdd []string
	for _, keyword := range s.analyzer.TrendingKeywords() {
		tag := "#" + nonWordPattern.ReplaceAllString(keyword, "")
		lowered := strings.ToLower(tag)
		if _, ok := existing[lowered]; ok {
			continue
		}
		existing[lowered] = struct{}{}
		toAdd = append(toAdd, tag)
		if len(toAdd) >= remaining {
			break
		}
	}
	if len(toAdd) == 0 {
		return text
	}
	sep := " · "
	if endsWithSentencePunct(text) {
		sep = " "
	}
	return strings.TrimSpace(text + sep + strings.Join(toAdd, " "))
}

// clampWords обрезает слишком длинный текст и добивает слишком короткий
// парой трендовых хэштегов. Добивка намеренно не подчиняется лимиту
// хэштегов: итоговое их число может превысить максимум. Обрезка и добивка
// взаимоисключающие в рамках одного прогона.
func (s *Service) clampWords(text string) string {
	words := strings.Fields(text)
	if len(words) > s.cfg.MaxWords {
		return strings.Join(words[:s.cfg.MaxWords], " ") + "..."
	}
	if len(words) < s.cfg.MinWords {
		padding := s.cfg.TrendingHashtags
		if len(padding) > 2 {
			padding = padding[:2]
		}
		return strings.TrimSpace(text + " " + strings.Join(padding, " "))
	}
	return text
}

// EngagementScore считает эвристическую оценку желательности текста.
// Использует внешний оценщик тональности, не лексиконный.
func (s *Service) EngagementScore(ctx context.Context, text string) float64 {
	if text == "" {
		return 0.0
	}
	words := len(strings.Fields(text))
	tags := len(analyze.ExtractHashtags(text))
	sentiment := s.analyzer.EstimateSentiment(ctx, text)
	score := float64(words)*0.1 + float64(tags)*5.0 + sentiment.Score*10.0
	return math.Round(score*100) / 100
}

// Analyze собирает полный набор анализаторов по одному тексту.
func (s *Service) Analyze(ctx context.Context, text string) domain.ContentAnalysis {
	return domain.ContentAnalysis{
		Sentiment:       s.analyzer.EstimateSentiment(ctx, text),
		Readability:     analyze.Readability(text),
		Hashtags:        analyze.ExtractHashtags(text),
		TrendRelevance:  s.analyzer.TrendRelevance(text),
		EngagementScore: s.EngagementScore(ctx, text),
		HasCTA:          s.analyzer.ContainsCTA(text),
	}
}

func (s *Service) correct(ctx context.Context, text string) string {
	if !s.cfg.ApplyCorrection || s.corrector == nil || text == "" {
		return text
	}
	fixed, err := s.corrector.Correct(ctx, text)
	if err != nil {
		metrics.CorrectionFallbacks.Inc()
		s.log.Debug().Err(err).Msg("коррекция грамматики недоступна, текст без изменений")
		return text
	}
	return fixed
}

func endsWithSentencePunct(text string) bool {
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

func capitalizeFirst(text string) string {
	if text == "" {
		return text
	}
	runes := []rune(text)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
