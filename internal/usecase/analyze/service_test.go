package analyze

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"content-optimizer/internal/domain"
)

func testConfig() Config {
	return Config{
		TrendingKeywords: []string{"AI", "Automation", "Digital", "Marketing", "Innovation", "Technology"},
		CTAPhrases:       []string{"follow", "subscribe", "learn more", "click", "visit", "try", "join", "buy", "shop"},
		PositiveWords:    []string{"great", "good", "love", "amazing", "excellent", "nice", "wow", "super", "fantastic", "awesome", "happy"},
		NegativeWords:    []string{"bad", "hate", "poor", "terrible", "worst", "boring", "awful", "angry", "sad", "disappointing"},
	}
}

type stubEstimator struct {
	polarity float64
	err      error
}

func (s *stubEstimator) EstimatePolarity(context.Context, string) (float64, error) {
	return s.polarity, s.err
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	got := Normalize("  hello\t\tworld \n new ")
	if got != "hello world new" {
		t.Fatalf("ожидали схлопнутые пробелы, получили %q", got)
	}
	if Normalize(got) != got {
		t.Fatalf("ожидали идемпотентность нормализации")
	}
	if strings.Contains(got, "  ") {
		t.Fatalf("в результате не должно быть двойных пробелов")
	}
}

func TestExtractHashtagsKeepsOrderAndDuplicates(t *testing.T) {
	got := ExtractHashtags("hi #A #b #A")
	want := []string{"#A", "#b", "#A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ожидали %v, получили %v", want, got)
	}
}

func TestReadabilityThresholds(t *testing.T) {
	easy := "One two three. Four five six."
	if got := Readability(easy); got != domain.ReadabilityEasy {
		t.Fatalf("ожидали Easy, получили %s", got)
	}
	medium := strings.Repeat("word ", 15) + "."
	if got := Readability(medium); got != domain.ReadabilityMedium {
		t.Fatalf("ожидали Medium, получили %s", got)
	}
	long := strings.Repeat("word ", 25) + "."
	if got := Readability(long); got != domain.ReadabilityComplex {
		t.Fatalf("ожидали Complex, получили %s", got)
	}
}

func TestReadabilityWithoutSentences(t *testing.T) {
	// Ноль предложений считается как одно, деления на ноль нет.
	if got := Readability("ten words without any punctuation at all here right now"); got != domain.ReadabilityEasy {
		t.Fatalf("ожидали Easy, получили %s", got)
	}
}

func TestLexiconSentimentPositive(t *testing.T) {
	s := NewService(testConfig(), nil, zerolog.Nop())
	got := s.LexiconSentiment("great great bad")
	if got.Score < 0.333 || got.Score > 0.334 {
		t.Fatalf("ожидали score около 0.333, получили %f", got.Score)
	}
	if got.Label != domain.LexiconPositive {
		t.Fatalf("ожидали positive, получили %s", got.Label)
	}
}

func TestLexiconSentimentBoundaries(t *testing.T) {
	s := NewService(testConfig(), nil, zerolog.Nop())
	// (3-2)/5 = 0.2 — ровно на границе, ещё neutral.
	got := s.LexiconSentiment("great great great bad bad")
	if got.Label != domain.LexiconNeutral {
		t.Fatalf("на границе 0.2 ожидали neutral, получили %s", got.Label)
	}
	// (2-3)/5 = -0.2 — тоже neutral.
	got = s.LexiconSentiment("great great bad bad bad")
	if got.Label != domain.LexiconNeutral {
		t.Fatalf("на границе -0.2 ожидали neutral, получили %s", got.Label)
	}
	got = s.LexiconSentiment("bad bad bad bad great")
	if got.Label != domain.LexiconNegative {
		t.Fatalf("ожидали negative, получили %s", got.Label)
	}
}

func TestLexiconSentimentNoMatches(t *testing.T) {
	s := NewService(testConfig(), nil, zerolog.Nop())
	got := s.LexiconSentiment("completely ordinary text")
	if got.Score != 0 || got.Label != domain.LexiconNeutral {
		t.Fatalf("ожидали 0/neutral, получили %f/%s", got.Score, got.Label)
	}
	got = s.LexiconSentiment("")
	if got.Score != 0 || got.Label != domain.LexiconNeutral {
		t.Fatalf("для пустого текста ожидали 0/neutral")
	}
}

func TestEstimateSentimentLabels(t *testing.T) {
	s := NewService(testConfig(), &stubEstimator{polarity: 0.5}, zerolog.Nop())
	got := s.EstimateSentiment(context.Background(), "anything")
	if got.Label != domain.SentimentPositive {
		t.Fatalf("ожидали Positive, получили %s", got.Label)
	}

	s = NewService(testConfig(), &stubEstimator{polarity: 0.3}, zerolog.Nop())
	got = s.EstimateSentiment(context.Background(), "anything")
	if got.Label != domain.SentimentNeutral {
		t.Fatalf("на границе 0.3 ожидали Neutral, получили %s", got.Label)
	}

	s = NewService(testConfig(), &stubEstimator{polarity: -0.1}, zerolog.Nop())
	got = s.EstimateSentiment(context.Background(), "anything")
	if got.Label != domain.SentimentNegative {
		t.Fatalf("ожидали Negative, получили %s", got.Label)
	}
}

func TestEstimateSentimentDegradesOnFailure(t *testing.T) {
	s := NewService(testConfig(), &stubEstimator{err: errors.New("timeout")}, zerolog.Nop())
	got := s.EstimateSentiment(context.Background(), "anything")
	if got.Score != 0 || got.Label != domain.SentimentNeutral {
		t.Fatalf("при отказе оценщика ожидали 0/Neutral, получили %f/%s", got.Score, got.Label)
	}
}

func TestEstimateSentimentWithoutEstimator(t *testing.T) {
	s := NewService(testConfig(), nil, zerolog.Nop())
	got := s.EstimateSentiment(context.Background(), "anything")
	if got.Score != 0 || got.Label != domain.SentimentNeutral {
		t.Fatalf("без оценщика ожидали 0/Neutral")
	}
}

func TestTrendRelevance(t *testing.T) {
	s := NewService(testConfig(), nil, zerolog.Nop())
	got := s.TrendRelevance("AI and digital marketing are everywhere")
	// 3 из 6 ключевых слов: AI, Digital, Marketing.
	if got != 0.5 {
		t.Fatalf("ожидали 0.5, получили %f", got)
	}
	if s.TrendRelevance("") != 0 {
		t.Fatalf("для пустого текста ожидали 0")
	}
}

func TestContainsCTA(t *testing.T) {
	s := NewService(testConfig(), nil, zerolog.Nop())
	if !s.ContainsCTA("Please SUBSCRIBE to our channel") {
		t.Fatalf("ожидали найденный CTA")
	}
	if s.ContainsCTA("just a plain sentence") {
		t.Fatalf("не ожидали CTA в обычном тексте")
	}
}
