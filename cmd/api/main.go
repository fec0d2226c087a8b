package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"content-optimizer/internal/adapters/corrector"
	"content-optimizer/internal/adapters/estimator"
	"content-optimizer/internal/adapters/generator"
	"content-optimizer/internal/adapters/notifier"
	"content-optimizer/internal/adapters/repo"
	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/cache"
	"content-optimizer/internal/infra/config"
	"content-optimizer/internal/infra/db"
	httpinfra "content-optimizer/internal/infra/http"
	infralog "content-optimizer/internal/infra/log"
	"content-optimizer/internal/infra/metrics"
	"content-optimizer/internal/infra/openai"
	"content-optimizer/internal/infra/queue"
	"content-optimizer/internal/usecase/analyze"
	contentusecase "content-optimizer/internal/usecase/content"
	"content-optimizer/internal/usecase/optimize"
	"content-optimizer/internal/usecase/performance"
)

func main() {
	cfg := config.Load()
	log.Logger = infralog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store       domain.MetricsStore
		contentRepo domain.ContentRepo
	)
	if cfg.PGDSN != "" {
		pool, err := db.Connect(cfg.PGDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("api: нет подключения к БД")
		}
		defer pool.Close()
		pg := repo.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("api: не удалось создать схему")
		}
		store = pg
		contentRepo = pg
	} else {
		store = repo.NewCSVStore(cfg.MetricsCSV, log.With().Str("component", "csv_store").Logger())
		log.Info().Str("file", cfg.MetricsCSV).Msg("api: метрики пишутся в CSV, Postgres не настроен")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	var (
		estimatorAdapter domain.SentimentEstimator
		correctorAdapter domain.GrammarCorrector
		generatorAdapter domain.ContentGenerator
	)
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second)
		estimatorAdapter = estimator.NewLLM(client, cfg.OpenAI.Model, 0)
		correctorAdapter = corrector.NewOpenAI(client, cfg.OpenAI.Model, 0)
		generatorAdapter = generator.NewOpenAI(client, cfg.OpenAI.Model, 0)
	}

	analyzer := analyze.NewService(analyze.Config{
		TrendingKeywords: cfg.Pipeline.TrendingKeywords,
		CTAPhrases:       cfg.Pipeline.CTAPhrases,
		PositiveWords:    cfg.Lexicon.PositiveWords,
		NegativeWords:    cfg.Lexicon.NegativeWords,
	}, estimatorAdapter, log.With().Str("component", "analyze").Logger())

	optimizer := optimize.NewService(optimize.Config{
		MaxHashtags:      cfg.Pipeline.MaxHashtags,
		MinWords:         cfg.Pipeline.MinWords,
		MaxWords:         cfg.Pipeline.MaxWords,
		ApplyCorrection:  cfg.Pipeline.ApplyCorrection,
		CTASentence:      cfg.Pipeline.CTASentence,
		TrendingHashtags: cfg.Pipeline.TrendingHashtags,
	}, analyzer, correctorAdapter, log.With().Str("component", "optimize").Logger())

	alertSink := buildNotifier(cfg)

	var limiter domain.AlertLimiter
	if redisClient != nil {
		limiter = cache.NewRedis(redisClient)
	}

	perf := performance.NewService(store, analyzer, alertSink, limiter, performance.AlertThresholds{
		HighCTR:        cfg.Alerts.HighCTR,
		HighEngagement: cfg.Alerts.HighEngagement,
		LowCTR:         cfg.Alerts.LowCTR,
	}, log.With().Str("component", "performance").Logger())

	jobs := buildQueue(cfg, redisClient)

	var contentService *contentusecase.Service
	if contentRepo != nil && jobs != nil {
		contentService = contentusecase.NewService(contentRepo, jobs, generatorAdapter, optimizer, alertSink, log.With().Str("component", "content").Logger())
	}

	server := httpinfra.NewServer(log.With().Str("component", "http").Logger())
	r := server.Router

	r.Group(func(protected chi.Router) {
		protected.Use(httpinfra.APIKeyAuthMiddleware(cfg.APIKey))

		protected.Post("/api/v1/optimize", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req optimizeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			optimized := optimizer.Optimize(r.Context(), req.Text)
			analysis := optimizer.Analyze(r.Context(), optimized)
			writeJSON(w, optimizeResponse{
				Optimized:       optimized,
				SentimentScore:  analysis.Sentiment.Score,
				SentimentLabel:  analysis.Sentiment.Label,
				Readability:     string(analysis.Readability),
				Hashtags:        analysis.Hashtags,
				TrendRelevance:  analysis.TrendRelevance,
				EngagementScore: analysis.EngagementScore,
				HasCTA:          analysis.HasCTA,
			})
		})

		protected.Post("/api/v1/analyze", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req analyzeRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			record, err := perf.LogSentiment(r.Context(), req.PostID, req.Variant, req.Text)
			if err != nil {
				log.Error().Err(err).Msg("api: sentiment row not saved")
				writeError(w, http.StatusInternalServerError, "failed to save sentiment")
				return
			}
			writeJSON(w, map[string]any{
				"sentiment_score": record.SentimentScore,
				"sentiment_label": record.SentimentLabel,
			})
		})

		protected.Post("/api/v1/metrics", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req metricsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if req.PostID == "" {
				writeError(w, http.StatusBadRequest, "post_id is required")
				return
			}
			record, err := perf.LogPost(r.Context(), req.PostID, req.Variant, req.Text, domain.CounterGroup{
				Impressions: req.Impressions,
				Clicks:      req.Clicks,
				Likes:       req.Likes,
				Comments:    req.Comments,
			})
			if err != nil {
				log.Error().Err(err).Msg("api: metrics row not saved")
				writeError(w, http.StatusInternalServerError, "failed to save metrics")
				return
			}
			writeJSON(w, metricsResponse{
				PostID:         record.PostID,
				Variant:        record.Variant,
				CTR:            record.CTR,
				EngagementRate: record.EngagementRate,
				SentimentScore: record.SentimentScore,
				SentimentLabel: record.SentimentLabel,
			})
		})

		protected.Post("/api/v1/abtest", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			var req abTestRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if req.TestID == "" {
				writeError(w, http.StatusBadRequest, "test_id is required")
				return
			}
			result, err := perf.RunABTest(r.Context(), req.TestID, req.PostID, req.TextA, req.TextB,
				counters(req.A), counters(req.B))
			if err != nil {
				log.Error().Err(err).Msg("api: ab test not saved")
				writeError(w, http.StatusInternalServerError, "failed to run ab test")
				return
			}
			writeJSON(w, abTestResponse{
				TestID:      result.TestID,
				Winner:      result.Winner,
				Reason:      result.Reason,
				ACTR:        result.ACTR,
				AEngagement: result.AEngagement,
				BCTR:        result.BCTR,
				BEngagement: result.BEngagement,
			})
		})

		protected.Get("/api/v1/report", func(w http.ResponseWriter, r *http.Request) {
			summary, err := perf.Summarize(r.Context())
			if err != nil {
				if errors.Is(err, performance.ErrNoMetrics) {
					writeJSON(w, reportResponse{})
					return
				}
				log.Error().Err(err).Msg("api: report failed")
				writeError(w, http.StatusInternalServerError, "failed to build report")
				return
			}
			writeJSON(w, reportResponse{
				Count:             summary.Count,
				AvgCTR:            summary.AvgCTR,
				AvgEngagementRate: summary.AvgEngagementRate,
			})
		})

		protected.Post("/api/v1/content", func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			if contentService == nil {
				writeError(w, http.StatusServiceUnavailable, "content pipeline is not configured")
				return
			}
			var req contentRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			var (
				row domain.ContentRow
				err error
			)
			if req.Text != "" {
				row, err = contentService.SubmitText(r.Context(), req.Topic, req.Platform, req.Text)
			} else {
				row, err = contentService.GenerateAndQueue(r.Context(), req.Topic, req.Platform)
			}
			if err != nil {
				if errors.Is(err, contentusecase.ErrNoGenerator) {
					writeError(w, http.StatusServiceUnavailable, "content generator is not configured")
					return
				}
				log.Error().Err(err).Msg("api: content not queued")
				writeError(w, http.StatusInternalServerError, "failed to queue content")
				return
			}
			writeJSON(w, map[string]any{
				"id":        row.ID,
				"topic":     row.Topic,
				"platform":  row.Platform,
				"generated": row.Generated,
			})
		})

		protected.Get("/api/v1/content/{id}", func(w http.ResponseWriter, r *http.Request) {
			if contentRepo == nil {
				writeError(w, http.StatusServiceUnavailable, "content storage is not configured")
				return
			}
			row, err := contentRepo.GetContent(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				if errors.Is(err, repo.ErrContentNotFound) {
					writeError(w, http.StatusNotFound, "content not found")
					return
				}
				log.Error().Err(err).Msg("api: content read failed")
				writeError(w, http.StatusInternalServerError, "failed to read content")
				return
			}
			writeJSON(w, row)
		})
	})

	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()
	<-ctx.Done()
	log.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func buildNotifier(cfg config.AppConfig) domain.Notifier {
	if cfg.Slack.WebhookURL != "" {
		return notifier.NewSlack(cfg.Slack.WebhookURL, 0)
	}
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error().Err(err).Msg("api: Telegram недоступен, уведомления в лог")
		} else {
			return notifier.NewTelegram(bot, cfg.Telegram.ChatID)
		}
	}
	return notifier.NewLog(log.With().Str("component", "notifier").Logger())
}

func buildQueue(cfg config.AppConfig, redisClient *redis.Client) domain.OptimizeQueue {
	if redisClient != nil {
		return queue.NewRedisOptimizeQueue(redisClient, cfg.Queues.Optimize)
	}
	if cfg.AMQP.URL != "" {
		q, err := queue.NewRabbitOptimizeQueue(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Error().Err(err).Msg("api: RabbitMQ недоступен")
			return nil
		}
		return q
	}
	return nil
}

func counters(c countersPayload) domain.CounterGroup {
	return domain.CounterGroup{
		Impressions: c.Impressions,
		Clicks:      c.Clicks,
		Likes:       c.Likes,
		Comments:    c.Comments,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg})
}

type optimizeRequest struct {
	Text string `json:"text"`
}

type optimizeResponse struct {
	Optimized       string   `json:"optimized"`
	SentimentScore  float64  `json:"sentiment_score"`
	SentimentLabel  string   `json:"sentiment_label"`
	Readability     string   `json:"readability"`
	Hashtags        []string `json:"hashtags"`
	TrendRelevance  float64  `json:"trend_relevance"`
	EngagementScore float64  `json:"engagement_score"`
	HasCTA          bool     `json:"has_cta"`
}

type analyzeRequest struct {
	PostID  string `json:"post_id"`
	Variant string `json:"variant"`
	Text    string `json:"text"`
}

type metricsRequest struct {
	PostID      string `json:"post_id"`
	Variant     string `json:"variant"`
	Text        string `json:"text"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
	Likes       int64  `json:"likes"`
	Comments    int64  `json:"comments"`
}

type metricsResponse struct {
	PostID         string  `json:"post_id"`
	Variant        string  `json:"variant"`
	CTR            float64 `json:"ctr"`
	EngagementRate float64 `json:"engagement_rate"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
}

type countersPayload struct {
	Impressions int64 `json:"impressions"`
	Clicks      int64 `json:"clicks"`
	Likes       int64 `json:"likes"`
	Comments    int64 `json:"comments"`
}

type abTestRequest struct {
	TestID string          `json:"test_id"`
	PostID string          `json:"post_id"`
	TextA  string          `json:"text_a"`
	TextB  string          `json:"text_b"`
	A      countersPayload `json:"a"`
	B      countersPayload `json:"b"`
}

type abTestResponse struct {
	TestID      string  `json:"test_id"`
	Winner      string  `json:"winner"`
	Reason      string  `json:"reason"`
	ACTR        float64 `json:"a_ctr"`
	AEngagement float64 `json:"a_eng"`
	BCTR        float64 `json:"b_ctr"`
	BEngagement float64 `json:"b_eng"`
}

type reportResponse struct {
	Count             int     `json:"count"`
	AvgCTR            float64 `json:"avg_ctr"`
	AvgEngagementRate float64 `json:"avg_engagement_rate"`
}

type contentRequest struct {
	Topic    string `json:"topic"`
	Platform string `json:"platform"`
	Text     string `json:"text,omitempty"`
}
