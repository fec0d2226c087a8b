package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"content-optimizer/internal/adapters/corrector"
	"content-optimizer/internal/adapters/estimator"
	"content-optimizer/internal/adapters/repo"
	"content-optimizer/internal/domain"
	"content-optimizer/internal/infra/config"
	"content-optimizer/internal/infra/db"
	infralog "content-optimizer/internal/infra/log"
	"content-optimizer/internal/infra/metrics"
	"content-optimizer/internal/infra/openai"
	"content-optimizer/internal/infra/queue"
	"content-optimizer/internal/usecase/analyze"
	contentusecase "content-optimizer/internal/usecase/content"
	"content-optimizer/internal/usecase/optimize"
)

func main() {
	cfg := config.Load()
	log.Logger = infralog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.PGDSN == "" {
		log.Fatal().Msg("worker: PG_DSN обязателен")
	}
	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()
	pg := repo.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("worker: не удалось создать схему")
	}

	var jobs domain.OptimizeQueue
	switch {
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		jobs = queue.NewRedisOptimizeQueue(client, cfg.Queues.Optimize)
	case cfg.AMQP.URL != "":
		rabbit, err := queue.NewRabbitOptimizeQueue(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			log.Fatal().Err(err).Msg("worker: RabbitMQ недоступен")
		}
		defer rabbit.Close()
		jobs = rabbit
	default:
		log.Fatal().Msg("worker: не настроена очередь (REDIS_ADDR или AMQP_URL)")
	}

	var (
		estimatorAdapter domain.SentimentEstimator
		correctorAdapter domain.GrammarCorrector
	)
	if cfg.OpenAI.APIKey != "" {
		client := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, time.Duration(cfg.OpenAI.TimeoutSeconds)*time.Second)
		estimatorAdapter = estimator.NewLLM(client, cfg.OpenAI.Model, 0)
		correctorAdapter = corrector.NewOpenAI(client, cfg.OpenAI.Model, 0)
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

	contentService := contentusecase.NewService(pg, jobs, nil, optimizer, nil, log.With().Str("component", "content").Logger())

	metrics.StartServer(ctx, log.With().Str("component", "metrics").Logger(), ":9090")
	log.Info().Msg("worker: старт")

	for {
		job, err := jobs.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error().Err(err).Msg("worker: очередь недоступна")
			time.Sleep(time.Second)
			continue
		}
		// Сбой одной задачи не останавливает обработку остальных.
		if err := contentService.ProcessJob(ctx, job); err != nil {
			metrics.WorkerJobErrors.Inc()
			log.Error().Err(err).Str("job", job.ID).Msg("worker: задача не обработана")
			continue
		}
		log.Info().Str("job", job.ID).Str("content", job.ContentID).Msg("worker: текст оптимизирован")
	}

	log.Info().Msg("worker: остановка")
}
