package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	OptimizeSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimize_pipeline_seconds",
		Help:    "Время прогона пайплайна оптимизации",
		Buckets: prometheus.DefBuckets,
	})
	OptimizeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "optimize_requests_total",
		Help: "Общее количество запусков пайплайна оптимизации",
	})
	CorrectionFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "grammar_correction_fallbacks_total",
		Help: "Отказы внешнего корректора с откатом к исходному тексту",
	})
	EstimatorFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentiment_estimator_fallbacks_total",
		Help: "Отказы внешнего оценщика тональности с откатом к 0.0",
	})
	MetricsRowsAppended = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metrics_rows_appended_total",
		Help: "Строки метрик, добавленные в хранилище",
	})
	MetricsAppendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metrics_append_errors_total",
		Help: "Ошибки записи в хранилище метрик",
	})
	ABTestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ab_tests_total",
		Help: "Количество A/B-сравнений по итогу",
	}, []string{"winner"})
	AlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_total",
		Help: "Сработавшие алёрты по типу",
	}, []string{"kind"})
	WorkerJobErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "worker_job_errors_total",
		Help: "Ошибки обработки задач оптимизации",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		OptimizeSeconds,
		OptimizeTotal,
		CorrectionFallbacks,
		EstimatorFallbacks,
		MetricsRowsAppended,
		MetricsAppendErrors,
		ABTestsTotal,
		AlertsTotal,
		WorkerJobErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}
