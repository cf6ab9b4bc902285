package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/rueidis"

	"github.com/medassist/chat-backend/internal/config"
	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/core/ports"
	"github.com/medassist/chat-backend/internal/core/usecase"
	"github.com/medassist/chat-backend/internal/infrastructure/classifier/openai"
	"github.com/medassist/chat-backend/internal/infrastructure/embedding"
	"github.com/medassist/chat-backend/internal/infrastructure/llm/ollama"
	"github.com/medassist/chat-backend/internal/infrastructure/promptstore/redis"
	"github.com/medassist/chat-backend/internal/infrastructure/queue/nats"
	"github.com/medassist/chat-backend/internal/infrastructure/repository/postgres"
	"github.com/medassist/chat-backend/internal/infrastructure/resilience"
	"github.com/medassist/chat-backend/internal/infrastructure/vector/qdrant"
	"github.com/medassist/chat-backend/internal/observability/logging"
	"github.com/medassist/chat-backend/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue   ports.ExchangeQueue
	Store   ports.ConversationStore
	Memory  ports.MemoryService
	ChatUC  ports.ChatStreamer
	TitleUC ports.TitleService
	Persist ports.ExchangePersister

	Metrics       *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(service, cfg.LogLevel)
	slog.SetDefault(logger)

	executor := resilience.NewExecutorWithLogger(resilience.Config{
		RetryMaxAttempts:        cfg.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(cfg.RetryInitialDelayMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(cfg.RetryMaxDelayMS) * time.Millisecond,
		BreakerEnabled:          cfg.BreakerEnabled,
		BreakerMinRequests:      uint32(cfg.BreakerMinRequests),
		BreakerFailureRatio:     cfg.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.BreakerOpenSeconds) * time.Second,
		BreakerHalfOpenMaxCalls: uint32(cfg.BreakerHalfOpenCalls),
	}, logger)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewConversationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	vectorStore := qdrant.NewResilientStore(qdrant.New(cfg.QdrantURL, cfg.QdrantVectorSize), executor)
	embedder := embedding.NewResilientClient(embedding.New(cfg.OllamaURL, cfg.OllamaEmbedModel), executor)
	generator := ollama.NewResilientGenerator(ollama.New(cfg.OllamaURL, cfg.OllamaGenModel), executor)
	textImageClassifier := openai.New(cfg.ClassifierBaseURL, cfg.ClassifierAPIKey, cfg.ClassifierModel, executor)

	redisClient, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{cfg.RedisAddr},
		Password:    cfg.RedisPassword,
	})
	if err != nil {
		// Prompt profiles degrade to compiled-in defaults without Redis.
		logger.Warn("redis_unavailable", "addr", cfg.RedisAddr, "error", err)
		redisClient = nil
	}
	prompts := redis.NewStore(redisClient, logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		_ = db.Close()
		return nil, fmt.Errorf("init exchange queue: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	workerMetrics := metrics.NewWorkerMetrics(service)

	memory := usecase.NewMemoryUseCase(embedder, vectorStore, cfg.MemoryPrefix, cfg.MemoryCandidates, logger)
	chatUC := usecase.NewChatUseCase(
		embedder,
		vectorStore,
		textImageClassifier,
		generator,
		memory,
		prompts,
		queue,
		httpMetrics.PipelineObserver(service),
		domain.PipelineLimits{
			ClassifyTimeout:   time.Duration(cfg.ClassifySeconds) * time.Second,
			RetrievalTimeout:  time.Duration(cfg.RetrievalSeconds) * time.Second,
			GenerationTimeout: time.Duration(cfg.GenerationSeconds) * time.Second,
			HybridCandidates:  cfg.HybridCandidates,
			ContextTopN:       cfg.ContextTopN,
			MemoryTopK:        cfg.MemoryTopK,
		},
		logger,
	)
	titleUC := usecase.NewTitleUseCase(generator, textImageClassifier, prompts, logger)
	persistUC := usecase.NewPersistUseCase(repo, memory, logger)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Queue:         queue,
		Store:         repo,
		Memory:        memory,
		ChatUC:        chatUC,
		TitleUC:       titleUC,
		Persist:       persistUC,
		Metrics:       httpMetrics,
		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			if redisClient != nil {
				redisClient.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
