package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ametelin/docqa/internal/config"
	"github.com/ametelin/docqa/internal/core/domain"
	"github.com/ametelin/docqa/internal/core/ports"
	"github.com/ametelin/docqa/internal/core/usecase"
	"github.com/ametelin/docqa/internal/infrastructure/ingest"
	"github.com/ametelin/docqa/internal/infrastructure/keyword"
	"github.com/ametelin/docqa/internal/infrastructure/llm/ollama"
	"github.com/ametelin/docqa/internal/infrastructure/queue/nats"
	"github.com/ametelin/docqa/internal/infrastructure/repository/postgres"
	"github.com/ametelin/docqa/internal/infrastructure/rerank"
	"github.com/ametelin/docqa/internal/infrastructure/resilience"
	"github.com/ametelin/docqa/internal/infrastructure/storage/localfs"
	"github.com/ametelin/docqa/internal/infrastructure/vector/qdrant"
)

// App holds the wired object graph shared by the api and worker binaries.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Bus       *nats.Bus
	Storage   ports.ObjectStorage
	Retriever *usecase.RetrieverProvider
	Jobs      *usecase.JobTracker
	AnswerUC  *usecase.AnswerUseCase
	BuildUC   *usecase.BuildUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	corpora := postgres.NewCorpusRepository(db)
	if err := corpora.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	bus, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder)

	retriever := usecase.NewRetrieverProvider(vectorIndex, keyword.NewIndex, cfg.FusionAlpha, logger)

	defaultStrategy := parseDefaultStrategy(cfg.RetrievalStrategy, logger)
	router := usecase.NewStrategyRouter(routingRules(cfg.RouterRules), defaultStrategy, cfg.AlwaysRoute)
	rerankStage := newRerankStage(cfg, logger)
	jobs := usecase.NewJobTracker(cfg.JobCapacity)
	loader := ingest.NewLoader(storage, logger)

	answerUC := usecase.NewAnswerUseCase(router, retriever, rerankStage, generator, usecase.AnswerDefaults{
		Strategy: defaultStrategy,
		TopK:     cfg.RetrievalTopK,
	}, logger)
	buildUC := usecase.NewBuildUseCase(loader, vectorIndex, retriever, corpora, bus, jobs, ports.ChunkingOptions{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	}, logger)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Bus:       bus,
		Storage:   storage,
		Retriever: retriever,
		Jobs:      jobs,
		AnswerUC:  answerUC,
		BuildUC:   buildUC,

		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func parseDefaultStrategy(raw string, logger *slog.Logger) domain.Strategy {
	if raw == "" {
		return domain.StrategyVector
	}
	strategy, err := domain.ParseStrategy(raw)
	if err != nil {
		logger.Warn("invalid configured retrieval strategy, using vector", "configured", raw)
		return domain.StrategyVector
	}
	return strategy
}

func routingRules(rules []config.RoutingRule) []domain.RoutingRule {
	out := make([]domain.RoutingRule, 0, len(rules))
	for _, rule := range rules {
		out = append(out, domain.RoutingRule{
			Name:     rule.Name,
			Keywords: rule.Keywords,
			Strategy: domain.Strategy(rule.Strategy),
			Chain:    domain.ChainType(rule.Chain),
		})
	}
	return out
}

// newRerankStage selects the rerank backend by the configured model name.
// Missing runtime dependencies disable the stage with a reason instead of
// failing startup.
func newRerankStage(cfg config.Config, logger *slog.Logger) *usecase.RerankStage {
	variant := usecase.DetectRerankVariant(cfg.RerankModel)
	policy := usecase.RerankFailClosed
	if cfg.RerankFailOpen {
		policy = usecase.RerankFailOpen
	}

	var backend ports.Reranker
	var reason string
	switch variant {
	case usecase.RerankOff:
	case usecase.RerankCohere:
		if cfg.RerankAPIKey == "" {
			reason = "cohere api key is not configured"
		} else {
			backend = rerank.NewCohereClient(cfg.RerankEndpoint, cfg.RerankAPIKey, cfg.RerankModel)
		}
	default:
		// bge and generic cross-encoders score through a local HTTP endpoint.
		if cfg.RerankEndpoint == "" {
			reason = "local rerank endpoint is not configured"
		} else {
			backend = rerank.NewLocalClient(cfg.RerankEndpoint)
		}
	}
	return usecase.NewRerankStage(variant, backend, reason, cfg.RerankTopN, policy, logger)
}
