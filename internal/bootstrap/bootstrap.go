package bootstrap

import (
	"context"
	"fmt"

	"github.com/kirillkom/corpus-chat/internal/config"
	"github.com/kirillkom/corpus-chat/internal/core/ports"
	"github.com/kirillkom/corpus-chat/internal/core/usecase"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/cache"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/chunking"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/extractor"
	pdfextractor "github.com/kirillkom/corpus-chat/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/llm/openrouter"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/queue/nats"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/rerank/crossencoder"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/resilience"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/corpus-chat/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Cache     *cache.Memory
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	QueryUC   ports.QueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	passageRepo := postgres.NewPassageRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIngestSubject, cfg.NATSChangedSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	rules, err := config.LoadHeuristics(cfg.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load retrieval rules: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbedDimension)

	generator := openrouter.New(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, openrouter.Options{
		SiteURL:            cfg.OpenRouterSiteURL,
		SiteName:           cfg.OpenRouterSiteName,
		RequestsPerMinute:  cfg.OpenRouterRPM,
		ResilienceExecutor: executor,
	})

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantDistance)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)

	texts := extractor.NewSelector(
		pdfextractor.NewExtractor(storage),
		spreadsheet.NewExtractor(storage),
		plaintext.NewExtractor(storage),
	)

	answerCache := cache.New(cfg.CacheTTL, cfg.CacheEnabled, nil)

	var reranker ports.Reranker
	if cfg.RerankerURL != "" {
		reranker = crossencoder.New(cfg.RerankerURL, cfg.RerankerModel)
	}

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue, passageRepo, vectorDB)
	processUC := usecase.NewProcessDocumentUseCase(repo, texts, chunker, embedder, vectorDB, passageRepo, queue)
	queryUC := usecase.NewAnswerUseCase(
		usecase.NewNormalizer(rules.NormalizerFixes),
		answerCache,
		usecase.NewRetrievalEngine(embedder, vectorDB, passageRepo, rules.IntentRules),
		usecase.NewRerankerBridge(reranker),
		usecase.NewGroundingPolicy(rules.GeneralKnowledgeTriggers),
		usecase.NewContextBudgeter(cfg.RAGContextBudget),
		generator,
		cfg.RAGMaxTokens,
		cfg.RAGTemperature,
	)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Cache:  answerCache,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		QueryUC:   queryUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
