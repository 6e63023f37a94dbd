package bootstrap

import (
	"context"
	"log"
	"time"

	"policy-qa-be/internal/config"
	"policy-qa-be/internal/controller"
	"policy-qa-be/internal/pkg/logger"
	"policy-qa-be/internal/repository/unitofwork"
	"policy-qa-be/internal/service"
	"policy-qa-be/internal/websocket"
	"policy-qa-be/pkg/embedding"
	"policy-qa-be/pkg/llm/factory"
	"policy-qa-be/pkg/rag/answer"
	"policy-qa-be/pkg/rag/expand"
	"policy-qa-be/pkg/rag/judge"
	"policy-qa-be/pkg/rag/pipeline"
	"policy-qa-be/pkg/rag/query"
	"policy-qa-be/pkg/rag/search"

	pktNats "policy-qa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	QueryController controller.IQueryController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}
	// Query texts repeat across requests; cache their embeddings.
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub for live pipeline traces
	traceLogger := logger.NewIsolatedLogger("logs/trace.log")
	wsHub := websocket.NewHub(rdb, traceLogger)
	go wsHub.Run()

	// 4. Pipeline stages
	chunkRepo := uowFactory.NewUnitOfWork(context.Background()).DocumentChunkRepository()

	preprocessor := query.NewPreprocessor(query.DefaultTermDictionary())

	retriever := search.NewHybridRetriever(chunkRepo, embeddingProvider, search.Config{
		TopK:             cfg.Pipeline.TopK,
		VectorThreshold:  cfg.Pipeline.VectorThreshold,
		RelaxedThreshold: cfg.Pipeline.RelaxedThreshold,
		MaxContextTokens: cfg.Pipeline.MaxContextTokens,
		EmbeddingTimeout: time.Duration(cfg.Pipeline.EmbeddingTimeoutMs) * time.Millisecond,
		Fusion: search.FusionParams{
			K:             cfg.Pipeline.RRFConstant,
			VectorWeight:  cfg.Pipeline.VectorWeight,
			LexicalWeight: cfg.Pipeline.LexicalWeight,
		},
	}, sysLogger)

	contextJudge := judge.New(judge.Thresholds{
		MinResults:   cfg.Pipeline.MinResults,
		MinTokens:    cfg.Pipeline.MinContextTokens,
		QualityFloor: cfg.Pipeline.QualityFloor,
	})

	expander := expand.NewExpander(chunkRepo, expand.Config{
		SeedChunks:       cfg.Pipeline.ExpandSeedChunks,
		AdjacentWindow:   cfg.Pipeline.AdjacentWindow,
		MaxContextTokens: cfg.Pipeline.MaxContextTokens,
	}, sysLogger)

	generator := answer.NewGenerator(llmProvider, answer.GeneratorConfig{
		Temperature: 0.1,
		Timeout:     time.Duration(cfg.Pipeline.GenerationTimeoutMs) * time.Millisecond,
	}, sysLogger)

	validator := answer.NewValidator(
		llmProvider,
		embeddingProvider,
		chunkRepo,
		answer.ValidatorConfig{
			EmbeddingTimeout: time.Duration(cfg.Pipeline.EmbeddingTimeoutMs) * time.Millisecond,
			VerdictTimeout:   time.Duration(cfg.Pipeline.GenerationTimeoutMs) * time.Millisecond,
		},
		answer.Weights{
			Format:            cfg.Pipeline.FormatWeight,
			CitationExistence: cfg.Pipeline.CitationWeight,
			ContextAlignment:  cfg.Pipeline.AlignmentWeight,
			Faithfulness:      cfg.Pipeline.FaithfulnessWeight,
		},
		cfg.Pipeline.AcceptThreshold,
		sysLogger,
	)

	var sink pipeline.EventSink
	if natsPub != nil {
		sink = service.NewCompositeSink(natsPub, service.NewHubSink(wsHub))
	} else {
		sink = service.NewHubSink(wsHub)
	}

	orchestrator := pipeline.NewOrchestrator(
		preprocessor,
		retriever,
		contextJudge,
		expander,
		generator,
		validator,
		service.NewPassageBuilder(uowFactory),
		pipeline.Limits{
			MaxExpansions:    cfg.Pipeline.MaxExpansions,
			MaxRegenerations: cfg.Pipeline.MaxRegenerations,
		},
		sink,
		sysLogger,
	)

	// 5. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Keys.AnswerEventName)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.AnswerEventName,
		uowFactory,
		sysLogger,
	)

	queryService := service.NewQueryService(orchestrator, publisherService, sysLogger)

	// 6. Controllers
	return &Container{
		QueryController: controller.NewQueryController(queryService, wsHub),
		ConsumerService: consumerService,
		WebSocketHub:    wsHub,
	}
}
