package bootstrap

import (
	"context"
	"fmt"
	"log"

	"query-responder-be/internal/config"
	"query-responder-be/internal/controller"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/internal/repository/implementation"
	"query-responder-be/internal/repository/memory"
	redisrepo "query-responder-be/internal/repository/redis"
	"query-responder-be/internal/service"
	"query-responder-be/internal/websocket"
	"query-responder-be/pkg/embedding"
	"query-responder-be/pkg/embedding/jina"
	"query-responder-be/pkg/events"
	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/llm/factory"
	"query-responder-be/pkg/rag/executor"
	"query-responder-be/pkg/rag/feedback"
	"query-responder-be/pkg/rag/grader"
	"query-responder-be/pkg/rag/planner"
	"query-responder-be/pkg/rag/rephrase"
	"query-responder-be/pkg/rag/retrieval"
	"query-responder-be/pkg/rag/session"
	"query-responder-be/pkg/rag/synthesis"
	"query-responder-be/pkg/rag/verifier"
	"query-responder-be/pkg/rag/websearch"
	"query-responder-be/pkg/tokenizer"

	pktNats "query-responder-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const eventTopic = "rag.events"

type Container struct {
	// Controllers
	ChatbotController controller.IChatbotController
	HealthController  controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Exposed for the simulation and ingest tools
	Orchestrator *executor.Orchestrator
	Sessions     *session.Store
	Chunks       contract.DocumentChunkRepository
	Embedder     embedding.EmbeddingProvider

	WebSocketHub *websocket.Hub
	Logger       logger.ILogger

	closers []func()
}

// Overrides replaces pieces of the stack; nil fields are built from config.
type Overrides struct {
	LLM      llm.LLMProvider
	Embedder embedding.EmbeddingProvider
	Searcher executor.WebSearcher
	Logger   logger.ILogger
}

// NewContainer builds the whole application. db may be nil, in which case the
// document index and feedback store are kept in memory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c, err := Build(db, cfg, Overrides{})
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	return c
}

func Build(db *gorm.DB, cfg *config.Config, o Overrides) (*Container, error) {
	c := &Container{}

	// 1. Logging
	sysLogger := o.Logger
	var promptTrace logger.ILogger = logger.NewNopLogger()
	if sysLogger == nil {
		zl := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
		sysLogger = zl
		c.closers = append(c.closers, func() { _ = zl.Sync() })
		promptTrace = logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)
	}
	c.Logger = sysLogger

	// 2. Storage
	var (
		chunkRepo    contract.DocumentChunkRepository
		feedbackRepo contract.FeedbackRepository
	)
	if db != nil {
		chunkRepo = implementation.NewDocumentChunkRepository(db)
		feedbackRepo = implementation.NewFeedbackRepository(db)
	} else {
		sysLogger.Warn("Bootstrap", "No database configured, using in-memory index and feedback store", nil)
		chunkRepo = memory.NewDocumentChunkRepository()
		feedbackRepo = memory.NewFeedbackRepository()
	}
	c.Chunks = chunkRepo

	rdb := newRedis(cfg, sysLogger)
	if rdb != nil {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	var sessionRepo contract.SessionRepository
	if cfg.Session.Backend == "redis" && rdb != nil {
		sessionRepo = redisrepo.NewSessionRepository(rdb, cfg.Session.TTL)
		sysLogger.Info("Bootstrap", "Session store: redis", map[string]interface{}{"ttl": cfg.Session.TTL.String()})
	} else {
		sessionRepo = memory.NewSessionRepository(cfg.Session.TTL)
		sysLogger.Info("Bootstrap", "Session store: memory", map[string]interface{}{"ttl": cfg.Session.TTL.String()})
	}
	sessions := session.NewStore(sessionRepo, sysLogger)
	c.Sessions = sessions

	// 3. Model providers
	embedder := o.Embedder
	if embedder == nil {
		embedder = newEmbedder(cfg.Ai)
	}
	c.Embedder = embedder
	sysLogger.Info("Bootstrap", "Embedding provider", map[string]interface{}{"provider": cfg.Ai.EmbeddingProvider, "model": cfg.Ai.EmbeddingModel})

	provider := o.LLM
	if provider == nil {
		p, err := factory.NewLLMProvider(factory.ProviderConfig{
			Provider:    cfg.Ai.LLMProvider,
			Model:       cfg.Ai.LLMModel,
			Temperature: cfg.Ai.Temperature,
			MaxTokens:   cfg.Ai.MaxTokens,
			BaseURL:     providerBaseURL(cfg.Ai),
			APIKey:      providerAPIKey(cfg.Ai),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
		provider = p
	}
	gatewayCfg := llm.DefaultGatewayConfig()
	gatewayCfg.RequestsPerSecond = cfg.Ai.RequestsPerSecond
	gatewayCfg.Burst = cfg.Ai.Burst
	gatewayCfg.MaxConcurrent = cfg.Ai.MaxConcurrent
	gatewayCfg.CallTimeout = cfg.Ai.CallTimeout
	gatewayCfg.MaxRetries = cfg.Ai.MaxRetries
	gateway := llm.NewGateway(provider, cfg.Ai.LLMProvider, gatewayCfg, sysLogger, promptTrace)
	sysLogger.Info("Bootstrap", "LLM provider", map[string]interface{}{"provider": cfg.Ai.LLMProvider, "model": cfg.Ai.LLMModel})

	// 4. Event bus
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { _ = bus.Close() })
	publisher := service.NewPublisherService(eventTopic, bus, sysLogger)

	var relay events.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
		if err != nil {
			sysLogger.Warn("Bootstrap", "NATS unavailable, events stay in process", map[string]interface{}{"error": err.Error()})
		} else {
			relay = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	c.ConsumerService = service.NewConsumerService(bus, eventTopic, relay, sysLogger)

	// 5. RAG pipeline
	retriever := retrieval.NewRetriever(embedder, chunkRepo, retrieval.Config{
		Collection: cfg.Rag.Collection,
		TopK:       cfg.Rag.TopK,
		MinScore:   cfg.Rag.MinScore,
	}, sysLogger)

	var searcher executor.WebSearcher
	webStatus := "disabled (SERPER_API_KEY not set)"
	if o.Searcher != nil {
		searcher = o.Searcher
		webStatus = "enabled"
	} else {
		s := websearch.NewSearcher(websearch.Config{
			APIKey:            cfg.Search.SerperAPIKey,
			URL:               cfg.Search.SerperURL,
			ResultCount:       cfg.Search.ResultCount,
			RequestsPerSecond: cfg.Search.RequestsPerSecond,
			Timeout:           cfg.Search.Timeout,
		}, sysLogger)
		searcher = s
		if s.Enabled() {
			webStatus = "enabled"
		}
	}

	synthCfg := synthesis.DefaultConfig()
	synthCfg.HistoryWindow = cfg.Rag.HistoryWindow
	synthCfg.TokenBudget = cfg.Rag.TokenBudget

	orchestrator := executor.NewOrchestrator(executor.Components{
		Sessions:    sessions,
		Planner:     planner.NewPlanner(gateway, sysLogger),
		Retriever:   retriever,
		Grader:      grader.NewGrader(gateway, sysLogger),
		Searcher:    searcher,
		Synthesizer: synthesis.NewSynthesizer(gateway, tokenizer.New(cfg.Rag.TokenizerModel), synthCfg, sysLogger),
		Verifier:    verifier.NewVerifier(gateway, sysLogger),
		Rephraser:   rephrase.NewRephraser(gateway, sysLogger),
		Publisher:   publisher,
	}, executor.Config{
		TopK:                cfg.Rag.TopK,
		HighConfidenceScore: cfg.Rag.HighConfidenceScore,
		ExactMatchScore:     cfg.Rag.ExactMatchScore,
		HistoryWindow:       cfg.Rag.HistoryWindow,
		WebResultCount:      cfg.Search.ResultCount,
		ConsentScope:        cfg.Rag.ConsentScope,
		MaxQueryLength:      cfg.Rag.MaxQueryLength,
		RequestTimeout:      cfg.Rag.RequestTimeout,
	}, sysLogger)
	c.Orchestrator = orchestrator

	recorder := feedback.NewRecorder(sessions, feedbackRepo, publisher, sysLogger)

	// 6. Health
	probes := map[string]service.Pinger{
		"database": retriever,
		"sessions": sessions,
	}
	static := map[string]string{
		"llm_provider": fmt.Sprintf("%s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel),
		"web_search":   webStatus,
	}
	if rdb != nil {
		probes["redis"] = service.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		static["redis"] = "not configured"
	}
	healthService := service.NewHealthService(probes, static)

	// 7. Controllers
	hub := websocket.NewHub(sysLogger)
	go hub.Run()
	c.WebSocketHub = hub
	c.closers = append(c.closers, hub.Stop)

	c.ChatbotController = controller.NewChatbotController(service.NewChatbotService(orchestrator, recorder), hub, cfg.App.JwtSecret, sysLogger)
	c.HealthController = controller.NewHealthController(healthService)

	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newRedis(cfg *config.Config, log logger.ILogger) *redis.Client {
	if cfg.App.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}

func newEmbedder(ai config.AIConfig) embedding.EmbeddingProvider {
	switch ai.EmbeddingProvider {
	case "openai":
		return embedding.NewOpenAIProvider(ai.OpenAIAPIKey, ai.OpenAIBaseURL, ai.EmbeddingModel)
	case "gemini":
		return embedding.NewGeminiProvider(ai.GeminiAPIKey, ai.EmbeddingModel)
	case "jina":
		return jina.NewJinaProvider(ai.JinaAPIKey, "", ai.EmbeddingModel)
	default:
		return embedding.NewOllamaProvider(ai.OllamaBaseURL, ai.EmbeddingModel)
	}
}

func providerBaseURL(ai config.AIConfig) string {
	switch ai.LLMProvider {
	case "openai":
		return ai.OpenAIBaseURL
	case "ollama":
		return ai.OllamaBaseURL
	default:
		return ""
	}
}

func providerAPIKey(ai config.AIConfig) string {
	switch ai.LLMProvider {
	case "openai":
		return ai.OpenAIAPIKey
	case "claude", "anthropic":
		return ai.ClaudeAPIKey
	case "gemini":
		return ai.GeminiAPIKey
	case "huggingface":
		return ai.HuggingFaceAPIKey
	default:
		return ""
	}
}
