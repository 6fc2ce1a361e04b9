package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Rag      RagConfig
	Search   SearchConfig
	Session  SessionConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	LLMLogFilePath     string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	BodyLimitBytes     int
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama", "openai", "claude", "gemini", "huggingface"
	LLMModel          string
	Temperature       float64
	MaxTokens         int
	EmbeddingProvider string // "ollama", "openai", "gemini", "jina"
	EmbeddingModel    string
	OllamaBaseURL     string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	ClaudeAPIKey      string
	GeminiAPIKey      string
	HuggingFaceAPIKey string
	JinaAPIKey        string

	// Gateway limits shared by every stage
	RequestsPerSecond float64
	Burst             int
	MaxConcurrent     int
	CallTimeout       time.Duration
	MaxRetries        int
}

type RagConfig struct {
	Collection          string
	TopK                int
	MinScore            float64
	HighConfidenceScore float64
	ExactMatchScore     float64
	HistoryWindow       int
	TokenBudget         int
	TokenizerModel      string
	ConsentScope        string // "session" | "turn"
	RequestTimeout      time.Duration
	MaxQueryLength      int
}

type SearchConfig struct {
	SerperAPIKey      string
	SerperURL         string
	ResultCount       int
	RequestsPerSecond float64
	Timeout           time.Duration
}

type SessionConfig struct {
	Backend string // "memory" | "redis"
	TTL     time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Protocol    string // "http" | "grpc" | "stdout"
	ServiceName string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			LLMLogFilePath:     getEnv("LLM_LOG_FILE_PATH", "logs/llm.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			BodyLimitBytes:     getEnvAsInt("BODY_LIMIT_BYTES", 1024*1024),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0),
			MaxTokens:         getEnvAsInt("LLM_MAX_TOKENS", 1024),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
			ClaudeAPIKey:      getEnv("CLAUDE_API_KEY", ""),
			GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
			HuggingFaceAPIKey: getEnv("HUGGINGFACE_API_KEY", ""),
			JinaAPIKey:        getEnv("JINA_API_KEY", ""),
			RequestsPerSecond: getEnvAsFloat("LLM_REQUESTS_PER_SECOND", 5),
			Burst:             getEnvAsInt("LLM_BURST", 5),
			MaxConcurrent:     getEnvAsInt("LLM_MAX_CONCURRENT", 8),
			CallTimeout:       getEnvAsDuration("LLM_CALL_TIMEOUT", 60*time.Second),
			MaxRetries:        getEnvAsInt("LLM_MAX_RETRIES", 2),
		},
		Rag: RagConfig{
			Collection:          getEnv("RAG_COLLECTION", "documents"),
			TopK:                getEnvAsInt("RAG_TOP_K", 8),
			MinScore:            getEnvAsFloat("RAG_MIN_SCORE", 0.3),
			HighConfidenceScore: getEnvAsFloat("RAG_HIGH_CONFIDENCE_SCORE", 0.85),
			ExactMatchScore:     getEnvAsFloat("RAG_EXACT_MATCH_SCORE", 0.92),
			HistoryWindow:       getEnvAsInt("RAG_HISTORY_WINDOW", 3),
			TokenBudget:         getEnvAsInt("RAG_TOKEN_BUDGET", 3000),
			TokenizerModel:      getEnv("RAG_TOKENIZER_MODEL", "gpt-4o"),
			ConsentScope:        strings.ToLower(getEnv("RAG_WEB_CONSENT_SCOPE", "session")),
			RequestTimeout:      getEnvAsDuration("RAG_REQUEST_TIMEOUT", 90*time.Second),
			MaxQueryLength:      getEnvAsInt("RAG_MAX_QUERY_LENGTH", 4000),
		},
		Search: SearchConfig{
			SerperAPIKey:      getEnv("SERPER_API_KEY", ""),
			SerperURL:         getEnv("SERPER_URL", "https://google.serper.dev/search"),
			ResultCount:       getEnvAsInt("SEARCH_RESULT_COUNT", 5),
			RequestsPerSecond: getEnvAsFloat("SEARCH_REQUESTS_PER_SECOND", 2),
			Timeout:           getEnvAsDuration("SEARCH_TIMEOUT", 15*time.Second),
		},
		Session: SessionConfig{
			Backend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
			TTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Protocol:    strings.ToLower(getEnv("OTEL_EXPORTER_PROTOCOL", "http")),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "query-responder-be"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
