package factory

import (
	"fmt"
	"strings"

	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/llm/anthropic"
	"query-responder-be/pkg/llm/gemini"
	"query-responder-be/pkg/llm/huggingface"
	"query-responder-be/pkg/llm/ollama"
	"query-responder-be/pkg/llm/openai"
)

// ProviderConfig carries everything any adapter may need
type ProviderConfig struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama or OpenAI-compatible endpoint
	APIKey      string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return ollama.NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider openai")
		}
		return openai.NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	case "claude", "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("CLAUDE_API_KEY is required for provider claude")
		}
		return anthropic.NewClaudeProvider(cfg.APIKey, "", cfg.Model, cfg.Temperature, cfg.MaxTokens), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider gemini")
		}
		return gemini.NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.Temperature), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, "", cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
