package factory

import (
	"testing"

	"query-responder-be/pkg/llm/anthropic"
	"query-responder-be/pkg/llm/gemini"
	"query-responder-be/pkg/llm/huggingface"
	"query-responder-be/pkg/llm/ollama"
	"query-responder-be/pkg/llm/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ProviderConfig
		want    interface{}
		wantErr bool
	}{
		{"ollama", ProviderConfig{Provider: "ollama", Model: "llama3"}, &ollama.OllamaProvider{}, false},
		{"openai", ProviderConfig{Provider: "openai", APIKey: "k"}, &openai.OpenAIProvider{}, false},
		{"openai without key", ProviderConfig{Provider: "openai"}, nil, true},
		{"claude", ProviderConfig{Provider: "Claude", APIKey: "k"}, &anthropic.ClaudeProvider{}, false},
		{"gemini", ProviderConfig{Provider: "gemini", APIKey: "k"}, &gemini.GeminiProvider{}, false},
		{"gemini without key", ProviderConfig{Provider: "gemini"}, nil, true},
		{"huggingface", ProviderConfig{Provider: "huggingface"}, &huggingface.HuggingFaceProvider{}, false},
		{"unknown", ProviderConfig{Provider: "bard"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewLLMProvider(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}
}
