package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"query-responder-be/pkg/llm"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

const defaultModel = "claude-3-5-sonnet-latest"

// ClaudeProvider calls the Anthropic Messages API
type ClaudeProvider struct {
	client      anthropicsdk.Client
	model       string
	temperature float64
	maxTokens   int64
}

var _ llm.LLMProvider = &ClaudeProvider{}

func NewClaudeProvider(apiKey, baseURL, model string, temperature float64, maxTokens int) *ClaudeProvider {
	if model == "" {
		model = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &ClaudeProvider{
		client:      anthropicsdk.NewClient(opts...),
		model:       model,
		temperature: temperature,
		maxTokens:   int64(maxTokens),
	}
}

func (p *ClaudeProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   int(p.maxTokens),
	}, options...)

	system, turns := llm.SplitSystem(history)

	messages := make([]anthropicsdk.MessageParam, 0, len(turns))
	for _, m := range turns {
		block := anthropicsdk.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			messages = append(messages, anthropicsdk.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropicsdk.NewUserMessage(block))
		}
	}

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(opts.Model),
		Messages:    messages,
		MaxTokens:   int64(opts.MaxTokens),
		Temperature: param.NewOpt(opts.Temperature),
	}
	if system != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: system}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropicsdk.Error
		if errors.As(err, &apiErr) {
			return "", &llm.StatusError{Provider: "claude", StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("claude request failed: %w", err)
	}

	var sb strings.Builder
	for _, content := range msg.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	return sb.String(), nil
}

func (p *ClaudeProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}
