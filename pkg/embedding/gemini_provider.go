package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	ApiKey string
	Model  string

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiProvider(apiKey string, model string) EmbeddingProvider {
	if model == "" {
		model = "text-embedding-004"
	}
	return &GeminiProvider{ApiKey: apiKey, Model: model}
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	p.once.Do(func() {
		p.client, p.initErr = genai.NewClient(ctx, option.WithAPIKey(p.ApiKey))
	})
	if p.initErr != nil {
		return nil, fmt.Errorf("gemini client: %w", p.initErr)
	}

	em := p.client.EmbeddingModel(p.Model)
	switch taskType {
	case TaskRetrievalQuery:
		em.TaskType = genai.TaskTypeRetrievalQuery
	case TaskRetrievalDocument:
		em.TaskType = genai.TaskTypeRetrievalDocument
	}

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embedding: empty vector")
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: normalizeVector(res.Embedding.Values)},
	}, nil
}
