// Package embeddingtest provides deterministic embedders for tests and the simulation CLI.
package embeddingtest

import (
	"context"
	"strings"

	"query-responder-be/pkg/embedding"
)

// Func adapts a function to embedding.EmbeddingProvider.
type Func func(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error)

func (f Func) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return f(ctx, text, taskType)
}

// Vector wraps raw values in a response.
func Vector(values ...float32) *embedding.EmbeddingResponse {
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: values}}
}

// Keywords embeds text as term counts over a fixed vocabulary, so texts sharing
// vocabulary words land close together under cosine similarity.
type Keywords struct {
	Vocabulary []string
}

var _ embedding.EmbeddingProvider = Keywords{}

func (k Keywords) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lower := strings.ToLower(text)
	values := make([]float32, len(k.Vocabulary))
	for i, w := range k.Vocabulary {
		values[i] = float32(strings.Count(lower, strings.ToLower(w)))
	}
	return Vector(values...), nil
}
