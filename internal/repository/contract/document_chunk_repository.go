package contract

import (
	"context"

	"query-responder-be/internal/entity"
)

// ScoredDocumentChunk wraps DocumentChunk with its cosine similarity
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // -1.0 to 1.0 (1.0 = identical)
}

type DocumentChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	DeleteByDocumentId(ctx context.Context, collection, documentId string) error
	Count(ctx context.Context, collection string) (int64, error)
	// SearchSimilarWithScore returns the closest chunks in the collection at or above threshold, best first
	SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int, threshold float64) ([]*ScoredDocumentChunk, error)
	Ping(ctx context.Context) error
}
