package retrieval

import (
	"context"
	"errors"
	"testing"

	"query-responder-be/internal/entity"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/internal/repository/memory"
	"query-responder-be/pkg/embedding"
	"query-responder-be/pkg/embedding/embeddingtest"
	"query-responder-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vocab = embeddingtest.Keywords{Vocabulary: []string{"karma", "yoga", "atman", "dharma"}}

func seeded(t *testing.T) *memory.DocumentChunkRepository {
	t.Helper()
	repo := memory.NewDocumentChunkRepository()
	ctx := context.Background()
	add := func(doc string, idx int, text string) {
		res, err := vocab.Generate(ctx, text, embedding.TaskRetrievalDocument)
		require.NoError(t, err)
		require.NoError(t, repo.CreateBulk(ctx, []*entity.DocumentChunk{{
			Collection: "documents", DocumentId: doc, Filename: doc + ".pdf",
			ChunkIndex: idx, Content: text, EmbeddingValue: res.Embedding.Values,
		}}))
	}
	add("gita", 0, "Karma yoga is the yoga of selfless action.")
	add("gita", 0, "Karma yoga is the yoga of selfless action.") // duplicate ingest
	add("upanishad", 3, "Atman is the inner self.")
	add("manu", 1, "Dharma is duty.")
	return repo
}

func TestRetrieve_OrdersAndDeduplicates(t *testing.T) {
	r := NewRetriever(vocab, seeded(t), DefaultConfig(), logger.NewNopLogger())

	chunks, err := r.Retrieve(context.Background(), "What is karma yoga?", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "gita.pdf", chunks[0].Filename)
	assert.Greater(t, chunks[0].Score, 0.9)
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	r := NewRetriever(vocab, memory.NewDocumentChunkRepository(), DefaultConfig(), logger.NewNopLogger())
	chunks, err := r.Retrieve(context.Background(), "karma", 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieve_RespectsK(t *testing.T) {
	repo := memory.NewDocumentChunkRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateBulk(ctx, []*entity.DocumentChunk{{
			Collection: "documents", DocumentId: "d", ChunkIndex: i, Content: "karma",
			EmbeddingValue: []float32{1, 0, 0, 0},
		}}))
	}
	r := NewRetriever(vocab, repo, DefaultConfig(), logger.NewNopLogger())
	chunks, err := r.Retrieve(ctx, "karma", 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

type failingRepo struct{ contract.DocumentChunkRepository }

func (failingRepo) SearchSimilarWithScore(context.Context, string, []float32, int, float64) ([]*contract.ScoredDocumentChunk, error) {
	return nil, errors.New("connection refused")
}

func TestRetrieve_FailuresAreIndexUnavailable(t *testing.T) {
	tests := []struct {
		name     string
		embedder embedding.EmbeddingProvider
		repo     contract.DocumentChunkRepository
	}{
		{
			name: "embedding fails",
			embedder: embeddingtest.Func(func(context.Context, string, string) (*embedding.EmbeddingResponse, error) {
				return nil, errors.New("ollama down")
			}),
			repo: memory.NewDocumentChunkRepository(),
		},
		{
			name:     "store fails",
			embedder: vocab,
			repo:     failingRepo{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetriever(tt.embedder, tt.repo, DefaultConfig(), logger.NewNopLogger())
			_, err := r.Retrieve(context.Background(), "karma", 3)
			assert.True(t, errors.Is(err, rag.ErrIndexUnavailable))
		})
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r := NewRetriever(vocab, memory.NewDocumentChunkRepository(), DefaultConfig(), logger.NewNopLogger())
	_, err := r.Retrieve(context.Background(), "   ", 3)
	assert.True(t, errors.Is(err, rag.ErrInvalidInput))
}
