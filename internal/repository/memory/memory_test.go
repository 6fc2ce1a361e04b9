package memory

import (
	"context"
	"testing"
	"time"

	"query-responder-be/internal/entity"
	"query-responder-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(time.Hour)

	s := store.NewSession("s1")
	s.Turns = append(s.Turns, store.Turn{ID: "t1", Query: "q", Answer: "a"})
	require.NoError(t, repo.Save(ctx, s))

	loaded, ok, err := repo.Load(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)
	loaded.Turns[0].Answer = "mutated"

	again, _, _ := repo.Load(ctx, "s1")
	assert.Equal(t, "a", again.Turns[0].Answer)

	ids, err := repo.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestSessionRepository_Expires(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(20 * time.Millisecond)
	require.NoError(t, repo.Save(ctx, store.NewSession("short")))

	time.Sleep(40 * time.Millisecond)
	_, ok, err := repo.Load(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFeedbackRepository_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := NewFeedbackRepository()

	first, err := repo.Upsert(ctx, &store.FeedbackRecord{SessionID: "s", Query: "q", Response: "r", Liked: true})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, &store.FeedbackRecord{SessionID: "s", Query: "q", Response: "r", Liked: false})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Liked)

	all, err := repo.FindAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing, err := repo.FindByPair(ctx, "other", "q", "r")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentChunkRepository_Search(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentChunkRepository()
	require.NoError(t, repo.CreateBulk(ctx, []*entity.DocumentChunk{
		{Collection: "documents", DocumentId: "d1", Content: "close", EmbeddingValue: []float32{1, 0}},
		{Collection: "documents", DocumentId: "d2", Content: "far", EmbeddingValue: []float32{0, 1}},
		{Collection: "other", DocumentId: "d3", Content: "elsewhere", EmbeddingValue: []float32{1, 0}},
	}))

	res, err := repo.SearchSimilarWithScore(ctx, "documents", []float32{1, 0.1}, 5, 0.3)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "close", res[0].Chunk.Content)
	assert.Greater(t, res[0].Similarity, 0.9)

	n, _ := repo.Count(ctx, "documents")
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.DeleteByDocumentId(ctx, "documents", "d1"))
	n, _ = repo.Count(ctx, "documents")
	assert.Equal(t, int64(1), n)
}
