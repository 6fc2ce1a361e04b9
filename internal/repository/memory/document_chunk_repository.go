package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"query-responder-be/internal/entity"
	"query-responder-be/internal/repository/contract"

	"github.com/google/uuid"
)

// DocumentChunkRepository is a brute-force cosine index used when no database is configured.
type DocumentChunkRepository struct {
	mu     sync.RWMutex
	chunks []*entity.DocumentChunk
}

var _ contract.DocumentChunkRepository = &DocumentChunkRepository{}

func NewDocumentChunkRepository() *DocumentChunkRepository {
	return &DocumentChunkRepository{}
}

func (r *DocumentChunkRepository) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		if c.Id == uuid.Nil {
			c.Id = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now()
		}
		cp := *c
		r.chunks = append(r.chunks, &cp)
	}
	return nil
}

func (r *DocumentChunkRepository) DeleteByDocumentId(ctx context.Context, collection, documentId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.chunks[:0]
	for _, c := range r.chunks {
		if c.Collection == collection && c.DocumentId == documentId {
			continue
		}
		kept = append(kept, c)
	}
	r.chunks = kept
	return nil
}

func (r *DocumentChunkRepository) Count(ctx context.Context, collection string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, c := range r.chunks {
		if c.Collection == collection {
			n++
		}
	}
	return n, nil
}

func (r *DocumentChunkRepository) SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int, threshold float64) ([]*contract.ScoredDocumentChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 8
	}

	r.mu.RLock()
	var scored []*contract.ScoredDocumentChunk
	for _, c := range r.chunks {
		if c.Collection != collection {
			continue
		}
		sim := cosine(embedding, c.EmbeddingValue)
		if sim < threshold {
			continue
		}
		cp := *c
		scored = append(scored, &contract.ScoredDocumentChunk{Chunk: &cp, Similarity: sim})
	}
	r.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (r *DocumentChunkRepository) Ping(ctx context.Context) error {
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
