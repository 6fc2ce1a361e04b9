package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"query-responder-be/internal/mapper"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/pkg/embedding"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"
)

// Config encapsulates search parameters
type Config struct {
	Collection string
	TopK       int
	MinScore   float64
}

func DefaultConfig() Config {
	return Config{
		Collection: "documents",
		TopK:       8,
		MinScore:   0.3,
	}
}

// Retriever embeds a query and returns the closest chunks from the vector index
type Retriever struct {
	embedder embedding.EmbeddingProvider
	chunks   contract.DocumentChunkRepository
	mapper   *mapper.DocumentChunkMapper
	cfg      Config
	logger   logger.ILogger
}

func NewRetriever(embedder embedding.EmbeddingProvider, chunks contract.DocumentChunkRepository, cfg Config, log logger.ILogger) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultConfig().Collection
	}
	return &Retriever{
		embedder: embedder,
		chunks:   chunks,
		mapper:   mapper.NewDocumentChunkMapper(),
		cfg:      cfg,
		logger:   log,
	}
}

// Retrieve returns at most k chunks at or above the minimum score, best first.
// k <= 0 uses the configured default. Failures wrap rag.ErrIndexUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]store.Chunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty retrieval query", rag.ErrInvalidInput)
	}
	if k <= 0 {
		k = r.cfg.TopK
	}

	embeddingRes, err := r.embedder.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		r.logger.Error("Retriever", "Embedding generation failed", map[string]interface{}{"error": err.Error()})
		return nil, rag.Wrap(rag.ErrIndexUnavailable, fmt.Errorf("embedding generation failed: %w", err))
	}

	scored, err := r.chunks.SearchSimilarWithScore(ctx, r.cfg.Collection, embeddingRes.Embedding.Values, k, r.cfg.MinScore)
	if err != nil {
		r.logger.Error("Retriever", "Vector search failed", map[string]interface{}{"error": err.Error()})
		return nil, rag.Wrap(rag.ErrIndexUnavailable, fmt.Errorf("vector search failed: %w", err))
	}

	out := r.filterAndDeduplicate(scored)
	if len(out) > k {
		out = out[:k]
	}

	r.logger.Debug("Retriever", "Retrieved chunks", map[string]interface{}{
		"raw":        len(scored),
		"kept":       len(out),
		"top":        topScore(out),
		"collection": r.cfg.Collection,
	})
	return out, nil
}

func (r *Retriever) filterAndDeduplicate(scored []*contract.ScoredDocumentChunk) []store.Chunk {
	seen := make(map[string]bool, len(scored))
	out := make([]store.Chunk, 0, len(scored))
	for _, s := range scored {
		if s == nil || s.Chunk == nil || s.Similarity < r.cfg.MinScore {
			continue
		}
		key := fmt.Sprintf("%s#%d", s.Chunk.DocumentId, s.Chunk.ChunkIndex)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r.mapper.ToChunk(s.Chunk, s.Similarity))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func topScore(chunks []store.Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	return chunks[0].Score
}

func (r *Retriever) Ping(ctx context.Context) error {
	return r.chunks.Ping(ctx)
}
