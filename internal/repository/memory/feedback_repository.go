package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"query-responder-be/internal/mapper"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type FeedbackRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

var _ contract.FeedbackRepository = &FeedbackRepository{}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{
		cache: cache.New(cache.NoExpiration, 0),
	}
}

func pairKey(sessionID, query, response string) string {
	return sessionID + "|" + mapper.Hash(query) + "|" + mapper.Hash(response)
}

func (r *FeedbackRepository) Upsert(ctx context.Context, record *store.FeedbackRecord) (*store.FeedbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey(record.SessionID, record.Query, record.Response)
	now := time.Now()

	if x, found := r.cache.Get(key); found {
		existing := *x.(*store.FeedbackRecord)
		existing.Liked = record.Liked
		existing.TurnID = record.TurnID
		existing.UpdatedAt = now
		r.cache.Set(key, &existing, cache.NoExpiration)
		out := existing
		return &out, nil
	}

	stored := *record
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.cache.Set(key, &stored, cache.NoExpiration)
	out := stored
	return &out, nil
}

func (r *FeedbackRepository) FindByPair(ctx context.Context, sessionID, query, response string) (*store.FeedbackRecord, error) {
	if x, found := r.cache.Get(pairKey(sessionID, query, response)); found {
		out := *x.(*store.FeedbackRecord)
		return &out, nil
	}
	return nil, nil
}

func (r *FeedbackRepository) FindAll(ctx context.Context, limit int) ([]*store.FeedbackRecord, error) {
	items := r.cache.Items()
	out := make([]*store.FeedbackRecord, 0, len(items))
	for _, it := range items {
		rec := *it.Object.(*store.FeedbackRecord)
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
