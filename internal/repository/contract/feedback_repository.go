package contract

import (
	"context"

	"query-responder-be/pkg/store"
)

type FeedbackRepository interface {
	// Upsert inserts or overwrites the record for (SessionID, Query, Response) and returns the stored row
	Upsert(ctx context.Context, record *store.FeedbackRecord) (*store.FeedbackRecord, error)
	FindByPair(ctx context.Context, sessionID, query, response string) (*store.FeedbackRecord, error)
	FindAll(ctx context.Context, limit int) ([]*store.FeedbackRecord, error)
}
