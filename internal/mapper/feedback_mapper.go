package mapper

import (
	"crypto/sha256"
	"encoding/hex"

	"query-responder-be/internal/model"
	"query-responder-be/pkg/store"

	"github.com/google/uuid"
)

type FeedbackMapper struct{}

func NewFeedbackMapper() *FeedbackMapper {
	return &FeedbackMapper{}
}

// Hash is the stable digest used in the (session, query, response) unique index.
func Hash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func (m *FeedbackMapper) ToRecord(f *model.Feedback) *store.FeedbackRecord {
	if f == nil {
		return nil
	}
	return &store.FeedbackRecord{
		ID:        f.Id.String(),
		SessionID: f.SessionId,
		TurnID:    f.TurnId,
		Query:     f.Query,
		Response:  f.Response,
		Liked:     f.Liked,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func (m *FeedbackMapper) ToModel(r *store.FeedbackRecord) *model.Feedback {
	if r == nil {
		return nil
	}
	id, err := uuid.Parse(r.ID)
	if err != nil {
		id = uuid.New()
	}
	return &model.Feedback{
		Id:           id,
		SessionId:    r.SessionID,
		TurnId:       r.TurnID,
		Query:        r.Query,
		Response:     r.Response,
		QueryHash:    Hash(r.Query),
		ResponseHash: Hash(r.Response),
		Liked:        r.Liked,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (m *FeedbackMapper) ToRecords(rows []*model.Feedback) []*store.FeedbackRecord {
	out := make([]*store.FeedbackRecord, len(rows))
	for i, r := range rows {
		out[i] = m.ToRecord(r)
	}
	return out
}
