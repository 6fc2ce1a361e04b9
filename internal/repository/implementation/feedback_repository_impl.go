package implementation

import (
	"context"
	"errors"
	"time"

	"query-responder-be/internal/mapper"
	"query-responder-be/internal/model"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/pkg/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedbackRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.FeedbackMapper
}

func NewFeedbackRepository(db *gorm.DB) contract.FeedbackRepository {
	return &FeedbackRepositoryImpl{
		db:     db,
		mapper: mapper.NewFeedbackMapper(),
	}
}

func (r *FeedbackRepositoryImpl) Upsert(ctx context.Context, record *store.FeedbackRecord) (*store.FeedbackRecord, error) {
	m := r.mapper.ToModel(record)
	m.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "query_hash"}, {Name: "response_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"liked", "turn_id", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return nil, err
	}

	// Re-read: on conflict the returned id is the existing row's, not ours
	return r.FindByPair(ctx, record.SessionID, record.Query, record.Response)
}

func (r *FeedbackRepositoryImpl) FindByPair(ctx context.Context, sessionID, query, response string) (*store.FeedbackRecord, error) {
	var m model.Feedback
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND query_hash = ? AND response_hash = ?", sessionID, mapper.Hash(query), mapper.Hash(response)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToRecord(&m), nil
}

func (r *FeedbackRepositoryImpl) FindAll(ctx context.Context, limit int) ([]*store.FeedbackRecord, error) {
	var rows []*model.Feedback
	q := r.db.WithContext(ctx).Order("updated_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToRecords(rows), nil
}
