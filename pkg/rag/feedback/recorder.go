package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/pkg/events"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/session"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/utils"
)

type FeedbackInput struct {
	SessionID string // optional; when empty every live session is searched
	Query     string
	Response  string
	Liked     bool
}

// Recorder stores like/dislike feedback and attributes it to the turn it rates.
type Recorder struct {
	sessions  *session.Store
	repo      contract.FeedbackRepository
	publisher events.Publisher
	logger    logger.ILogger
}

func NewRecorder(sessions *session.Store, repo contract.FeedbackRepository, publisher events.Publisher, log logger.ILogger) *Recorder {
	return &Recorder{
		sessions:  sessions,
		repo:      repo,
		publisher: publisher,
		logger:    log,
	}
}

func (r *Recorder) Record(ctx context.Context, in FeedbackInput) (store.FeedbackRecord, error) {
	in.SessionID = strings.TrimSpace(in.SessionID)
	if strings.TrimSpace(in.Query) == "" || strings.TrimSpace(in.Response) == "" {
		return store.FeedbackRecord{}, fmt.Errorf("%w: query and response are required", rag.ErrInvalidInput)
	}

	sessionID, turnID, err := r.attribute(ctx, in)
	if err != nil {
		return store.FeedbackRecord{}, err
	}

	saved, err := r.repo.Upsert(ctx, &store.FeedbackRecord{
		SessionID: sessionID,
		TurnID:    turnID,
		Query:     in.Query,
		Response:  in.Response,
		Liked:     in.Liked,
	})
	if err != nil {
		r.logger.Error("FeedbackRecorder", "Failed to store feedback", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return store.FeedbackRecord{}, fmt.Errorf("store feedback: %w", err)
	}

	r.logger.Info("FeedbackRecorder", "Feedback recorded", map[string]interface{}{
		"feedback_id": saved.ID,
		"session_id":  sessionID,
		"turn_id":     turnID,
		"liked":       in.Liked,
		"query":       utils.Truncate(in.Query, 80),
	})

	if r.publisher != nil {
		err := r.publisher.Publish(ctx, events.FeedbackRecorded{
			FeedbackID: saved.ID,
			SessionID:  sessionID,
			TurnID:     turnID,
			Liked:      in.Liked,
			OccurredAt: time.Now(),
		})
		if err != nil {
			r.logger.Warn("FeedbackRecorder", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}

	return *saved, nil
}

// attribute marks the rated turn and returns where it lives. An unmatched
// submission keeps the caller's session id and an empty turn id.
func (r *Recorder) attribute(ctx context.Context, in FeedbackInput) (string, string, error) {
	if in.SessionID != "" {
		turnID, found, err := r.sessions.ApplyFeedback(ctx, in.SessionID, in.Query, in.Response, in.Liked)
		if err != nil {
			return "", "", err
		}
		if !found {
			r.logger.Debug("FeedbackRecorder", "No matching turn, storing unlinked", map[string]interface{}{"session_id": in.SessionID})
		}
		return in.SessionID, turnID, nil
	}

	owner, err := r.findOwner(ctx, in.Query, in.Response)
	if err != nil {
		return "", "", err
	}
	if owner == "" {
		return "", "", nil
	}
	turnID, found, err := r.sessions.ApplyFeedback(ctx, owner, in.Query, in.Response, in.Liked)
	if err != nil {
		return "", "", err
	}
	if !found {
		// the turn went away between the scan and the update
		return "", "", nil
	}
	return owner, turnID, nil
}

// findOwner returns the session holding the most recent matching turn.
func (r *Recorder) findOwner(ctx context.Context, query, response string) (string, error) {
	ids, err := r.sessions.SessionIDs(ctx)
	if err != nil {
		return "", err
	}

	var (
		owner  string
		latest time.Time
	)
	for _, id := range ids {
		sess, err := r.sessions.Get(ctx, id)
		if err != nil {
			return "", err
		}
		for i := len(sess.Turns) - 1; i >= 0; i-- {
			t := sess.Turns[i]
			if t.Answer != response || (t.Query != query && t.EffectiveQuery != query) {
				continue
			}
			if owner == "" || t.CreatedAt.After(latest) {
				owner, latest = id, t.CreatedAt
			}
			break
		}
	}
	return owner, nil
}

// Recent lists stored feedback, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]*store.FeedbackRecord, error) {
	return r.repo.FindAll(ctx, limit)
}
