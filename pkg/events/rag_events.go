package events

import (
	"context"
	"time"
)

const (
	TypeTurnCompleted    = "turn.completed"
	TypeFeedbackRecorded = "feedback.recorded"
)

// TurnCompleted is emitted after a turn has been committed to its session.
type TurnCompleted struct {
	SessionID  string
	TurnID     string
	Query      string
	Source     string
	Directive  string
	Citations  int
	DurationMs int64
	OccurredAt time.Time
}

func (e TurnCompleted) EventType() string { return TypeTurnCompleted }

func (e TurnCompleted) Payload() map[string]interface{} {
	return map[string]interface{}{
		"session_id":  e.SessionID,
		"turn_id":     e.TurnID,
		"query":       e.Query,
		"source":      e.Source,
		"directive":   e.Directive,
		"citations":   e.Citations,
		"duration_ms": e.DurationMs,
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func (e TurnCompleted) Timestamp() time.Time { return e.OccurredAt }

// FeedbackRecorded is emitted after a like/dislike has been stored.
type FeedbackRecorded struct {
	FeedbackID string
	SessionID  string
	TurnID     string
	Liked      bool
	OccurredAt time.Time
}

func (e FeedbackRecorded) EventType() string { return TypeFeedbackRecorded }

func (e FeedbackRecorded) Payload() map[string]interface{} {
	return map[string]interface{}{
		"feedback_id": e.FeedbackID,
		"session_id":  e.SessionID,
		"turn_id":     e.TurnID,
		"liked":       e.Liked,
		"linked":      e.TurnID != "",
		"occurred_at": e.OccurredAt.Format(time.RFC3339Nano),
	}
}

func (e FeedbackRecorded) Timestamp() time.Time { return e.OccurredAt }

// Publisher is implemented by anything that can emit events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
