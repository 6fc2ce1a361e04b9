package contract

import (
	"context"

	"query-responder-be/pkg/store"
)

// SessionRepository persists whole sessions. Implementations must not share
// memory with callers: Load returns a copy and Save stores one.
type SessionRepository interface {
	Load(ctx context.Context, id string) (*store.Session, bool, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}
