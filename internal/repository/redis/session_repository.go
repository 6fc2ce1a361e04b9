package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"query-responder-be/internal/repository/contract"
	"query-responder-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "qr:session:"
	indexKey  = "qr:sessions"
)

// SessionRepository stores each session as one JSON value with a sliding TTL.
type SessionRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ contract.SessionRepository = &SessionRepository{}

func NewSessionRepository(rdb *goredis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func (r *SessionRepository) Load(ctx context.Context, id string) (*store.Session, bool, error) {
	raw, err := r.rdb.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get session: %w", err)
	}

	var s store.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, true, nil
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, keyPrefix+session.ID, raw, r.ttl)
		pipe.SAdd(ctx, indexKey, session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, keyPrefix+id)
		pipe.SRem(ctx, indexKey, id)
		return nil
	})
	return err
}

// IDs lists live sessions and prunes index entries whose value has expired.
func (r *SessionRepository) IDs(ctx context.Context) ([]string, error) {
	members, err := r.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	cmds := make([]*goredis.IntCmd, len(members))
	_, err = r.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, id := range members {
			cmds[i] = pipe.Exists(ctx, keyPrefix+id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list sessions: %w", err)
	}

	live := make([]string, 0, len(members))
	var stale []interface{}
	for i, id := range members {
		if cmds[i].Val() > 0 {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		r.rdb.SRem(ctx, indexKey, stale...)
	}
	return live, nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
