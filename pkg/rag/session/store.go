package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/repository/contract"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// Store owns conversational memory. Every mutation runs under the session's
// lock; callers that need a longer critical section (a whole turn) take the
// lock themselves with Lock and finish with Commit.
type Store struct {
	repo   contract.SessionRepository
	logger logger.ILogger

	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewStore(repo contract.SessionRepository, log logger.ILogger) *Store {
	return &Store{
		repo:   repo,
		logger: log,
		locks:  make(map[string]*lockEntry),
	}
}

// Lock serializes work on one session. It waits until the lock is free or ctx
// is done. The returned unlock func is safe to call more than once.
func (s *Store) Lock(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	e, ok := s.locks[id]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		s.locks[id] = e
	}
	e.refs++
	s.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(id, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			s.release(id, e)
		})
	}, nil
}

func (s *Store) release(id string, e *lockEntry) {
	s.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

func (s *Store) heldLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// Get returns a private copy of the session, or a fresh empty one for an unseen id.
func (s *Store) Get(ctx context.Context, id string) (*store.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: empty session id", rag.ErrInvalidInput)
	}
	sess, found, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return store.NewSession(id), nil
	}
	return sess, nil
}

// Commit saves a working copy. The caller must hold the session lock.
func (s *Store) Commit(ctx context.Context, sess *store.Session) error {
	sess.UpdatedAt = time.Now()
	if err := s.repo.Save(ctx, sess); err != nil {
		s.logger.Error("SessionStore", "Commit failed", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// update runs fn on the session under its lock and saves the result.
func (s *Store) update(ctx context.Context, id string, fn func(*store.Session) error) error {
	unlock, err := s.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(sess); err != nil {
		return err
	}
	return s.Commit(ctx, sess)
}

func (s *Store) Append(ctx context.Context, id string, turn store.Turn) error {
	return s.update(ctx, id, func(sess *store.Session) error {
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now()
		}
		sess.Turns = append(sess.Turns, turn)
		return nil
	})
}

// SetConsent records a standing web-search permission (or revokes it).
func (s *Store) SetConsent(ctx context.Context, id string, granted bool) error {
	return s.update(ctx, id, func(sess *store.Session) error {
		sess.WebConsent = granted
		sess.AwaitingConsent = false
		sess.PendingWebQuery = ""
		return nil
	})
}

func (s *Store) SetPendingClarification(ctx context.Context, id string, pending bool, query string) error {
	return s.update(ctx, id, func(sess *store.Session) error {
		sess.PendingClarification = pending
		if pending {
			sess.ClarificationQuery = query
		} else {
			sess.ClarificationQuery = ""
		}
		return nil
	})
}

// ApplyFeedback marks the most recent turn whose query and answer match exactly.
// The answer text itself is never changed.
func (s *Store) ApplyFeedback(ctx context.Context, id, query, response string, liked bool) (string, bool, error) {
	var turnID string
	err := s.update(ctx, id, func(sess *store.Session) error {
		for i := len(sess.Turns) - 1; i >= 0; i-- {
			t := &sess.Turns[i]
			if t.Answer != response {
				continue
			}
			if t.Query != query && t.EffectiveQuery != query {
				continue
			}
			now := time.Now()
			v := liked
			t.Liked = &v
			t.FeedbackAt = &now
			turnID = t.ID
			return nil
		}
		return errNoMatch
	})
	if errors.Is(err, errNoMatch) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return turnID, true, nil
}

var errNoMatch = errors.New("no matching turn")

// SessionIDs lists the sessions currently held by the backend.
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	return s.repo.IDs(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
