package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/session"
)

// Runner serializes calls that share a session ID and keeps sessions in a
// store between calls. Calls for different sessions run concurrently.
type Runner struct {
	orch  *Orchestrator
	store session.Store

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewRunner(orch *Orchestrator, store session.Store) *Runner {
	return &Runner{orch: orch, store: store, locks: make(map[string]*sessionLock)}
}

// Process loads (or starts) the session, runs ProcessInput and saves the
// result. Only store failures are returned as errors.
func (r *Runner) Process(ctx context.Context, sessionID, text string) (Response, error) {
	return r.with(ctx, sessionID, func(sess session.Session) (Response, session.Session) {
		return r.orch.ProcessInput(ctx, sess, text)
	})
}

// Resolve runs a resolved batch for the session.
func (r *Runner) Resolve(ctx context.Context, sessionID string, plans []action.Plan) (Response, error) {
	return r.with(ctx, sessionID, func(sess session.Session) (Response, session.Session) {
		return r.orch.ResolveActions(ctx, sess, plans)
	})
}

func (r *Runner) with(ctx context.Context, sessionID string, fn func(session.Session) (Response, session.Session)) (Response, error) {
	unlock := r.lock(sessionID)
	defer unlock()

	sess, err := r.store.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		sess = session.New(sessionID)
	} else if err != nil {
		return Response{}, fmt.Errorf("loading session %s: %w", sessionID, err)
	}

	resp, out := fn(sess)
	if len(out.Turns) != len(sess.Turns) || !out.UpdatedAt.Equal(sess.UpdatedAt) {
		if err := r.store.Save(ctx, out); err != nil {
			return resp, fmt.Errorf("saving session %s: %w", sessionID, err)
		}
	}
	return resp, nil
}

func (r *Runner) lock(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sessionLock{}
		r.locks[id] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, id)
		}
		r.mu.Unlock()
	}
}
