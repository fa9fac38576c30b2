// Package uow binds persistence sessions to a call chain and decides which
// frame of the chain owns their lifecycle.
package uow

import (
	"context"
	"sync/atomic"

	"github.com/TechXTT/fluentdao/pkg/dao"
)

// Scope is a context-carried slot holding at most one session. Distinct
// scopes are independent slots, even when they share a name.
type Scope struct {
	name string
	key  *scopeKey
}

type scopeKey struct {
	name string
}

type binding struct {
	session Session
}

// slot is shared by every context derived from the one Bind returned, so a
// Clear is seen by all of them. A cleared slot is never reused.
type slot struct {
	cur atomic.Pointer[binding]
}

func NewScope(name string) *Scope {
	return &Scope{name: name, key: &scopeKey{name: name}}
}

func (s *Scope) Name() string {
	return s.name
}

func (s *Scope) slot(ctx context.Context) *slot {
	sl, _ := ctx.Value(s.key).(*slot)
	return sl
}

// Current returns the session bound to ctx, if any.
func (s *Scope) Current(ctx context.Context) (Session, bool) {
	sl := s.slot(ctx)
	if sl == nil {
		return nil, false
	}
	b := sl.cur.Load()
	if b == nil {
		return nil, false
	}
	return b.session, true
}

// Bind stores sess as the current session and returns the context that
// carries it. It fails with ErrScopeConflict when a session is already bound.
func (s *Scope) Bind(ctx context.Context, sess Session) (context.Context, error) {
	if sl := s.slot(ctx); sl != nil && sl.cur.Load() != nil {
		return ctx, ErrScopeConflict
	}
	sl := &slot{}
	sl.cur.Store(&binding{session: sess})
	return context.WithValue(ctx, s.key, sl), nil
}

// Clear removes the binding. Clearing an empty scope does nothing.
func (s *Scope) Clear(ctx context.Context) {
	if sl := s.slot(ctx); sl != nil {
		sl.cur.Store(nil)
	}
}

// Source resolves the executor of the bound session. Without a bound session
// it falls back to fallback, or fails with ErrNoSession when fallback is nil.
func (s *Scope) Source(fallback dao.Executor) dao.Source {
	return dao.SourceFunc(func(ctx context.Context) (dao.Executor, error) {
		if sess, ok := s.Current(ctx); ok {
			return sess.Executor(), nil
		}
		if fallback == nil {
			return nil, ErrNoSession
		}
		return fallback, nil
	})
}
