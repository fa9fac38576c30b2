package uow

import (
	"context"
	"database/sql"
	"sync"

	"github.com/TechXTT/fluentdao/pkg/dao"
)

// fakeSession counts lifecycle calls.
type fakeSession struct {
	mu sync.Mutex

	begins, commits, rollbacks int
	clears, closes             int

	beginErr, commitErr, rollbackErr, closeErr error

	props map[string]any
}

func (f *fakeSession) Executor() dao.Executor { return nil }

func (f *fakeSession) Begin(context.Context, *sql.TxOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	return f.beginErr
}

func (f *fakeSession) Commit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	return f.commitErr
}

func (f *fakeSession) Rollback() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rollbacks++
	return f.rollbackErr
}

func (f *fakeSession) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.props = nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return f.closeErr
}

func (f *fakeSession) Set(key string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.props == nil {
		f.props = map[string]any{}
	}
	f.props[key] = v
}

func (f *fakeSession) Get(key string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.props[key]
	return v, ok
}

// fakeProvider hands out fresh fake sessions and remembers them.
type fakeProvider struct {
	sessions []*fakeSession
	setup    func(*fakeSession)
	err      error
}

func (p *fakeProvider) provide(context.Context) (Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	s := &fakeSession{}
	if p.setup != nil {
		p.setup(s)
	}
	p.sessions = append(p.sessions, s)
	return s, nil
}
