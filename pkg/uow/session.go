package uow

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/TechXTT/fluentdao/pkg/dao"
)

// Session is one unit of work against the database: a pinned connection, an
// optional transaction on it and a bag of session properties.
type Session interface {
	// Executor is the transaction while one is open, otherwise the
	// connection.
	Executor() dao.Executor
	Begin(ctx context.Context, opts *sql.TxOptions) error
	Commit() error
	Rollback() error
	// Clear drops the session properties.
	Clear()
	Close() error
	Set(key string, v any)
	Get(key string) (any, bool)
}

// Provider opens a new session. The dispatcher calls it once per owned
// scope.
type Provider func(ctx context.Context) (Session, error)

// DBProvider opens sessions on connections taken from db.
func DBProvider(db *sqlx.DB) Provider {
	return func(ctx context.Context) (Session, error) {
		return NewSession(ctx, db)
	}
}

type session struct {
	mu    sync.Mutex
	conn  *sqlx.Conn
	tx    *sqlx.Tx
	props map[string]any
}

// NewSession pins a connection from db's pool for the life of the session.
func NewSession(ctx context.Context, db *sqlx.DB) (Session, error) {
	conn, err := db.Connx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "acquiring connection")
	}
	return &session{conn: conn, props: map[string]any{}}, nil
}

func (s *session) Executor() dao.Executor {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

func (s *session) Begin(ctx context.Context, opts *sql.TxOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx != nil {
		return ErrTransactionActive
	}
	tx, err := s.conn.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	s.tx = tx
	return nil
}

func (s *session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tx == nil {
		return ErrNoTransaction
	}
	tx := s.tx
	s.tx = nil
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// Rollback aborts the open transaction. It is a no-op without one.
func (s *session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rollback()
}

func (s *session) rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errors.Wrap(err, "rolling back transaction")
	}
	return nil
}

func (s *session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.props)
}

// Close rolls back a transaction left open and returns the connection to the
// pool.
func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rbErr := s.rollback()
	if err := s.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return errors.Wrap(err, "releasing connection")
	}
	return rbErr
}

func (s *session) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[key] = v
}

func (s *session) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.props[key]
	return v, ok
}
