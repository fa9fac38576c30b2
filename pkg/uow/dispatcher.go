package uow

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/TechXTT/fluentdao/internal/logger"
)

// Dispatcher runs calls inside a scope-bound session. The outermost call of
// a chain opens the session and owns its commit, rollback and teardown;
// nested calls reuse it and own nothing.
type Dispatcher struct {
	scope         *Scope
	provider      Provider
	transactional bool
	txOpts        *sql.TxOptions
	log           logger.Logger
}

type Option func(*Dispatcher)

func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// WithTxOptions sets the options transactions are begun with.
func WithTxOptions(opts *sql.TxOptions) Option {
	return func(d *Dispatcher) { d.txOpts = opts }
}

// NewTransactional returns a dispatcher that wraps each owned call in a
// transaction.
func NewTransactional(scope *Scope, provider Provider, opts ...Option) *Dispatcher {
	return newDispatcher(scope, provider, true, opts)
}

// NewNonTransactional returns a dispatcher that binds a session without
// transaction demarcation and clears the session before closing it.
func NewNonTransactional(scope *Scope, provider Provider, opts ...Option) *Dispatcher {
	return newDispatcher(scope, provider, false, opts)
}

func newDispatcher(scope *Scope, provider Provider, tx bool, opts []Option) *Dispatcher {
	d := &Dispatcher{
		scope:         scope,
		provider:      provider,
		transactional: tx,
		log:           logger.NopLogger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Scope() *Scope {
	return d.scope
}

// Invoke runs fn with a context carrying the scope's session. The error fn
// returns is returned unchanged; failures while rolling back or releasing
// the session are only logged. A panic in fn rolls back and tears down
// before it continues up the stack.
func (d *Dispatcher) Invoke(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := d.scope.Current(ctx); ok {
		return fn(ctx)
	}

	sess, err := d.provider(ctx)
	if err != nil {
		return errors.Wrapf(err, "opening %s session", d.scope.Name())
	}
	if d.transactional {
		if err := sess.Begin(ctx, d.txOpts); err != nil {
			d.release(sess)
			return err
		}
	}
	bound, err := d.scope.Bind(ctx, sess)
	if err != nil {
		d.rollback(sess)
		d.release(sess)
		return err
	}
	defer d.teardown(bound, sess)

	done := false
	defer func() {
		if !done {
			d.rollback(sess)
		}
	}()

	err = fn(bound)
	done = true
	if err != nil {
		d.rollback(sess)
		return err
	}
	if d.transactional {
		return sess.Commit()
	}
	return nil
}

func (d *Dispatcher) rollback(sess Session) {
	if !d.transactional {
		return
	}
	if err := sess.Rollback(); err != nil {
		d.log.Errorf("%v", &TeardownError{Op: "rollback", Err: err})
	}
}

func (d *Dispatcher) teardown(ctx context.Context, sess Session) {
	d.scope.Clear(ctx)
	if !d.transactional {
		sess.Clear()
	}
	d.release(sess)
}

func (d *Dispatcher) release(sess Session) {
	if err := sess.Close(); err != nil {
		d.log.Errorf("%v", &TeardownError{Op: "close", Err: err})
	}
}

// Wrap returns fn decorated with Invoke.
func (d *Dispatcher) Wrap(fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return d.Invoke(ctx, fn)
	}
}

// Call is Invoke for functions that produce a value.
func Call[T any](ctx context.Context, d *Dispatcher, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := d.Invoke(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
