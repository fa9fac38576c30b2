package uow

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrScopeConflict is returned by Bind when the context already carries a
	// live session for the scope.
	ErrScopeConflict = errors.New("uow: session already bound to scope")

	// ErrNoSession is returned by a scope Source when no session is bound and
	// there is no fallback executor.
	ErrNoSession = errors.New("uow: no session bound to scope")

	// ErrNoTransaction is returned by Commit when no transaction was begun.
	ErrNoTransaction = errors.New("uow: no transaction in progress")

	// ErrTransactionActive is returned by Begin when a transaction is already
	// in progress on the session.
	ErrTransactionActive = errors.New("uow: transaction already in progress")
)

// TeardownError is a failure while rolling back or releasing a session during
// scope cleanup. The dispatcher logs these and never returns them in place of
// the call's own error.
type TeardownError struct {
	Op  string
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("uow: %s: %v", e.Op, e.Err)
}

func (e *TeardownError) Unwrap() error {
	return e.Err
}
